package conf

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %v", ve.Errors)
}

// ValidateSettings checks the whole configuration and returns every problem
// found as one ValidationError.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}
	add := func(err error) {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	add(validateLocation(&settings.Location))
	add(validateSunCalc(&settings.SunCalc))
	add(validateWeather(&settings.Weather))
	add(validateCacheBackend(settings.Cache.Backend))
	add(validateDisplay(&settings.Display))
	add(validateLayout(&settings.Layout, &settings.Display))
	add(validateOutput(&settings.Output))
	add(validateMQTT(&settings.MQTT))
	add(validateNotify(&settings.Notify))
	add(validateSentry(&settings.Sentry))

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLatitude(lat float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %v", lat)
	}
	return nil
}

func validateLongitude(lon float64) error {
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %v", lon)
	}
	return nil
}

func validateLocation(l *LocationSettings) error {
	if err := validateLatitude(l.Latitude); err != nil {
		return err
	}
	if err := validateLongitude(l.Longitude); err != nil {
		return err
	}
	if l.Timezone != "" {
		if _, err := time.LoadLocation(l.Timezone); err != nil {
			return fmt.Errorf("location.timezone %q is not a known timezone", l.Timezone)
		}
	}
	return nil
}

func validateSunCalc(s *SunCalcSettings) error {
	if s.RemoteTTL <= 0 || s.FallbackTTL <= 0 {
		return fmt.Errorf("suncalc ttl values must be positive")
	}
	if s.APIKey != "" {
		return validateURL("suncalc.endpoint", s.Endpoint)
	}
	return nil
}

func validateWeather(w *WeatherSettings) error {
	if err := validateURL("weather.smhi.endpoint", w.SMHI.Endpoint); err != nil {
		return err
	}
	if w.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("weather.http.requestspersecond must not be negative")
	}
	if w.Observations.Enabled {
		if err := validateURL("weather.observations.endpoint", w.Observations.Endpoint); err != nil {
			return err
		}
		if w.Observations.PrimaryStation == "" {
			return fmt.Errorf("weather.observations.primarystation is required when observations are enabled")
		}
	}
	if w.Netatmo.Enabled {
		var missing []string
		if w.Netatmo.ClientID == "" {
			missing = append(missing, "clientid")
		}
		if w.Netatmo.ClientSecret == "" {
			missing = append(missing, "clientsecret")
		}
		if w.Netatmo.RefreshToken == "" {
			missing = append(missing, "refreshtoken")
		}
		if len(missing) > 0 {
			return fmt.Errorf("weather.netatmo is enabled but missing %s", strings.Join(missing, ", "))
		}
	}
	if w.PressureHistory.Enabled && w.PressureHistory.Path == "" {
		return fmt.Errorf("weather.pressurehistory.path is required when pressure history is enabled")
	}
	return nil
}

func validateCacheBackend(backend string) error {
	switch strings.ToLower(backend) {
	case "file", "memory", "sqlite", "mysql":
		return nil
	}
	return fmt.Errorf("cache.backend must be one of file, memory, sqlite, mysql, got %q", backend)
}

func validateDisplay(d *DisplaySettings) error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", d.Width, d.Height)
	}
	if d.Refresh < time.Minute {
		return fmt.Errorf("display.refresh must be at least 1m, got %s", d.Refresh)
	}
	return nil
}

var validOps = map[string]bool{">": true, ">=": true, "<": true, "<=": true, "==": true, "!=": true}

func validateLayout(l *LayoutSettings, d *DisplaySettings) error {
	bounds := fmt.Sprintf("%dx%d", d.Width, d.Height)
	for _, m := range l.Modules {
		if m.Name == "" {
			return fmt.Errorf("layout module without a name")
		}
		if m.Width <= 0 || m.Height <= 0 {
			return fmt.Errorf("layout module %s has an empty size", m.Name)
		}
		if m.X < 0 || m.Y < 0 || m.X+m.Width > d.Width || m.Y+m.Height > d.Height {
			return fmt.Errorf("layout module %s does not fit the %s display", m.Name, bounds)
		}
	}
	for _, t := range l.Triggers {
		if t.Section == "" || t.Group == "" {
			return fmt.Errorf("trigger %s needs a section and a group", t.Name)
		}
		for _, c := range t.Conditions {
			if !validOps[c.Op] {
				return fmt.Errorf("trigger %s has unknown operator %q", t.Name, c.Op)
			}
		}
	}
	return nil
}

func validateOutput(o *OutputSettings) error {
	if o.PNG.Enabled && o.PNG.Path == "" {
		return fmt.Errorf("output.png.path is required when png output is enabled")
	}
	return nil
}

func validateMQTT(m *MQTTSettings) error {
	if !m.Enabled {
		return nil
	}
	if m.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if m.Topic == "" {
		return fmt.Errorf("mqtt.topic is required when mqtt is enabled")
	}
	return nil
}

func validateNotify(n *NotifySettings) error {
	if n.Enabled && len(n.URLs) == 0 {
		return fmt.Errorf("notify.urls must list at least one service when notifications are enabled")
	}
	return nil
}

func validateSentry(s *SentrySettings) error {
	if s.Enabled && s.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when sentry is enabled")
	}
	if s.SampleRate < 0 || s.SampleRate > 1 {
		return fmt.Errorf("sentry.samplerate must be between 0 and 1")
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}
