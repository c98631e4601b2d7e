package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding maps an environment variable onto a config key.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"location.latitude", "EPW_LATITUDE", validateEnvLatitude},
		{"location.longitude", "EPW_LONGITUDE", validateEnvLongitude},
		{"location.timezone", "EPW_TIMEZONE", validateEnvTimezone},
		{"location.name", "EPW_LOCATION_NAME", nil},

		{"suncalc.apikey", "EPW_SUNCALC_APIKEY", nil},

		{"weather.netatmo.enabled", "EPW_NETATMO_ENABLED", validateEnvBool},
		{"weather.netatmo.clientid", "EPW_NETATMO_CLIENT_ID", nil},
		{"weather.netatmo.clientsecret", "EPW_NETATMO_CLIENT_SECRET", nil},
		{"weather.netatmo.refreshtoken", "EPW_NETATMO_REFRESH_TOKEN", nil},

		{"cache.backend", "EPW_CACHE_BACKEND", validateEnvCacheBackend},
		{"cache.mysql.password", "EPW_CACHE_MYSQL_PASSWORD", nil},

		{"display.refresh", "EPW_DISPLAY_REFRESH", validateEnvDuration},
		{"output.epaper.enabled", "EPW_EPAPER_ENABLED", validateEnvBool},

		{"mqtt.password", "EPW_MQTT_PASSWORD", nil},
		{"sentry.dsn", "EPW_SENTRY_DSN", nil},
		{"logging.default_level", "EPW_LOG_LEVEL", validateEnvLogLevel},
	}
}

// bindEnvVars binds every EPW_* variable and reports invalid values together.
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvLatitude(value string) error {
	lat, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	return validateLatitude(lat)
}

func validateEnvLongitude(value string) error {
	lon, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	return validateLongitude(lon)
}

func validateEnvTimezone(value string) error {
	if _, err := time.LoadLocation(value); err != nil {
		return fmt.Errorf("unknown timezone")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 5m")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvCacheBackend(value string) error {
	return validateCacheBackend(value)
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}
