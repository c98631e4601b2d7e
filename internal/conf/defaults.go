package conf

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTimezone = "Europe/Stockholm"

	DefaultSMHIEndpoint        = "https://opendata-download-metfcst.smhi.se/api/category/pmp3g/version/2"
	DefaultObservationEndpoint = "https://opendata-download-metobs.smhi.se/api/version/latest"
	DefaultAstronomyEndpoint   = "https://api.ipgeolocation.io/astronomy"
	DefaultNetatmoEndpoint     = "https://api.netatmo.com/api"
	DefaultNetatmoTokenURL     = "https://api.netatmo.com/oauth2/token"
)

// setDefaultConfig registers every default with viper.
func setDefaultConfig() {
	viper.SetDefault("debug.enabled", false)
	viper.SetDefault("debug.allowtestdata", false)
	viper.SetDefault("debug.testdatafile", "cache/test_precipitation.json")
	viper.SetDefault("debug.testtimeout", time.Hour)

	viper.SetDefault("location.name", "Stockholm")
	viper.SetDefault("location.latitude", 59.3293)
	viper.SetDefault("location.longitude", 18.0686)
	viper.SetDefault("location.timezone", DefaultTimezone)

	viper.SetDefault("suncalc.apikey", "")
	viper.SetDefault("suncalc.endpoint", DefaultAstronomyEndpoint)
	viper.SetDefault("suncalc.timeout", 10*time.Second)
	viper.SetDefault("suncalc.remotettl", 24*time.Hour)
	viper.SetDefault("suncalc.fallbackttl", 2*time.Hour)

	viper.SetDefault("weather.http.timeout", 10*time.Second)
	viper.SetDefault("weather.http.requestspersecond", 2.0)
	viper.SetDefault("weather.http.burst", 2)

	viper.SetDefault("weather.smhi.endpoint", DefaultSMHIEndpoint)
	viper.SetDefault("weather.smhi.cachettl", 30*time.Minute)

	viper.SetDefault("weather.observations.enabled", true)
	viper.SetDefault("weather.observations.endpoint", DefaultObservationEndpoint)
	viper.SetDefault("weather.observations.primarystation", "98230")
	viper.SetDefault("weather.observations.primarystationname", "Stockholm-Observatoriekullen A")
	viper.SetDefault("weather.observations.alternativestation", "97390")
	viper.SetDefault("weather.observations.alternativestationname", "Stockholm-Bromma")
	viper.SetDefault("weather.observations.cachettl", 15*time.Minute)

	viper.SetDefault("weather.netatmo.enabled", false)
	viper.SetDefault("weather.netatmo.endpoint", DefaultNetatmoEndpoint)
	viper.SetDefault("weather.netatmo.tokenurl", DefaultNetatmoTokenURL)
	viper.SetDefault("weather.netatmo.cachettl", 10*time.Minute)

	viper.SetDefault("weather.pressurehistory.enabled", true)
	viper.SetDefault("weather.pressurehistory.path", "cache/pressure_history.json")
	viper.SetDefault("weather.pressurehistory.retention", 24*time.Hour)

	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.path", "cache/sun_cache.json")
	viper.SetDefault("cache.sqlite.path", "cache/epaper-weather.db")
	viper.SetDefault("cache.mysql.host", "localhost")
	viper.SetDefault("cache.mysql.port", "3306")
	viper.SetDefault("cache.mysql.database", "epaper_weather")

	viper.SetDefault("icons.dir", "icons")

	viper.SetDefault("display.width", 800)
	viper.SetDefault("display.height", 480)
	viper.SetDefault("display.refresh", 5*time.Minute)
	viper.SetDefault("display.watchdog", 30*time.Minute)
	viper.SetDefault("display.fontpath", "")
	viper.SetDefault("display.fonts", DefaultFontSizes())

	viper.SetDefault("layout.modules", DefaultModules())
	viper.SetDefault("layout.triggers", DefaultTriggers())

	viper.SetDefault("output.statefile", "cache/last_run_values.json")
	viper.SetDefault("output.png.enabled", true)
	viper.SetDefault("output.png.path", "frame.png")
	viper.SetDefault("output.epaper.enabled", false)
	viper.SetDefault("output.epaper.spiport", "")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "epaper-weather")
	viper.SetDefault("mqtt.retain", true)

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.urls", []string{})
	viper.SetDefault("notify.timeout", 10*time.Second)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", ":8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/epaper-weather.log")
	viper.SetDefault("logging.file_output.level", "info")
}

// DefaultFontSizes are the named text sizes used by the module renderers.
func DefaultFontSizes() map[string]int {
	return map[string]int{
		"hero_temp":   64,
		"hero_desc":   26,
		"medium_main": 40,
		"medium_desc": 22,
		"small_main":  28,
		"small_desc":  18,
		"tiny":        13,
	}
}

// DefaultModules is the 800x480 layout. The bottom section shows the date and
// status modules normally and the precipitation module when triggered.
func DefaultModules() []ModuleSlot {
	return []ModuleSlot{
		{Name: "main_weather", Section: "hero", Group: "normal", Enabled: true, X: 10, Y: 10, Width: 470, Height: 280},
		{Name: "barometer_module", Section: "side", Group: "normal", Enabled: true, X: 490, Y: 10, Width: 300, Height: 200},
		{Name: "tomorrow_forecast", Section: "side", Group: "normal", Enabled: true, X: 490, Y: 220, Width: 300, Height: 170},
		{Name: "wind_module", Section: "side", Group: "normal", Enabled: true, X: 490, Y: 400, Width: 300, Height: 70},
		{Name: "clock_module", Section: "bottom_section", Group: "normal", Enabled: true, X: 10, Y: 300, Width: 230, Height: 170},
		{Name: "status_module", Section: "bottom_section", Group: "normal", Enabled: true, X: 250, Y: 300, Width: 230, Height: 170},
		{Name: "precipitation_module", Section: "bottom_section", Group: "precipitation_active", Enabled: true, X: 10, Y: 300, Width: 470, Height: 170},
	}
}

// DefaultTriggers swaps the bottom section to the precipitation module when it
// rains now or rain is forecast for the next two hours.
func DefaultTriggers() []TriggerSettings {
	return []TriggerSettings{
		{
			Name:     "precipitation_active",
			Section:  "bottom_section",
			Group:    "precipitation_active",
			Priority: 1,
			Conditions: []ConditionSettings{
				{Field: "precipitation", Op: ">", Value: 0},
				{Field: "forecast_precipitation_2h", Op: ">=", Value: 0.2},
			},
		},
	}
}
