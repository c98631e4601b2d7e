// Package conf loads and saves the application configuration.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// LocationSettings identifies the place the weather is shown for.
type LocationSettings struct {
	Name      string  // shown in the hero module
	Latitude  float64 // decimal degrees
	Longitude float64 // decimal degrees
	Timezone  string  // IANA name used for every displayed time
}

// SunCalcSettings configures the sun-time cache.
type SunCalcSettings struct {
	APIKey      string        // ipgeolocation.io key, empty disables the remote lookup
	Endpoint    string        // astronomy endpoint
	Timeout     time.Duration // per-request timeout
	RemoteTTL   time.Duration // cache lifetime of remote results
	FallbackTTL time.Duration // cache lifetime of computed results
}

// HTTPSettings is shared by every outbound client.
type HTTPSettings struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

type SMHISettings struct {
	Endpoint string        // pmp3g base URL
	CacheTTL time.Duration // forecast cache lifetime
}

type ObservationSettings struct {
	Enabled                bool
	Endpoint               string // metobs base URL
	PrimaryStation         string
	PrimaryStationName     string
	AlternativeStation     string
	AlternativeStationName string
	CacheTTL               time.Duration
}

type NetatmoSettings struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RefreshToken string
	Endpoint     string // API base URL
	TokenURL     string
	CacheTTL     time.Duration
}

type PressureHistorySettings struct {
	Enabled   bool
	Path      string
	Retention time.Duration
}

type WeatherSettings struct {
	HTTP            HTTPSettings
	SMHI            SMHISettings
	Observations    ObservationSettings
	Netatmo         NetatmoSettings
	PressureHistory PressureHistorySettings
}

// CacheSettings selects the persistence backend of the sun-time cache.
type CacheSettings struct {
	Backend string // file, memory, sqlite or mysql
	Path    string // file backend location
	SQLite  struct {
		Path string
	}
	MySQL struct {
		Host     string
		Port     string
		Username string
		Password string
		Database string
	}
}

type IconSettings struct {
	Dir string // root holding weather/, pressure/, wind/, sun/ and system/
}

// DisplaySettings describes the drawing surface.
type DisplaySettings struct {
	Width    int
	Height   int
	Refresh  time.Duration  // daemon loop interval
	Watchdog time.Duration  // force a push after this long without one
	FontPath string         // optional TrueType font, empty uses the built-in Go fonts
	Fonts    map[string]int // named font sizes in points
}

// ModuleSlot places a module on the layout.
type ModuleSlot struct {
	Name    string
	Section string
	Group   string
	Enabled bool
	X       int
	Y       int
	Width   int
	Height  int
}

// ConditionSettings is a single comparison against the trigger context.
type ConditionSettings struct {
	Field string
	Op    string // >, >=, <, <=, ==, !=
	Value float64
}

// TriggerSettings activates Group in Section when any condition holds.
type TriggerSettings struct {
	Name       string
	Section    string
	Group      string
	Priority   int
	Conditions []ConditionSettings
}

type LayoutSettings struct {
	Modules  []ModuleSlot
	Triggers []TriggerSettings
}

type OutputSettings struct {
	StateFile string // last pushed values, used for change detection
	PNG       struct {
		Enabled bool
		Path    string
	}
	EPaper struct {
		Enabled bool
		SPIPort string // empty picks the first available port
	}
}

type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Topic    string
	Username string
	Password string
	ClientID string
	Retain   bool
}

type NotifySettings struct {
	Enabled bool
	URLs    []string // shoutrrr service URLs
	Timeout time.Duration
}

type MetricsSettings struct {
	Enabled bool
	Listen  string // address of the daemon HTTP server
}

type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

type DebugSettings struct {
	Enabled       bool
	AllowTestData bool
	TestDataFile  string
	TestTimeout   time.Duration // maximum lifetime of injected test data
}

// Settings is the complete configuration.
type Settings struct {
	Version   string `yaml:"-"`
	BuildDate string `yaml:"-"`

	Debug    DebugSettings
	Location LocationSettings
	SunCalc  SunCalcSettings
	Weather  WeatherSettings
	Cache    CacheSettings
	Icons    IconSettings
	Display  DisplaySettings
	Layout   LayoutSettings
	Output   OutputSettings
	MQTT     MQTTSettings
	Notify   NotifySettings
	Metrics  MetricsSettings
	Sentry   SentrySettings
	Logging  logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads config.yaml, applies defaults and EPW_* environment overrides,
// and validates the result. A missing file is created from the embedded
// template.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ResolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded template to dir and loads it.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")
	if err := WriteDefaultConfig(configPath); err != nil {
		return err
	}
	viper.SetConfigFile(configPath)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading generated config file: %w", err)
	}
	logger.Global().Module("conf").Info("created default configuration",
		logger.String("path", configPath))
	return nil
}

// DefaultConfig returns the embedded configuration template.
func DefaultConfig() []byte {
	data, err := configFiles.ReadFile("config.yaml")
	if err != nil {
		// The template is compiled in; this cannot fail at runtime.
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return data
}

// WriteDefaultConfig writes the embedded template to configPath, creating the
// parent directory. An existing file is left untouched and reported as an error.
func WriteDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file %s already exists", configPath)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	return writeFileAtomic(configPath, DefaultConfig())
}

// GetSettings returns the settings loaded by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig marshals settings and atomically replaces configPath.
// Comments of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return writeFileAtomic(configPath, yamlData)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, path); err != nil {
		if err := copyFile(tempFileName, path); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}
	return nil
}

// copyFile is the cross-device fallback for os.Rename.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("error creating destination file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("error copying file contents: %w", err)
	}
	return out.Close()
}

// GetDefaultConfigPaths lists the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "epaper-weather"),
		"/etc/epaper-weather",
	}, nil
}

// FindConfigFile returns the first existing config.yaml on the search path.
func FindConfigFile() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	for _, path := range configPaths {
		candidate := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("config file not found")
}

// TimeLocation resolves Location.Timezone, defaulting to Europe/Stockholm.
func (s *Settings) TimeLocation() *time.Location {
	name := s.Location.Timezone
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveSecrets expands ${VAR} references and file: paths in credential
// fields. Other settings are taken literally.
func ResolveSecrets(settings *Settings) error {
	fields := map[string]*string{
		"suncalc.apikey":               &settings.SunCalc.APIKey,
		"weather.netatmo.clientid":     &settings.Weather.Netatmo.ClientID,
		"weather.netatmo.clientsecret": &settings.Weather.Netatmo.ClientSecret,
		"weather.netatmo.refreshtoken": &settings.Weather.Netatmo.RefreshToken,
		"cache.mysql.password":         &settings.Cache.MySQL.Password,
		"mqtt.broker":                  &settings.MQTT.Broker,
		"mqtt.username":                &settings.MQTT.Username,
		"mqtt.password":                &settings.MQTT.Password,
		"sentry.dsn":                   &settings.Sentry.DSN,
	}
	for i := range settings.Notify.URLs {
		fields[fmt.Sprintf("notify.urls[%d]", i)] = &settings.Notify.URLs[i]
	}
	return secrets.ResolveAll(fields)
}
