package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate runs the test in an empty working directory with a private HOME and
// a fresh viper instance.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", filepath.Join(dir, "home"))
	viper.Reset()
	t.Cleanup(viper.Reset)
	return dir
}

func TestLoad_CreatesDefaultConfig(t *testing.T) {
	dir := isolate(t)

	settings, err := Load()
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
	assert.Equal(t, "Stockholm", settings.Location.Name)
	assert.InDelta(t, 59.3293, settings.Location.Latitude, 1e-9)
	assert.Equal(t, "Europe/Stockholm", settings.Location.Timezone)
	assert.Equal(t, 24*time.Hour, settings.SunCalc.RemoteTTL)
	assert.Equal(t, 2*time.Hour, settings.SunCalc.FallbackTTL)
	assert.Equal(t, 30*time.Minute, settings.Weather.SMHI.CacheTTL)
	assert.Equal(t, 15*time.Minute, settings.Weather.Observations.CacheTTL)
	assert.Equal(t, 10*time.Minute, settings.Weather.Netatmo.CacheTTL)
	assert.Equal(t, "98230", settings.Weather.Observations.PrimaryStation)
	assert.Equal(t, "file", settings.Cache.Backend)
	assert.Equal(t, 800, settings.Display.Width)
	assert.Equal(t, 64, settings.Display.Fonts["hero_temp"])
	assert.Len(t, settings.Layout.Modules, len(DefaultModules()))
	require.Len(t, settings.Layout.Triggers, 1)
	assert.Equal(t, "bottom_section", settings.Layout.Triggers[0].Section)
	assert.Same(t, settings, GetSettings())
}

func TestLoad_ReadsExistingFileAndEnv(t *testing.T) {
	dir := isolate(t)

	cfg := `
location:
  name: Uppsala
  latitude: 59.8586
  longitude: 17.6389
display:
  refresh: 10m
cache:
  backend: memory
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))
	t.Setenv("EPW_SUNCALC_APIKEY", "from-env")
	t.Setenv("EPW_LATITUDE", "60.1")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Uppsala", settings.Location.Name)
	assert.InDelta(t, 60.1, settings.Location.Latitude, 1e-9, "env overrides file")
	assert.Equal(t, "from-env", settings.SunCalc.APIKey)
	assert.Equal(t, 10*time.Minute, settings.Display.Refresh)
	assert.Equal(t, "memory", settings.Cache.Backend)
	assert.Equal(t, 480, settings.Display.Height, "defaults fill gaps")
}

func TestLoad_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("EPW_LATITUDE", "north")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EPW_LATITUDE")
}

func TestLoad_ValidationFailure(t *testing.T) {
	dir := isolate(t)
	cfg := "location:\n  latitude: 123\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors[0], "latitude")
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), data)

	require.Error(t, WriteDefaultConfig(path), "existing file is not overwritten")
}

func TestSaveYAMLConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("old: true\n"), 0o600))

	settings := &Settings{Version: "1.2.3"}
	settings.Location.Name = "Göteborg"
	settings.Location.Latitude = 57.7089
	settings.MQTT.Topic = "weather/gbg"

	require.NoError(t, SaveYAMLConfig(path, settings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.NotContains(t, out, "old")
	assert.NotContains(t, out, "version", "runtime fields are not persisted")
	location, ok := out["location"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Göteborg", location["name"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is cleaned up")
}

func TestTimeLocation(t *testing.T) {
	s := &Settings{}
	assert.Equal(t, "Europe/Stockholm", s.TimeLocation().String())

	s.Location.Timezone = "Europe/Helsinki"
	assert.Equal(t, "Europe/Helsinki", s.TimeLocation().String())

	s.Location.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, s.TimeLocation())
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("EPW_TEST_MQTT_PASSWORD", "hunter2")
	secretFile := filepath.Join(t.TempDir(), "dsn")
	require.NoError(t, os.WriteFile(secretFile, []byte("https://key@sentry.example/1\n"), 0o600))

	s := &Settings{}
	s.MQTT.Password = "${EPW_TEST_MQTT_PASSWORD}"
	s.Sentry.DSN = "file:" + secretFile
	s.Location.Name = "${NOT_EXPANDED}"
	s.Notify.URLs = []string{"generic://host/${EPW_TEST_MQTT_PASSWORD}"}

	require.NoError(t, ResolveSecrets(s))
	assert.Equal(t, "hunter2", s.MQTT.Password)
	assert.Equal(t, "https://key@sentry.example/1", s.Sentry.DSN)
	assert.Equal(t, "${NOT_EXPANDED}", s.Location.Name, "only credential fields are resolved")
	assert.Equal(t, "generic://host/hunter2", s.Notify.URLs[0])

	s.MQTT.Password = "${EPW_TEST_UNSET_VAR}"
	err := ResolveSecrets(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt.password")
}
