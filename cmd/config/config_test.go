package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/epaper-weather/internal/conf"
)

func execute(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	_, err := execute(t, &conf.Settings{}, "init", "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, conf.DefaultConfig(), data)

	_, err = execute(t, &conf.Settings{}, "init", "-o", path)
	require.Error(t, err, "existing file is not overwritten")
}

func TestShow_RedactsSecrets(t *testing.T) {
	s := &conf.Settings{}
	s.MQTT.Password = "hunter2"
	s.Sentry.DSN = "https://key@sentry.example/1"
	s.Notify.URLs = []string{"telegram://token@telegram"}
	s.Location.Name = "Stockholm"

	out, err := execute(t, s, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Stockholm")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "key@sentry")
	assert.NotContains(t, out, "token@telegram")
	assert.Equal(t, "hunter2", s.MQTT.Password, "settings are not modified")
}
