package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
	"github.com/tphakala/epaper-weather/internal/suncalc"
	"github.com/tphakala/epaper-weather/internal/weather"
)

type published struct {
	topic   string
	payload []byte
	retain  bool
}

type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	connectErr error
	publishErr error
	connects   int
	messages   []published
	closed     bool
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeClient) Publish(_ context.Context, topic string, payload []byte, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages = append(f.messages, published{topic, payload, retain})
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.closed = true
}

func snapshot() *weather.WeatherSnapshot {
	return &weather.WeatherSnapshot{
		Timestamp:               time.Date(2026, 6, 24, 12, 5, 0, 0, time.UTC),
		Location:                "Stockholm",
		Temperature:             16.4,
		TemperatureSource:       weather.SourceSMHI,
		Pressure:                1009,
		PressureTrend:           weather.PressureTrend{Trend: weather.TrendRising, Change3h: 1.6},
		ForecastPrecipitation2h: 0.6,
		WeatherDescription:      "Light rain",
		Sun:                     suncalc.SunTimes{Sunrise: time.Date(2026, 6, 24, 1, 31, 0, 0, time.UTC)},
		Cycling: weather.CyclingWarning{
			Warning:           true,
			PrecipitationMM:   0.6,
			PrecipitationType: "Rain",
			OnsetTime:         time.Date(2026, 6, 24, 13, 0, 0, 0, time.UTC),
			ForecastTime:      "15:00",
			Reason:            "Rain expected",
		},
	}
}

func TestPublisher_PublishSnapshot(t *testing.T) {
	fc := &fakeClient{}
	p := NewPublisher(fc, "home/epaper", true)

	require.NoError(t, p.PublishSnapshot(t.Context(), snapshot()))

	assert.Equal(t, 1, fc.connects, "connects on first publish")
	require.Len(t, fc.messages, 2)
	assert.Equal(t, "home/epaper/weather", fc.messages[0].topic)
	assert.Equal(t, "home/epaper/cycling", fc.messages[1].topic)
	assert.True(t, fc.messages[0].retain)

	var w map[string]any
	require.NoError(t, json.Unmarshal(fc.messages[0].payload, &w))
	assert.InDelta(t, 16.4, w["temperature"], 1e-9)
	assert.Equal(t, "rising", w["pressureTrend"])
	assert.InDelta(t, 0.6, w["precipitation2h"], 1e-9)
	assert.NotContains(t, w, "testMode")

	var c CyclingMessage
	require.NoError(t, json.Unmarshal(fc.messages[1].payload, &c))
	assert.True(t, c.Warning)
	assert.Equal(t, "15:00", c.ForecastTime)
	require.NotNil(t, c.Onset)
	assert.True(t, c.Onset.Equal(snapshot().Cycling.OnsetTime))

	require.NoError(t, p.PublishSnapshot(t.Context(), snapshot()))
	assert.Equal(t, 1, fc.connects, "stays connected")

	p.Close()
	assert.True(t, fc.closed)
}

func TestPublisher_Errors(t *testing.T) {
	t.Run("nil snapshot", func(t *testing.T) {
		err := NewPublisher(&fakeClient{}, "x", false).PublishSnapshot(t.Context(), nil)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	})

	t.Run("broker down", func(t *testing.T) {
		down := errors.NewStd("connection refused")
		fc := &fakeClient{connectErr: down}
		err := NewPublisher(fc, "x", false).PublishSnapshot(t.Context(), snapshot())
		require.ErrorIs(t, err, down)
		assert.Empty(t, fc.messages)
	})

	t.Run("publish fails", func(t *testing.T) {
		fc := &fakeClient{connected: true, publishErr: ErrNotConnected}
		err := NewPublisher(fc, "x", false).PublishSnapshot(t.Context(), snapshot())
		require.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestNewCyclingMessage_NoOnset(t *testing.T) {
	msg := NewCyclingMessage(weather.CyclingWarning{Reason: "No precipitation expected"})
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "onset")
	assert.NotContains(t, string(b), "forecastTime")
}

func TestClient_NotConnected(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMQTTMetrics(reg)
	require.NoError(t, err)

	c := NewClient(DefaultConfig(), m)
	assert.False(t, c.IsConnected())
	require.ErrorIs(t, c.Publish(t.Context(), "x", []byte("{}"), false), ErrNotConnected)
	c.Disconnect()
}

func TestClient_InvalidBroker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Broker = "::not a url"
	c := NewClient(cfg, nil)

	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	// second attempt inside the cooldown is refused without dialing
	err = c.Connect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent")
}

func TestConfigFromSettings(t *testing.T) {
	cfg := ConfigFromSettings(&conf.MQTTSettings{
		Broker:   "tcp://broker:1883",
		Topic:    "epaper-weather",
		Username: "u",
		Retain:   true,
	})
	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.True(t, cfg.Retain)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
}

func TestClient_ConnectionHandlers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMQTTMetrics(reg)
	require.NoError(t, err)

	c := NewClient(DefaultConfig(), m).(*client)
	c.onReconnecting(nil, nil)
	c.onConnectionLost(nil, errors.NewStd("eof"))

	n, err := testutil.GatherAndCount(reg, "mqtt_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "one series for connection_lost")

	n, err = testutil.GatherAndCount(reg, "mqtt_messages_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}
