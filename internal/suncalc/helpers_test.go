package suncalc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/tphakala/epaper-weather/internal/cache"
	"github.com/tphakala/epaper-weather/internal/httpclient"
)

// Stockholm coordinates for testing
const (
	testLatitude  = 59.3293
	testLongitude = 18.0686
	testEndpoint  = "https://astronomy.test/astronomy"
)

func stockholm(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

// midsummerDate returns June 21, 2025 noon in Stockholm.
func midsummerDate(t *testing.T) time.Time {
	return time.Date(2025, 6, 21, 12, 0, 0, 0, stockholm(t))
}

type testEnv struct {
	sc    *SunCalc
	store *cache.FileStore
	mock  *httpmock.MockTransport
	now   *time.Time
}

// newTestSunCalc wires a SunCalc to a temp file store, a mock transport and a
// controllable cache clock.
func newTestSunCalc(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	now := time.Date(2025, 6, 21, 8, 0, 0, 0, time.UTC)
	env := &testEnv{now: &now}

	env.store = cache.NewFileStore(filepath.Join(t.TempDir(), "sun_cache.json"),
		cache.WithClock(func() time.Time { return *env.now }))

	cfg := httpclient.DefaultConfig()
	cfg.RequestsPerSecond = 0
	client := httpclient.New(&cfg)
	env.mock = httpmock.NewMockTransport()
	client.HTTPClient().Transport = env.mock
	t.Cleanup(client.Close)

	env.sc = New(Config{
		APIKey:   apiKey,
		Endpoint: testEndpoint,
		Location: stockholm(t),
	}, env.store, client)
	return env
}
