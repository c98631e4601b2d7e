package suncalc

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSunTimes_Remote(t *testing.T) {
	env := newTestSunCalc(t, "secret")

	var gotQuery map[string]string
	env.mock.RegisterResponder(http.MethodGet, testEndpoint, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		gotQuery = map[string]string{
			"apiKey": q.Get("apiKey"), "lat": q.Get("lat"), "long": q.Get("long"), "date": q.Get("date"),
		}
		return httpmock.NewStringResponse(200, `{"sunrise":"03:31","sunset":"22:08:30","day_length":"18:37"}`), nil
	})

	st := env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))

	assert.Equal(t, map[string]string{
		"apiKey": "secret", "lat": "59.3293", "long": "18.0686", "date": "2025-06-21",
	}, gotQuery)
	assert.Equal(t, SourceRemote, st.Source)
	assert.False(t, st.Cached)
	assert.Equal(t, "2025-06-21 03:31:00", st.Sunrise.Format(time.DateTime))
	assert.Equal(t, "2025-06-21 22:08:30", st.Sunset.Format(time.DateTime))
	assert.Equal(t, "Europe/Stockholm", st.Sunrise.Location().String())
	assert.Equal(t, "18h 37m", st.DaylightDuration)

	entry, ok := env.store.Get("59.3293_18.0686_2025-06-21")
	require.True(t, ok, "remote result is persisted under lat_lon_date")
	assert.InDelta(t, 24.0, entry.CacheHours, 1e-9)
}

func TestGetSunTimes_CacheHit(t *testing.T) {
	env := newTestSunCalc(t, "secret")
	env.mock.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(200, `{"sunrise":"03:31","sunset":"22:08"}`))

	first := env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))
	second := env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))

	assert.Equal(t, 1, env.mock.GetTotalCallCount())
	assert.True(t, second.Cached)
	assert.Equal(t, SourceRemote, second.Source)
	assert.True(t, first.Sunrise.Equal(second.Sunrise))
	assert.Equal(t, first.DaylightDuration, second.DaylightDuration)
}

func TestGetSunTimes_CacheExpiry(t *testing.T) {
	env := newTestSunCalc(t, "secret")
	env.mock.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(200, `{"sunrise":"03:31","sunset":"22:08"}`))

	env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))
	*env.now = env.now.Add(24 * time.Hour)
	st := env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))

	assert.Equal(t, 2, env.mock.GetTotalCallCount(), "entry older than 24h is refetched")
	assert.False(t, st.Cached)
}

func TestGetSunTimes_RemoteFailuresFallBack(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"server error", httpmock.NewStringResponder(500, `{"message":"boom"}`)},
		{"not json", httpmock.NewStringResponder(200, `<html>`)},
		{"missing sunset", httpmock.NewStringResponder(200, `{"sunrise":"03:31"}`)},
		{"polar placeholder", httpmock.NewStringResponder(200, `{"sunrise":"-:-","sunset":"-:-"}`)},
		{"wrong type", httpmock.NewStringResponder(200, `{"sunrise":331,"sunset":2208}`)},
		{"network", httpmock.NewErrorResponder(assert.AnError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestSunCalc(t, "secret")
			env.mock.RegisterResponder(http.MethodGet, testEndpoint, tt.responder)

			st := env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))
			assert.Equal(t, SourceFallback, st.Source)

			entry, ok := env.store.Get("59.3293_18.0686_2025-06-21")
			require.True(t, ok)
			assert.InDelta(t, 2.0, entry.CacheHours, 1e-9, "fallback is cached for 2h")
		})
	}
}

func TestGetSunTimes_NoAPIKeySkipsRemote(t *testing.T) {
	env := newTestSunCalc(t, "")

	st := env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))

	assert.Equal(t, SourceFallback, st.Source)
	assert.Zero(t, env.mock.GetTotalCallCount())
}

func TestGetSunTimes_FallbackCacheExpiresAfterTwoHours(t *testing.T) {
	env := newTestSunCalc(t, "")
	env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))

	*env.now = env.now.Add(119 * time.Minute)
	assert.True(t, env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t)).Cached)

	*env.now = env.now.Add(time.Minute)
	assert.False(t, env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t)).Cached)
}

func TestGetSunTimes_ZeroDateIsStatic(t *testing.T) {
	env := newTestSunCalc(t, "")

	st := env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, time.Time{})

	assert.Equal(t, SourceStatic, st.Source)
	assert.Equal(t, "12h 0m", st.DaylightDuration)
	assert.Equal(t, 6, st.Sunrise.Hour())
	assert.Equal(t, 18, st.Sunset.Hour())
	assert.Zero(t, env.store.Stats().Entries, "static times are not persisted")
}

func TestGetSunTimes_CivilTwilight(t *testing.T) {
	env := newTestSunCalc(t, "")
	st := env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude,
		time.Date(2025, 3, 20, 12, 0, 0, 0, stockholm(t)))

	require.False(t, st.CivilDawn.IsZero())
	require.False(t, st.CivilDusk.IsZero())
	assert.True(t, st.CivilDawn.Before(st.CivilDusk))
	assert.Equal(t, 20, st.CivilDawn.Day())
}

func TestGetSunTimes_ConcurrentLookupsShareOneFetch(t *testing.T) {
	env := newTestSunCalc(t, "secret")
	release := make(chan struct{})
	env.mock.RegisterResponder(http.MethodGet, testEndpoint, func(*http.Request) (*http.Response, error) {
		<-release
		return httpmock.NewStringResponse(200, `{"sunrise":"03:31","sunset":"22:08"}`), nil
	})

	var wg sync.WaitGroup
	results := make([]SunTimes, 8)
	for i := range results {
		wg.Go(func() {
			results[i] = env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))
		})
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, env.mock.GetTotalCallCount(), 2)
	for _, r := range results {
		assert.Equal(t, "03:31", r.Sunrise.Format("15:04"))
	}
}

func TestGetSunTimes_CancelledCallerDoesNotDowngradeSharedLookup(t *testing.T) {
	env := newTestSunCalc(t, "secret")
	env.mock.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(200, `{"sunrise":"03:31","sunset":"22:08"}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := env.sc.GetSunTimes(ctx, testLatitude, testLongitude, midsummerDate(t))

	assert.Equal(t, SourceRemote, st.Source)
	assert.Equal(t, "03:31", st.Sunrise.Format("15:04"))
	entry, ok := env.store.Get("59.3293_18.0686_2025-06-21")
	require.True(t, ok)
	assert.InDelta(t, 24.0, entry.CacheHours, 1e-9, "remote TTL, not the fallback one")
}

func TestIsNight(t *testing.T) {
	env := newTestSunCalc(t, "secret")
	env.mock.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(200, `{"sunrise":"03:31","sunset":"22:08"}`))
	loc := stockholm(t)

	assert.True(t, env.sc.IsNight(context.Background(), testLatitude, testLongitude, time.Date(2025, 6, 21, 2, 0, 0, 0, loc)))
	assert.False(t, env.sc.IsNight(context.Background(), testLatitude, testLongitude, time.Date(2025, 6, 21, 12, 0, 0, 0, loc)))
	assert.True(t, env.sc.IsNight(context.Background(), testLatitude, testLongitude, time.Date(2025, 6, 21, 23, 0, 0, 0, loc)))
}

func TestClearCacheAndStats(t *testing.T) {
	env := newTestSunCalc(t, "")
	env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t))
	env.sc.GetSunTimes(context.Background(), testLatitude, testLongitude, midsummerDate(t).AddDate(0, 0, 1))

	stats := env.sc.CacheStats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 2, stats.Valid)
	assert.True(t, stats.FileExists)

	require.NoError(t, env.sc.ClearCache())
	stats = env.sc.CacheStats()
	assert.Zero(t, stats.Entries)
	assert.False(t, stats.FileExists)
}

func TestCalculateFallback(t *testing.T) {
	loc := stockholm(t)

	t.Run("midsummer", func(t *testing.T) {
		st, err := CalculateFallback(testLatitude, time.Date(2025, 6, 21, 0, 0, 0, 0, loc))
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, st.Source)
		// 12 -/+ H*12/pi with H = acos(-tan(lat)*tan(decl)).
		assert.Equal(t, "02:52:01", st.Sunrise.Format(time.TimeOnly))
		assert.Equal(t, "21:07:59", st.Sunset.Format(time.TimeOnly))
		assert.Equal(t, "18h 15m", st.DaylightDuration)
	})

	t.Run("symmetric around noon", func(t *testing.T) {
		st, err := CalculateFallback(testLatitude, time.Date(2025, 12, 21, 0, 0, 0, 0, loc))
		require.NoError(t, err)
		noon := time.Date(2025, 12, 21, 12, 0, 0, 0, loc)
		assert.InDelta(t, noon.Sub(st.Sunrise).Seconds(), st.Sunset.Sub(noon).Seconds(), 1)
		assert.Less(t, st.Sunset.Sub(st.Sunrise), 8*time.Hour)
	})

	t.Run("polar latitude is clamped", func(t *testing.T) {
		st, err := CalculateFallback(78.2, time.Date(2025, 6, 21, 0, 0, 0, 0, loc))
		require.NoError(t, err)
		assert.Less(t, st.Sunset.Sub(st.Sunrise), 24*time.Hour)
		assert.Greater(t, st.Sunset.Sub(st.Sunrise), 22*time.Hour)
	})

	t.Run("zero date", func(t *testing.T) {
		_, err := CalculateFallback(testLatitude, time.Time{})
		require.Error(t, err)
	})
}

func TestParseClock(t *testing.T) {
	day := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)

	got, err := parseClock("03:27", day)
	require.NoError(t, err)
	assert.Equal(t, "03:27:00", got.Format(time.TimeOnly))

	got, err = parseClock("20:32:41", day)
	require.NoError(t, err)
	assert.Equal(t, "20:32:41", got.Format(time.TimeOnly))

	for _, bad := range []string{"", "3", "24:00", "12:60", "-:-", "12:00:00:00", "ab:cd"} {
		_, err := parseClock(bad, day)
		assert.Error(t, err, bad)
	}
}

func TestFormatDaylight(t *testing.T) {
	assert.Equal(t, "17h 5m", FormatDaylight(17*time.Hour+5*time.Minute+59*time.Second))
	assert.Equal(t, "0h 0m", FormatDaylight(-time.Hour))
	assert.Equal(t, "12h 0m", FormatDaylight(12*time.Hour))
}
