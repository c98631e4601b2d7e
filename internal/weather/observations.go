package weather

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/httpclient"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
)

const (
	observationsProviderName = "smhi_observations"
	observationsCacheKey     = "latest"
	defaultObservationsTTL   = 15 * time.Minute

	// metobs parameter 7: precipitation amount, hourly sum, mm
	precipitationParameter = 7

	// observations older than this are logged as delayed
	staleObservationAge = 90 * time.Minute
)

// flexFloat accepts both JSON numbers and numeric strings; metobs sends
// values as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid observation value %q: %w", b, err)
	}
	*f = flexFloat(v)
	return nil
}

type observationResponse struct {
	Value *[]struct {
		Date    int64     `json:"date"` // unix milliseconds
		Value   flexFloat `json:"value"`
		Quality string    `json:"quality"`
	} `json:"value"`
}

type station struct {
	id, name, role string
}

// ObservationProvider reads the latest hourly precipitation of a primary
// station and falls back to an alternative station.
type ObservationProvider struct {
	endpoint string
	stations []station
	client   *httpclient.Client
	cache    *gocache.Cache
	metrics  *metrics.WeatherMetrics
	log      logger.Logger
}

func NewObservationProvider(cfg conf.ObservationSettings, client *httpclient.Client, m *metrics.WeatherMetrics) *ObservationProvider {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = conf.DefaultObservationEndpoint
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultObservationsTTL
	}
	p := &ObservationProvider{
		endpoint: endpoint,
		client:   client,
		cache:    gocache.New(ttl, 0),
		metrics:  m,
		log:      logger.Global().Module("weather").Module("observations"),
	}
	if cfg.PrimaryStation != "" {
		p.stations = append(p.stations, station{cfg.PrimaryStation, cfg.PrimaryStationName, "primary"})
	}
	if cfg.AlternativeStation != "" {
		p.stations = append(p.stations, station{cfg.AlternativeStation, cfg.AlternativeStationName, "alternative"})
	}
	return p
}

// StationURL is the latest-hour document of a station.
func (p *ObservationProvider) StationURL(stationID string) string {
	return fmt.Sprintf("%s/parameter/%d/station/%s/period/latest-hour/data.json",
		p.endpoint, precipitationParameter, stationID)
}

// Latest returns the newest observation, trying the stations in order.
func (p *ObservationProvider) Latest(ctx context.Context, now time.Time) FetchResult[Observation] {
	if v, ok := p.cache.Get(observationsCacheKey); ok {
		p.metrics.RecordCacheHit(observationsProviderName)
		return Ok(v.(Observation))
	}
	if len(p.stations) == 0 {
		return Unavailable[Observation](errors.Newf("no observation station configured").
			Component("weather").
			Category(errors.CategoryConfiguration).
			Build())
	}

	var errs []error
	for _, st := range p.stations {
		start := time.Now()
		obs, err := p.fetchStation(ctx, st, now)
		if err != nil {
			p.metrics.RecordFetch(observationsProviderName, metrics.StatusError, time.Since(start))
			p.log.Warn("observation fetch failed",
				logger.String("station", st.id),
				logger.String("role", st.role),
				logger.Error(err))
			errs = append(errs, err)
			continue
		}
		p.metrics.RecordFetch(observationsProviderName, metrics.StatusSuccess, time.Since(start))

		if obs.Age > staleObservationAge {
			p.log.Warn("observation is delayed",
				logger.String("station", st.id),
				logger.Duration("age", obs.Age))
		}
		p.cache.Set(observationsCacheKey, obs, gocache.DefaultExpiration)
		p.log.Info("observation fetched",
			logger.String("station", st.name),
			logger.Float64("precipitation_mm", obs.PrecipitationMM),
			logger.String("quality", obs.Quality))
		return Ok(obs)
	}
	return Unavailable[Observation](errors.Join(errs...))
}

func (p *ObservationProvider) fetchStation(ctx context.Context, st station, now time.Time) (Observation, error) {
	var resp observationResponse
	if err := p.client.GetJSON(ctx, p.StationURL(st.id), &resp); err != nil {
		return Observation{}, errors.New(err).
			Component("weather").
			Category(errors.CategoryNetwork).
			Context("provider", observationsProviderName).
			Context("station", st.id).
			Build()
	}
	if resp.Value == nil {
		return Observation{}, errors.Newf("observation response has no value field").
			Component("weather").
			Category(errors.CategoryFileParsing).
			Context("station", st.id).
			Build()
	}

	obs := Observation{
		StationID:   st.id,
		StationName: st.name,
		StationRole: st.role,
		ObservedAt:  now,
		Quality:     "G",
	}
	values := *resp.Value
	// an empty list means nothing fell during the hour
	if len(values) == 0 {
		return obs, nil
	}

	latest := values[len(values)-1]
	obs.PrecipitationMM = float64(latest.Value)
	obs.Quality = latest.Quality
	if obs.Quality == "" {
		obs.Quality = "U"
	}
	if latest.Date > 0 {
		obs.ObservedAt = time.UnixMilli(latest.Date).In(now.Location())
		obs.Age = now.Sub(obs.ObservedAt)
	}
	return obs, nil
}
