package weather

import (
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
	smhiProviderName = "smhi"
	smhiCacheKey     = "forecast"
	defaultSMHITTL   = 30 * time.Minute
)

// smhiResponse mirrors the pmp3g point forecast payload.
type smhiResponse struct {
	ApprovedTime time.Time `json:"approvedTime"`
	TimeSeries   []struct {
		ValidTime  time.Time `json:"validTime"`
		Parameters []struct {
			Name   string    `json:"name"`
			Values []float64 `json:"values"`
		} `json:"parameters"`
	} `json:"timeSeries"`
}

// SMHIProvider fetches the SMHI point forecast for one location.
type SMHIProvider struct {
	endpoint string
	lat, lon float64
	ttl      time.Duration
	client   *httpclient.Client
	cache    *gocache.Cache
	metrics  *metrics.WeatherMetrics
	log      logger.Logger
}

// NewSMHIProvider creates a provider for the point at lat/lon.
func NewSMHIProvider(cfg conf.SMHISettings, lat, lon float64, client *httpclient.Client, m *metrics.WeatherMetrics) *SMHIProvider {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = conf.DefaultSMHIEndpoint
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultSMHITTL
	}
	return &SMHIProvider{
		endpoint: endpoint,
		lat:      lat,
		lon:      lon,
		ttl:      ttl,
		client:   client,
		cache:    gocache.New(ttl, 0),
		metrics:  m,
		log:      logger.Global().Module("weather").Module(smhiProviderName),
	}
}

// URL is the forecast document of the configured point.
func (p *SMHIProvider) URL() string {
	return fmt.Sprintf("%s/geotype/point/lon/%s/lat/%s/data.json",
		p.endpoint, formatCoord(p.lon), formatCoord(p.lat))
}

// Forecast returns the cached series or fetches a fresh one.
func (p *SMHIProvider) Forecast(ctx context.Context) FetchResult[ForecastSeries] {
	if v, ok := p.cache.Get(smhiCacheKey); ok {
		p.metrics.RecordCacheHit(smhiProviderName)
		p.log.Debug("using cached forecast")
		return Ok(v.(ForecastSeries))
	}

	start := time.Now()
	series, err := p.fetch(ctx)
	if err != nil {
		p.metrics.RecordFetch(smhiProviderName, metrics.StatusError, time.Since(start))
		p.log.Warn("forecast fetch failed", logger.Error(err))
		return Unavailable[ForecastSeries](err)
	}
	p.metrics.RecordFetch(smhiProviderName, metrics.StatusSuccess, time.Since(start))

	p.cache.Set(smhiCacheKey, series, gocache.DefaultExpiration)
	p.log.Info("forecast fetched",
		logger.Int("samples", series.Len()),
		logger.Time("approved", series.ApprovedTime),
		logger.Duration("elapsed", time.Since(start)))
	return Ok(series)
}

// Invalidate drops the cached series.
func (p *SMHIProvider) Invalidate() {
	p.cache.Flush()
}

func (p *SMHIProvider) fetch(ctx context.Context) (ForecastSeries, error) {
	var resp smhiResponse
	if err := p.client.GetJSON(ctx, p.URL(), &resp); err != nil {
		return ForecastSeries{}, errors.New(err).
			Component("weather").
			Category(errors.CategoryNetwork).
			NetworkContext(p.endpoint, httpclient.DefaultTimeout).
			Context("provider", smhiProviderName).
			Context("operation", "fetch_forecast").
			Build()
	}
	if len(resp.TimeSeries) == 0 {
		return ForecastSeries{}, errors.Newf("forecast has no timeSeries").
			Component("weather").
			Category(errors.CategoryFileParsing).
			Context("provider", smhiProviderName).
			Build()
	}

	samples := make([]ForecastSample, 0, len(resp.TimeSeries))
	for _, ts := range resp.TimeSeries {
		if ts.ValidTime.IsZero() {
			continue
		}
		params := make(map[string][]float64, len(ts.Parameters))
		for _, prm := range ts.Parameters {
			params[prm.Name] = prm.Values
		}
		samples = append(samples, ForecastSample{ValidTime: ts.ValidTime.UTC(), Parameters: params})
	}
	return NewForecastSeries(resp.ApprovedTime, samples), nil
}

// currentConditions is what the merge takes from the current sample.
type currentConditions struct {
	Temperature       float64
	HasTemperature    bool
	Humidity          float64
	HasHumidity       bool
	Pressure          float64
	HasPressure       bool
	Symbol            int
	WindSpeed         float64
	WindDirection     float64
	Precipitation     float64
	PrecipitationType int
}

func parseCurrent(s ForecastSample) currentConditions {
	var c currentConditions
	if v, ok := s.Value("t"); ok {
		c.Temperature, c.HasTemperature = round(v, 1), true
	}
	if v, ok := s.Value("r"); ok {
		c.Humidity, c.HasHumidity = v, true
	}
	if v, ok := s.Value("msl"); ok {
		c.Pressure, c.HasPressure = round(v, 0), true
	}
	if v, ok := s.Value("Wsymb2"); ok {
		c.Symbol = int(v)
	}
	c.WindSpeed, _ = s.Value("ws")
	c.WindDirection, _ = s.Value("wd")
	c.Precipitation, _ = s.Value("pmin")
	if v, ok := s.Value("pcat"); ok {
		c.PrecipitationType = int(v)
	}
	return c
}

func parseTomorrow(s ForecastSample) Tomorrow {
	c := parseCurrent(s)
	return Tomorrow{
		Temperature:        c.Temperature,
		WeatherSymbol:      c.Symbol,
		WeatherDescription: Description(c.Symbol),
		WindSpeed:          c.WindSpeed,
		WindDirection:      c.WindDirection,
		Precipitation:      c.Precipitation,
		PrecipitationType:  c.PrecipitationType,
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
