package weather

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/antonholmquist/jason"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/httpclient"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
)

const (
	netatmoProviderName = "netatmo"
	netatmoCacheKey     = "station"
	defaultNetatmoTTL   = 10 * time.Minute

	// tokens are refreshed this long before they expire
	tokenExpiryMargin = 5 * time.Minute
	// lifetime assumed when the token response has no expires_in
	defaultTokenLifetime = 3 * time.Hour

	outdoorModuleType = "NAModule1"
	staleReadingAge   = 30 * time.Minute
)

// NetatmoProvider reads a Netatmo weather station through the Connect API.
// Without credentials it reports Unavailable without any network traffic.
type NetatmoProvider struct {
	enabled  bool
	endpoint string
	client   *httpclient.Client
	tokens   oauth2.TokenSource
	cache    *gocache.Cache
	metrics  *metrics.WeatherMetrics
	log      logger.Logger
}

func NewNetatmoProvider(cfg conf.NetatmoSettings, client *httpclient.Client, m *metrics.WeatherMetrics) *NetatmoProvider {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = conf.DefaultNetatmoEndpoint
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = conf.DefaultNetatmoTokenURL
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultNetatmoTTL
	}

	p := &NetatmoProvider{
		enabled:  cfg.Enabled && cfg.ClientID != "" && cfg.RefreshToken != "",
		endpoint: endpoint,
		client:   client,
		cache:    gocache.New(ttl, 0),
		metrics:  m,
		log:      logger.Global().Module("weather").Module(netatmoProviderName),
	}
	if !p.enabled {
		return p
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	// the token endpoint goes through the shared client and its transport
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, client.HTTPClient())
	src := &refreshTokenSource{cfg: oc, ctx: tokenCtx, refreshToken: cfg.RefreshToken, log: p.log}
	p.tokens = oauth2.ReuseTokenSourceWithExpiry(nil, src, tokenExpiryMargin)
	return p
}

// Enabled reports whether credentials are configured.
func (p *NetatmoProvider) Enabled() bool { return p.enabled }

// Reading returns the cached reading or fetches a fresh one.
func (p *NetatmoProvider) Reading(ctx context.Context, now time.Time) FetchResult[LocalReading] {
	if !p.enabled {
		return Unavailable[LocalReading](errors.Newf("netatmo credentials not configured").
			Component("weather").
			Category(errors.CategoryConfiguration).
			Build())
	}
	if v, ok := p.cache.Get(netatmoCacheKey); ok {
		p.metrics.RecordCacheHit(netatmoProviderName)
		return Ok(v.(LocalReading))
	}

	start := time.Now()
	reading, err := p.fetch(ctx, now)
	if err != nil {
		p.metrics.RecordFetch(netatmoProviderName, metrics.StatusError, time.Since(start))
		p.log.Warn("station fetch failed", logger.Error(err))
		return Unavailable[LocalReading](err)
	}
	p.metrics.RecordFetch(netatmoProviderName, metrics.StatusSuccess, time.Since(start))
	p.cache.Set(netatmoCacheKey, reading, gocache.DefaultExpiration)
	return Ok(reading)
}

func (p *NetatmoProvider) fetch(ctx context.Context, now time.Time) (LocalReading, error) {
	tok, err := p.tokens.Token()
	if err != nil {
		return LocalReading{}, errors.New(err).
			Component("weather").
			Category(errors.CategoryNetwork).
			Context("provider", netatmoProviderName).
			Context("operation", "refresh_token").
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/getstationsdata", http.NoBody)
	if err != nil {
		return LocalReading{}, errors.New(err).
			Component("weather").
			Category(errors.CategoryConfiguration).
			Build()
	}
	tok.SetAuthHeader(req)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return LocalReading{}, errors.New(err).
			Component("weather").
			Category(errors.CategoryNetwork).
			NetworkContext(p.endpoint, httpclient.DefaultTimeout).
			Context("provider", netatmoProviderName).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if err := httpclient.CheckResponse(resp); err != nil {
		return LocalReading{}, errors.New(err).
			Component("weather").
			Category(errors.CategoryNetwork).
			Context("provider", netatmoProviderName).
			Context("status_code", resp.StatusCode).
			Build()
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return LocalReading{}, errors.New(err).
			Component("weather").
			Category(errors.CategoryFileParsing).
			Context("provider", netatmoProviderName).
			Build()
	}

	reading, err := parseStations(obj)
	if err != nil {
		return LocalReading{}, err
	}
	if !reading.LastMeasurement.IsZero() {
		if age := now.Sub(reading.LastMeasurement); age > staleReadingAge {
			p.log.Warn("outdoor module reading is old", logger.Duration("age", age))
		}
	}
	p.log.Info("station read",
		logger.String("station", reading.StationName),
		logger.Bool("temperature", reading.Temperature != nil),
		logger.Bool("pressure", reading.Pressure != nil))
	return reading, nil
}

// parseStations reads the first station of a getstationsdata response:
// pressure and indoor values from the base station, temperature and
// humidity from the outdoor module.
func parseStations(obj *jason.Object) (LocalReading, error) {
	devices, err := obj.GetObjectArray("body", "devices")
	if err != nil || len(devices) == 0 {
		return LocalReading{}, errors.Newf("netatmo response has no devices").
			Component("weather").
			Category(errors.CategoryFileParsing).
			Context("provider", netatmoProviderName).
			Build()
	}
	station := devices[0]

	var r LocalReading
	r.StationName, _ = station.GetString("station_name")

	if dash, err := station.GetObject("dashboard_data"); err == nil {
		r.Pressure = optFloat(dash, "Pressure")
		r.IndoorTemperature = optFloat(dash, "Temperature")
		r.IndoorHumidity = optFloat(dash, "Humidity")
		r.CO2 = optFloat(dash, "CO2")
		r.Noise = optFloat(dash, "Noise")
	}

	modules, _ := station.GetObjectArray("modules")
	for _, m := range modules {
		if typ, _ := m.GetString("type"); typ != outdoorModuleType {
			continue
		}
		dash, err := m.GetObject("dashboard_data")
		if err != nil {
			continue
		}
		r.Temperature = optFloat(dash, "Temperature")
		r.OutdoorHumidity = optFloat(dash, "Humidity")
		if ts, err := dash.GetInt64("time_utc"); err == nil {
			r.LastMeasurement = time.Unix(ts, 0)
		}
	}

	if r.Temperature == nil && r.Pressure == nil {
		return LocalReading{}, errors.Newf("netatmo station reports neither temperature nor pressure").
			Component("weather").
			Category(errors.CategoryFileParsing).
			Context("station", r.StationName).
			Build()
	}
	return r, nil
}

func optFloat(o *jason.Object, key string) *float64 {
	v, err := o.GetFloat64(key)
	if err != nil {
		return nil
	}
	return &v
}

// refreshTokenSource runs the refresh-token grant on every call and keeps
// the rotated refresh token. Callers wrap it in a reusing source.
type refreshTokenSource struct {
	cfg *oauth2.Config
	ctx context.Context

	mu           sync.Mutex
	refreshToken string
	log          logger.Logger
}

func (s *refreshTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.cfg.TokenSource(s.ctx, &oauth2.Token{RefreshToken: s.refreshToken}).Token()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken != "" {
		s.refreshToken = tok.RefreshToken
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = time.Now().Add(defaultTokenLifetime)
	}
	s.log.Info("access token refreshed", logger.Time("expires", tok.Expiry))
	return tok, nil
}
