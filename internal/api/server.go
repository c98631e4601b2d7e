// Package api serves the daemon's HTTP endpoints: Prometheus metrics, the
// latest weather snapshot and the latest rendered frame.
package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/epaper-weather/internal/buildinfo"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability"
	"github.com/tphakala/epaper-weather/internal/render"
	"github.com/tphakala/epaper-weather/internal/weather"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Source provides the most recent refresh result. *app.App implements it.
type Source interface {
	Latest() (*weather.WeatherSnapshot, *render.Frame, []byte)
}

// Server is the daemon HTTP server.
type Server struct {
	echo      *echo.Echo
	listen    string
	source    Source
	metrics   *observability.Metrics
	build     *buildinfo.Context
	log       logger.Logger
	startTime time.Time
	listener  net.Listener
	done      chan struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics exposes m on /metrics and records request metrics into it.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithBuildInfo sets the version reported by /api/v1/health.
func WithBuildInfo(bi *buildinfo.Context) ServerOption {
	return func(s *Server) { s.build = bi }
}

// New creates a server listening on listen once Start is called.
func New(listen string, src Source, opts ...ServerOption) *Server {
	s := &Server{
		listen:    listen,
		source:    src,
		log:       logger.Global().Module("api"),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.JSONSerializer = jsonSerializer{}
	s.echo.Server.ReadTimeout = defaultReadTimeout
	s.echo.Server.WriteTimeout = defaultWriteTimeout

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(s.requestMetrics)
	s.echo.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}
			s.log.Debug("request", fields...)
			return nil
		},
	}))
}

func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.health)
	v1.GET("/weather", s.weather)
	v1.GET("/frame.png", s.frame)
}

// requestMetrics records every request under its route pattern so path
// parameters do not explode label cardinality.
func (s *Server) requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if s.metrics == nil {
			return err
		}

		code := c.Response().Status
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			} else {
				code = http.StatusInternalServerError
			}
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTP.RecordRequest(route, c.Request().Method, code, time.Since(start), c.Response().Size)
		return err
	}
}

func (s *Server) health(c echo.Context) error {
	uptime := time.Since(s.startTime)
	snap, _, _ := s.source.Latest()

	resp := map[string]any{
		"status":         "healthy",
		"version":        s.build.GetVersion(),
		"build_date":     s.build.GetBuildDate(),
		"uptime":         uptime.Round(time.Second).String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	}
	if snap != nil {
		resp["last_refresh"] = snap.Timestamp.Format(time.RFC3339)
		resp["fallback"] = snap.Fallback
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) weather(c echo.Context) error {
	snap, _, _ := s.source.Latest()
	if snap == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no weather data yet")
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) frame(c echo.Context) error {
	_, frame, png := s.source.Latest()
	if len(png) == 0 {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no frame rendered yet")
	}
	h := c.Response().Header()
	h.Set(echo.HeaderCacheControl, "no-cache")
	if frame != nil {
		h.Set("X-Frame-Run-Id", frame.RunID)
		h.Set(echo.HeaderLastModified, frame.RenderedAt.UTC().Format(http.TimeFormat))
	}
	h.Set(echo.HeaderContentLength, strconv.Itoa(len(png)))
	return c.Blob(http.StatusOK, "image/png", png)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Addr is the bound address, valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.listen
	}
	return s.listener.Addr().String()
}

// Start binds the listener and serves in the background. Bind errors are
// returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("listen", s.listen).
			Build()
	}
	s.listener = ln
	s.echo.Listener = ln
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped", logger.Error(err))
		}
	}()

	s.log.Info("HTTP server listening", logger.String("address", s.Addr()))
	return nil
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline or a short default.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategorySystem).
			Build()
	}
	if s.done != nil {
		<-s.done
	}
	s.log.Info("HTTP server stopped")
	return nil
}
