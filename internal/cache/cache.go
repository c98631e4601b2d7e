// Package cache provides the lazily expiring key/value stores behind the
// sun-time cache. Entries carry their own lifetime and are only judged at read
// time; nothing is evicted in the background.
package cache

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tphakala/epaper-weather/internal/conf"
	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
)

const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Entry is a cached value with the time it was stored and its lifetime.
type Entry struct {
	Data       json.RawMessage `json:"data"`
	CachedAt   time.Time       `json:"cached_at"`
	CacheHours float64         `json:"cache_hours"`
}

// TTL returns the entry lifetime.
func (e Entry) TTL() time.Duration {
	return time.Duration(e.CacheHours * float64(time.Hour))
}

// Valid reports whether the entry is still fresh at now.
func (e Entry) Valid(now time.Time) bool {
	if e.CachedAt.IsZero() || e.CacheHours <= 0 {
		return false
	}
	return now.Sub(e.CachedAt) < e.TTL()
}

// Decode unmarshals the cached payload into dst.
func (e Entry) Decode(dst any) error {
	return json.Unmarshal(e.Data, dst)
}

// Stats summarizes a store.
type Stats struct {
	Entries    int    `json:"entries"`
	Valid      int    `json:"valid"`
	Expired    int    `json:"expired"`
	FileExists bool   `json:"file_exists"`
	Backend    string `json:"backend"`
}

// Store is a lazily expiring key/value store. Get never returns an expired
// entry.
type Store interface {
	Get(key string) (Entry, bool)
	Put(key string, value any, ttl time.Duration) error
	Clear() error
	Stats() Stats
	Close() error
}

// Option customizes a store.
type Option func(*options)

type options struct {
	clock  func() time.Time
	logger logger.Logger
}

// WithClock replaces the wall clock used for stamping and expiry checks.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger used for recovery warnings.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Global().Module("cache")
	}
	return o
}

// newEntry marshals value into an Entry stamped at now.
func newEntry(value any, ttl time.Duration, now time.Time) (Entry, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Entry{}, errors.New(err).
			Component("cache").
			Category(errors.CategoryValidation).
			Context("operation", "marshal_entry").
			Build()
	}
	return Entry{
		Data:       data,
		CachedAt:   now,
		CacheHours: ttl.Hours(),
	}, nil
}

// Open returns the store selected by cfg.Backend.
func Open(cfg *conf.CacheSettings, opts ...Option) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendFile:
		return NewFileStore(cfg.Path, opts...), nil
	case BackendMemory:
		return NewMemoryStore(opts...), nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.SQLite.Path, opts...)
	case BackendMySQL:
		return NewMySQLStore(&MySQLConfig{
			Host:     cfg.MySQL.Host,
			Port:     cfg.MySQL.Port,
			Username: cfg.MySQL.Username,
			Password: cfg.MySQL.Password,
			Database: cfg.MySQL.Database,
		}, opts...)
	default:
		return nil, errors.Newf("unknown cache backend %q", cfg.Backend).
			Component("cache").
			Category(errors.CategoryConfiguration).
			Build()
	}
}
