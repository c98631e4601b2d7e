package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// cacheRecord is the row layout of the cache_entries table.
type cacheRecord struct {
	Key        string `gorm:"primaryKey;size:191"`
	Data       string `gorm:"type:text;not null"`
	CachedAt   time.Time
	CacheHours float64
}

func (cacheRecord) TableName() string { return "cache_entries" }

func (r cacheRecord) entry() Entry {
	return Entry{Data: []byte(r.Data), CachedAt: r.CachedAt, CacheHours: r.CacheHours}
}

// MySQLConfig holds the connection parameters of the MySQL backend.
type MySQLConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN returns the go-sql-driver connection string.
func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// SQLStore keeps entries in a gorm-managed table on SQLite or MySQL.
type SQLStore struct {
	db      *gorm.DB
	backend string
	path    string // sqlite file, empty for mysql
	mu      sync.Mutex
	clock   func() time.Time
	log     logger.Logger
}

// NewSQLiteStore opens (creating if needed) the SQLite database at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).
				Component("cache").
				Category(errors.CategoryFileIO).
				Context("operation", "create_dir").
				Build()
		}
	}
	store, err := newSQLStore(sqlite.Open(path), BackendSQLite, opts...)
	if err != nil {
		return nil, err
	}
	store.path = path
	return store, nil
}

// NewMySQLStore connects to the MySQL database described by cfg.
func NewMySQLStore(cfg *MySQLConfig, opts ...Option) (*SQLStore, error) {
	return newSQLStore(mysql.Open(cfg.DSN()), BackendMySQL, opts...)
}

func newSQLStore(dialector gorm.Dialector, backend string, opts ...Option) (*SQLStore, error) {
	o := buildOptions(opts)
	log := o.logger.With(logger.String("backend", backend))

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), slowQueryThreshold),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Context("backend", backend).
			Build()
	}
	if err := db.AutoMigrate(&cacheRecord{}); err != nil {
		return nil, errors.New(err).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Context("backend", backend).
			Build()
	}

	return &SQLStore{db: db, backend: backend, clock: o.clock, log: log}, nil
}

func (s *SQLStore) Get(key string) (Entry, bool) {
	var rec cacheRecord
	result := s.db.Where("`key` = ?", key).Limit(1).Find(&rec)
	if result.Error != nil {
		s.log.Warn("cache lookup failed", logger.String("key", key), logger.Error(result.Error))
		return Entry{}, false
	}
	if result.RowsAffected == 0 {
		return Entry{}, false
	}
	entry := rec.entry()
	if !entry.Valid(s.clock()) {
		return Entry{}, false
	}
	return entry, true
}

func (s *SQLStore) Put(key string, value any, ttl time.Duration) error {
	entry, err := newEntry(value, ttl, s.clock())
	if err != nil {
		return err
	}
	rec := cacheRecord{
		Key:        key,
		Data:       string(entry.Data),
		CachedAt:   entry.CachedAt.UTC(),
		CacheHours: entry.CacheHours,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("operation", "upsert").
			Build()
	}
	return nil
}

func (s *SQLStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&cacheRecord{}).Error; err != nil {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryDatabase).
			Context("operation", "clear").
			Build()
	}
	return nil
}

func (s *SQLStore) Stats() Stats {
	stats := Stats{Backend: s.backend}
	if s.path != "" {
		if _, err := os.Stat(s.path); err == nil {
			stats.FileExists = true
		}
	} else {
		stats.FileExists = true
	}

	var records []cacheRecord
	if err := s.db.Find(&records).Error; err != nil {
		s.log.Warn("cache stats query failed", logger.Error(err))
		return stats
	}
	now := s.clock()
	for _, rec := range records {
		stats.Entries++
		if rec.entry().Valid(now) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}
	return stats
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
