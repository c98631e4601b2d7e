package cache

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
)

// FileStore keeps every entry in one JSON document. Each write reloads the
// document, applies the change and renames a temp file over it, all under a
// single mutex.
type FileStore struct {
	path  string
	mu    sync.Mutex
	clock func() time.Time
	log   logger.Logger
}

// NewFileStore returns a store backed by path. The file is created on the
// first Put.
func NewFileStore(path string, opts ...Option) *FileStore {
	o := buildOptions(opts)
	return &FileStore{
		path:  path,
		clock: o.clock,
		log:   o.logger.With(logger.String("backend", BackendFile)),
	}
}

func (s *FileStore) Get(key string) (Entry, bool) {
	s.mu.Lock()
	entries := s.loadLocked()
	s.mu.Unlock()

	entry, ok := entries[key]
	if !ok || !entry.Valid(s.clock()) {
		return Entry{}, false
	}
	return entry, true
}

func (s *FileStore) Put(key string, value any, ttl time.Duration) error {
	entry, err := newEntry(value, ttl, s.clock())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.loadLocked()
	entries[key] = entry
	return s.writeLocked(entries)
}

// Clear removes the backing file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryFileIO).
			Context("operation", "clear").
			Build()
	}
	return nil
}

func (s *FileStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Backend: BackendFile}
	if _, err := os.Stat(s.path); err == nil {
		stats.FileExists = true
	}
	now := s.clock()
	for _, entry := range s.loadLocked() {
		stats.Entries++
		if entry.Valid(now) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}
	return stats
}

func (s *FileStore) Close() error { return nil }

// loadLocked reads the document. A missing or unreadable file yields an empty
// map and malformed entries are skipped, so corruption only costs cache misses.
func (s *FileStore) loadLocked() map[string]Entry {
	entries := make(map[string]Entry)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("cache file unreadable, treating as empty", logger.Error(err))
		}
		return entries
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("cache file corrupted, treating as empty",
			logger.String("path", s.path),
			logger.Error(err))
		return entries
	}

	for key, msg := range raw {
		var entry Entry
		if err := json.Unmarshal(msg, &entry); err != nil || entry.CachedAt.IsZero() {
			s.log.Debug("skipping malformed cache entry", logger.String("key", key))
			continue
		}
		entries[key] = entry
	}
	return entries
}

func (s *FileStore) writeLocked(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryFileIO).
			Context("operation", "encode").
			Build()
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryFileIO).
			Context("operation", "create_dir").
			Build()
	}

	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryFileIO).
			Context("operation", "create_temp").
			Build()
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryFileIO).
			Context("operation", "write_temp").
			Build()
	}
	if err := tmp.Close(); err != nil {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryFileIO).
			Context("operation", "close_temp").
			Build()
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.New(err).
			Component("cache").
			Category(errors.CategoryFileIO).
			Context("operation", "rename").
			Build()
	}
	return nil
}
