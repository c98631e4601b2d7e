package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory. go-cache's own expiry and
// janitor are disabled; freshness is judged from the Entry on read.
type MemoryStore struct {
	items *gocache.Cache
	clock func() time.Time
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		items: gocache.New(gocache.NoExpiration, 0),
		clock: o.clock,
	}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	v, ok := s.items.Get(key)
	if !ok {
		return Entry{}, false
	}
	entry, ok := v.(Entry)
	if !ok || !entry.Valid(s.clock()) {
		return Entry{}, false
	}
	return entry, true
}

func (s *MemoryStore) Put(key string, value any, ttl time.Duration) error {
	entry, err := newEntry(value, ttl, s.clock())
	if err != nil {
		return err
	}
	s.items.Set(key, entry, gocache.NoExpiration)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.items.Flush()
	return nil
}

func (s *MemoryStore) Stats() Stats {
	stats := Stats{Backend: BackendMemory}
	now := s.clock()
	for _, item := range s.items.Items() {
		entry, ok := item.Object.(Entry)
		if !ok {
			continue
		}
		stats.Entries++
		if entry.Valid(now) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}
	return stats
}

func (s *MemoryStore) Close() error { return nil }
