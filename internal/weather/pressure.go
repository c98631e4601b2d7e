package weather

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
)

// Pressure trend classes.
const (
	TrendRising       = "rising"
	TrendFalling      = "falling"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient"
	TrendUnknown      = "unknown"
)

const (
	trendWindow       = 3 * time.Hour
	trendMinHistory   = 90 * time.Minute
	trendThresholdHPa = 1.5
	defaultRetention  = 24 * time.Hour
)

// PressureTrend is the three-hour pressure tendency.
type PressureTrend struct {
	Trend     string  `json:"trend"`
	Change3h  float64 `json:"change_3h"`
	DataHours float64 `json:"data_hours"`
	Text      string  `json:"text"`  // display label
	Arrow     string  `json:"arrow"` // rising, falling or stable
}

func newPressureTrend(trend string, change, hours float64) PressureTrend {
	pt := PressureTrend{Trend: trend, Change3h: change, DataHours: hours}
	switch trend {
	case TrendRising:
		pt.Text, pt.Arrow = "Rising", TrendRising
	case TrendFalling:
		pt.Text, pt.Arrow = "Falling", TrendFalling
	case TrendStable:
		pt.Text, pt.Arrow = "Stable", TrendStable
	default:
		pt.Text, pt.Arrow = "Collecting data", TrendStable
	}
	return pt
}

// pressureFile is the on-disk layout: parallel arrays of unix seconds,
// hPa values and source labels.
type pressureFile struct {
	Timestamps []float64 `json:"timestamps"`
	Pressures  []float64 `json:"pressures"`
	Sources    []string  `json:"sources"`
}

// PressureHistory keeps recent pressure readings in a JSON file. Writes are
// serialized and committed by rename.
type PressureHistory struct {
	path      string
	retention time.Duration
	log       logger.Logger
	mu        sync.Mutex
}

// NewPressureHistory stores readings at path for retention (24h when zero).
func NewPressureHistory(path string, retention time.Duration) *PressureHistory {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &PressureHistory{
		path:      path,
		retention: retention,
		log:       logger.Global().Module("weather").Module("pressure"),
	}
}

// Record appends a reading and drops readings older than the retention.
func (h *PressureHistory) Record(pressure float64, source string, now time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	hist := h.loadLocked()
	hist.Timestamps = append(hist.Timestamps, unixSeconds(now))
	hist.Pressures = append(hist.Pressures, pressure)
	hist.Sources = append(hist.Sources, source)

	cutoff := unixSeconds(now.Add(-h.retention))
	kept := pressureFile{}
	for i, ts := range hist.Timestamps {
		if ts < cutoff {
			continue
		}
		kept.Timestamps = append(kept.Timestamps, ts)
		kept.Pressures = append(kept.Pressures, hist.Pressures[i])
		kept.Sources = append(kept.Sources, hist.Sources[i])
	}
	return h.writeLocked(kept)
}

// Trend compares the latest reading with the reading closest to three hours
// before now.
func (h *PressureHistory) Trend(now time.Time) PressureTrend {
	h.mu.Lock()
	hist := h.loadLocked()
	h.mu.Unlock()

	if len(hist.Pressures) < 2 {
		return newPressureTrend(TrendUnknown, 0, 0)
	}

	target := unixSeconds(now.Add(-trendWindow))
	best := 0
	bestDiff := math.Abs(hist.Timestamps[0] - target)
	for i, ts := range hist.Timestamps {
		if d := math.Abs(ts - target); d < bestDiff {
			best, bestDiff = i, d
		}
	}

	hoursBack := (unixSeconds(now) - hist.Timestamps[best]) / 3600
	if hoursBack < trendMinHistory.Hours() {
		return newPressureTrend(TrendInsufficient, 0, hoursBack)
	}

	change := hist.Pressures[len(hist.Pressures)-1] - hist.Pressures[best]
	switch {
	case change >= trendThresholdHPa:
		return newPressureTrend(TrendRising, change, hoursBack)
	case change <= -trendThresholdHPa:
		return newPressureTrend(TrendFalling, change, hoursBack)
	default:
		return newPressureTrend(TrendStable, change, hoursBack)
	}
}

// loadLocked returns an empty history for a missing or unreadable file.
// Arrays of unequal length are truncated to the shortest.
func (h *PressureHistory) loadLocked() pressureFile {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return pressureFile{}
	}
	var hist pressureFile
	if err := json.Unmarshal(data, &hist); err != nil {
		h.log.Warn("ignoring unreadable pressure history", logger.Error(err))
		return pressureFile{}
	}
	n := min(len(hist.Timestamps), len(hist.Pressures))
	hist.Timestamps = hist.Timestamps[:n]
	hist.Pressures = hist.Pressures[:n]
	for len(hist.Sources) < n {
		hist.Sources = append(hist.Sources, "")
	}
	hist.Sources = hist.Sources[:n]
	return hist
}

func (h *PressureHistory) writeLocked(hist pressureFile) error {
	data, err := json.MarshalIndent(hist, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("weather").
			Category(errors.CategoryFileIO).
			Context("operation", "encode_pressure_history").
			Build()
	}
	if dir := filepath.Dir(h.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).
				Component("weather").
				Category(errors.CategoryFileIO).
				Context("operation", "create_pressure_dir").
				Build()
		}
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.New(err).
			Component("weather").
			Category(errors.CategoryFileIO).
			FileContext(tmp, int64(len(data))).
			Build()
	}
	if err := os.Rename(tmp, h.path); err != nil {
		_ = os.Remove(tmp)
		return errors.New(fmt.Errorf("commit pressure history: %w", err)).
			Component("weather").
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
