package weather

import (
	"fmt"
	"time"
)

const (
	// CyclingThreshold is the rate in mm/h at and above which rain is worth a warning.
	CyclingThreshold = 0.2
	// CyclingWindow is how far ahead the analyzer looks.
	CyclingWindow = 2 * time.Hour
)

// AnalyzeCycling scans the samples valid in [now, now+2h] and reports the
// heaviest precipitation at or above CyclingThreshold. Ties keep the earliest
// onset. A sample without pmin counts as dry. ForecastTime is formatted in
// now's location.
func AnalyzeCycling(series ForecastSeries, now time.Time) CyclingWarning {
	if series.Len() == 0 {
		return CyclingWarning{Reason: "no forecast data", PrecipitationType: PrecipitationType(0)}
	}

	end := now.Add(CyclingWindow)
	var (
		inWindow int
		maxMM    float64
		onset    ForecastSample
		found    bool
	)
	for _, s := range series.samples {
		if s.ValidTime.Before(now) || s.ValidTime.After(end) {
			continue
		}
		inWindow++

		mm, _ := s.Value("pmin")
		if mm < CyclingThreshold {
			continue
		}
		// strict comparison keeps the first, i.e. earliest, maximum
		if !found || mm > maxMM {
			maxMM, onset, found = mm, s, true
		}
	}

	if inWindow == 0 {
		return CyclingWarning{Reason: "no forecast for the next two hours", PrecipitationType: PrecipitationType(0)}
	}
	if !found {
		return CyclingWarning{Reason: "no rain expected", PrecipitationType: PrecipitationType(0)}
	}

	pcat, _ := onset.Value("pcat")
	return CyclingWarning{
		Warning:           true,
		PrecipitationMM:   maxMM,
		Reason:            fmt.Sprintf("precipitation expected: %.1f mm/h", maxMM),
		OnsetTime:         onset.ValidTime.In(now.Location()),
		PrecipitationType: PrecipitationType(int(pcat)),
		Intensity:         IntensityDescription(maxMM),
		ForecastTime:      onset.ValidTime.In(now.Location()).Format("15:04"),
	}
}
