package weather

import "math"

// Upper bounds in m/s of Beaufort forces 0 to 11. Anything above is 12.
var beaufortLimits = [...]float64{0.2, 1.5, 3.3, 5.4, 7.9, 10.7, 13.8, 17.1, 20.7, 24.4, 28.4, 32.6}

var beaufortNames = [...]string{
	"Calm",
	"Light air",
	"Light breeze",
	"Gentle breeze",
	"Moderate breeze",
	"Fresh breeze",
	"Strong breeze",
	"Near gale",
	"Gale",
	"Strong gale",
	"Storm",
	"Violent storm",
	"Hurricane",
}

// Beaufort returns the Beaufort force for a wind speed in m/s.
func Beaufort(speed float64) int {
	for force, limit := range beaufortLimits {
		if speed < limit {
			return force
		}
	}
	return len(beaufortLimits)
}

// BeaufortDescription names the Beaufort force of speed.
func BeaufortDescription(speed float64) string {
	return beaufortNames[Beaufort(speed)]
}

var compassPoints = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassDirection returns the 16-point compass abbreviation of a bearing in
// degrees. Each point covers a 22.5 degree sector centred on it.
func CompassDirection(degrees float64) string {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return compassPoints[0]
	}
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	idx := int((d+11.25)/22.5) % len(compassPoints)
	return compassPoints[idx]
}
