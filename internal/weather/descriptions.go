package weather

import "fmt"

var symbolDescriptions = map[int]string{
	1:  "Clear",
	2:  "Mostly clear",
	3:  "Variable cloudiness",
	4:  "Partly cloudy",
	5:  "Cloudy",
	6:  "Overcast",
	7:  "Fog",
	8:  "Light rain showers",
	9:  "Moderate rain showers",
	10: "Heavy rain showers",
	11: "Thunderstorm",
	12: "Light sleet showers",
	13: "Moderate sleet showers",
	14: "Heavy sleet showers",
	15: "Light snow showers",
	16: "Moderate snow showers",
	17: "Heavy snow showers",
	18: "Light rain",
	19: "Moderate rain",
	20: "Heavy rain",
	21: "Thunder",
	22: "Light sleet",
	23: "Moderate sleet",
	24: "Heavy sleet",
	25: "Light snowfall",
	26: "Moderate snowfall",
	27: "Heavy snowfall",
}

// Description returns the text for an SMHI Wsymb2 code.
func Description(symbol int) string {
	if d, ok := symbolDescriptions[symbol]; ok {
		return d
	}
	return "Unknown weather"
}

// rainSymbols are the codes that claim it is raining right now.
var rainSymbols = map[int]bool{
	8: true, 9: true, 10: true,
	18: true, 19: true, 20: true, 21: true, 22: true, 23: true, 24: true,
}

// SyncedDescription rewrites a rain description to "... expected" when the
// observation station measured no precipitation during the last hour.
func SyncedDescription(symbol int, observedMM float64) string {
	desc := Description(symbol)
	if !rainSymbols[symbol] || observedMM != 0 {
		return desc
	}
	if symbol == 21 {
		return "Thunder expected"
	}
	return desc + " expected"
}

var precipitationTypes = map[int]string{
	0: "None",
	1: "Snow",
	2: "Sleet",
	3: "Rain",
	4: "Hail",
	5: "Hail and rain",
	6: "Hail and snow",
}

// PrecipitationType maps an SMHI pcat code to text.
func PrecipitationType(pcat int) string {
	if t, ok := precipitationTypes[pcat]; ok {
		return t
	}
	return fmt.Sprintf("Unknown type (%d)", pcat)
}

// IntensityDescription buckets a precipitation rate in mm/h. Boundary values
// belong to the upper bucket.
func IntensityDescription(mmPerHour float64) string {
	switch {
	case mmPerHour < 0.1:
		return "none"
	case mmPerHour < 0.5:
		return "light drizzle"
	case mmPerHour < 1.0:
		return "light"
	case mmPerHour < 2.5:
		return "moderate"
	case mmPerHour < 10.0:
		return "heavy"
	default:
		return "very heavy"
	}
}
