// Package geo computes great-circle distances for club discovery.
package geo

import (
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMiles is the mean Earth radius used by Distance.
const EarthRadiusMiles = 3959.0

// DefaultRadiusMiles applies when the caller gives no radius.
const DefaultRadiusMiles = 50

// Distance returns the haversine distance in miles between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// Round1 rounds miles to one decimal place for display.
func Round1(miles float64) float64 {
	return math.Round(miles*10) / 10
}

// ParseRadius reads the radius query value. "all" disables the filter (ok=false);
// empty or invalid values fall back to DefaultRadiusMiles.
func ParseRadius(raw string) (miles float64, limited bool) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "all") {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultRadiusMiles, true
	}
	return float64(n), true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
