// Package geo provides distance and geohash helpers for location filtering.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used by CalculateDistance.
const EarthRadiusMiles = 3958.8

// CalculateDistance returns the great-circle distance in miles between two
// points given in degrees, using the haversine formula.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
