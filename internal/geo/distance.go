// Package geo estimates great-circle distances between institutions and a user.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm returns the haversine distance in kilometers. Inputs are degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	s1, s2 := math.Sin(dLat/2), math.Sin(dLon/2)
	a := s1*s1 + math.Cos(radians(lat1))*math.Cos(radians(lat2))*s2*s2
	// rounding can push a just past 1 for antipodal points
	a = math.Max(0, math.Min(1, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Between reports false when either point is missing.
func Between(a, b *Point) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng), true
}

// Format renders meters below one kilometer, otherwise kilometers with one decimal.
func Format(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int64(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1fkm", km)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
