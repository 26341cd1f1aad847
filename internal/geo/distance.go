package geo

import (
	"math"
	"sort"

	"servicehub/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance between two points given in decimal degrees.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// rounding can push a marginally outside [0, 1]
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Between is DistanceKm for two locations.
func Between(a, b models.Location) float64 {
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Ranked pairs an item with its distance from the query origin.
type Ranked[T any] struct {
	Item       T
	DistanceKm float64
}

// Locator returns the position of an item, or false if it has none.
type Locator[T any] func(item T) (models.Location, bool)

// SortByDistance ranks every located item by ascending distance from origin.
// Items without a location are left out. Ties keep input order.
func SortByDistance[T any](items []T, origin models.Location, locate Locator[T]) []Ranked[T] {
	out := make([]Ranked[T], 0, len(items))
	for _, item := range items {
		loc, ok := locate(item)
		if !ok {
			continue
		}
		out = append(out, Ranked[T]{Item: item, DistanceKm: Between(origin, loc)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

// WithinRadius keeps items at most radiusKm from origin, sorted ascending by distance.
func WithinRadius[T any](items []T, origin models.Location, radiusKm float64, locate Locator[T]) []Ranked[T] {
	ranked := SortByDistance(items, origin, locate)
	n := sort.Search(len(ranked), func(i int) bool {
		return ranked[i].DistanceKm > radiusKm
	})
	return ranked[:n]
}
