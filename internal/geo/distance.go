// Package geo holds great-circle helpers used by scoring and preference learning.
package geo

import "math"

// EarthRadiusMiles is the mean Earth radius used for every distance in this module.
const EarthRadiusMiles = 3959.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Distance returns the Haversine distance between two coordinates in miles.
// Callers must check that both coordinates are present.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// Between is Distance for two Points.
func Between(a, b Point) float64 {
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Centroid is the arithmetic mean of the points. It is adequate for the
// metro-scale spreads a single buy box covers. Returns false for no points.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var c Point
	for _, p := range points {
		c.Lat += p.Lat
		c.Lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: c.Lat / n, Lon: c.Lon / n}, true
}

// Cluster greedily groups points: each unclustered point seeds a cluster with every
// other unclustered point within radius miles of it. Order of the input decides
// which point seeds each cluster.
func Cluster(points []Point, radius float64) [][]Point {
	used := make([]bool, len(points))
	var clusters [][]Point
	for i, seed := range points {
		if used[i] {
			continue
		}
		used[i] = true
		cluster := []Point{seed}
		for j := i + 1; j < len(points); j++ {
			if used[j] {
				continue
			}
			if Between(seed, points[j]) <= radius {
				used[j] = true
				cluster = append(cluster, points[j])
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}
