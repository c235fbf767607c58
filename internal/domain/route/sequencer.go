// Package route orders the pickup and dropoff points of a shared trip.
//
// The tours involved are tiny (a handful of urban stops), so a greedy
// nearest-neighbor pass is used instead of an exact solver: quality is
// acceptable at this scale and the dependency surface stays flat.
package route

import (
	"ride-pool/internal/domain/geo"
)

// NearestNeighbor returns a visiting order over points that starts at
// points[0] and repeatedly hops to the closest unvisited point by
// haversine distance. Distance ties are broken by the lowest input index,
// which makes the result deterministic for identical inputs.
//
// Inputs of length two or less are already ordered and are returned as-is;
// otherwise the result is a fresh slice containing the same points.
func NearestNeighbor(points []geo.Coordinate) []geo.Coordinate {
	if len(points) <= 2 {
		return points
	}

	ordered := make([]geo.Coordinate, 0, len(points))
	visited := make([]bool, len(points))

	current := 0
	visited[0] = true
	ordered = append(ordered, points[0])

	for len(ordered) < len(points) {
		next := -1
		best := 0.0
		for i, p := range points {
			if visited[i] {
				continue
			}
			d := geo.HaversineKM(points[current], p)
			if next == -1 || d < best {
				next, best = i, d
			}
		}
		visited[next] = true
		ordered = append(ordered, points[next])
		current = next
	}

	return ordered
}
