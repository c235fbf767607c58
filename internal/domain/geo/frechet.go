package geo

import "math"

// RouteSimilarityKM is the discrete Fréchet distance between two polylines
// with haversine as the point metric. Intuitively: the shortest leash that
// lets two walkers traverse their respective routes front-to-back without
// backtracking. Small values mean the routes shadow each other closely.
//
// Either polyline being empty yields +Inf (no meaningful similarity).
func RouteSimilarityKM(p, q []Coordinate) float64 {
	n, m := len(p), len(q)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	// Dynamic program over the coupling table. Row-by-row keeps memory at
	// O(m) since only the previous row is ever consulted.
	prev := make([]float64, m)
	curr := make([]float64, m)

	prev[0] = HaversineKM(p[0], q[0])
	for j := 1; j < m; j++ {
		prev[j] = math.Max(prev[j-1], HaversineKM(p[0], q[j]))
	}

	for i := 1; i < n; i++ {
		curr[0] = math.Max(prev[0], HaversineKM(p[i], q[0]))
		for j := 1; j < m; j++ {
			reach := math.Min(prev[j], math.Min(prev[j-1], curr[j-1]))
			curr[j] = math.Max(reach, HaversineKM(p[i], q[j]))
		}
		prev, curr = curr, prev
	}

	return prev[m-1]
}
