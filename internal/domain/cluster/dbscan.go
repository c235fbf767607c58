package cluster

// Noise is the label assigned to points no cluster claims.
const Noise = -1

// DBSCAN is the classic density backend: a point with at least MinSamples
// neighbors (itself included) within Eps is a core point, core points chain
// into clusters, border points join the first cluster that reaches them,
// and everything else is labeled Noise.
//
// Distances are euclidean over the scaled feature space, so Eps is in
// standard deviations, not kilometers.
type DBSCAN struct {
	Eps        float64
	MinSamples int
}

// Labels assigns a cluster label to every row of features. Labels start at
// 0 and are dense; Noise (-1) marks unclaimed points. Iteration follows
// input order, which makes the labeling deterministic for identical input.
func (d DBSCAN) Labels(features [][]float64) []int {
	n := len(features)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	visited := make([]bool, n)

	next := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := d.regionQuery(features, i)
		if len(neighbors) < d.MinSamples {
			continue // not a core point; stays Noise unless a cluster reaches it
		}

		labels[i] = next
		d.expand(features, neighbors, next, labels, visited)
		next++
	}
	return labels
}

// expand grows cluster `id` from a seed neighborhood, breadth-first.
func (d DBSCAN) expand(features [][]float64, seeds []int, id int, labels []int, visited []bool) {
	for cursor := 0; cursor < len(seeds); cursor++ {
		j := seeds[cursor]

		if labels[j] == Noise {
			labels[j] = id // border or core point claimed by this cluster
		}
		if visited[j] {
			continue
		}
		visited[j] = true

		neighbors := d.regionQuery(features, j)
		if len(neighbors) >= d.MinSamples {
			seeds = append(seeds, neighbors...)
		}
	}
}

// regionQuery returns the indexes within Eps of point i, i itself included.
func (d DBSCAN) regionQuery(features [][]float64, i int) []int {
	var neighbors []int
	for j := range features {
		if euclidean(features[i], features[j]) <= d.Eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
