package cluster

import (
	"math"
	"sort"
)

// TimeBuckets splits a cluster by departure time: values are each
// request's minutes-to-departure, k the bucket count. Returns index groups
// ordered by ascending bucket mean, indexes inside a group keeping input
// order. Empty buckets are dropped.
//
// This is plain 1-D Lloyd k-means with centroids seeded at evenly spaced
// order statistics, which makes the outcome deterministic.
func TimeBuckets(values []float64, k int) [][]int {
	n := len(values)
	if n == 0 {
		return nil
	}
	if k <= 1 || n <= k {
		if k <= 1 {
			all := make([]int, n)
			for i := range all {
				all[i] = i
			}
			return [][]int{all}
		}
		k = n
	}

	centroids := seedCentroids(values, k)

	assign := make([]int, n)
	for iter := 0; iter < 100; iter++ {
		changed := false
		for i, v := range values {
			best := 0
			for c := 1; c < k; c++ {
				if math.Abs(v-centroids[c]) < math.Abs(v-centroids[best]) {
					best = c
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[assign[i]] += v
			counts[assign[i]]++
		}
		for c := 0; c < k; c++ {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}
		if !changed && iter > 0 {
			break
		}
	}

	return groupByCentroid(assign, centroids, k)
}

// seedCentroids places the k starting centroids at evenly spaced order
// statistics of the sorted values.
func seedCentroids(values []float64, k int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	centroids := make([]float64, k)
	for c := 0; c < k; c++ {
		pos := c * (len(sorted) - 1) / max(k-1, 1)
		centroids[c] = sorted[pos]
	}
	return centroids
}

func groupByCentroid(assign []int, centroids []float64, k int) [][]int {
	byBucket := make([][]int, k)
	for i, b := range assign {
		byBucket[b] = append(byBucket[b], i)
	}

	order := make([]int, 0, k)
	for b := 0; b < k; b++ {
		if len(byBucket[b]) > 0 {
			order = append(order, b)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return centroids[order[i]] < centroids[order[j]]
	})

	buckets := make([][]int, 0, len(order))
	for _, b := range order {
		buckets = append(buckets, byBucket[b])
	}
	return buckets
}
