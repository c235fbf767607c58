// Package cluster groups pending requests by spatial density so that one
// driver can serve several of them in a single trip.
//
// The pipeline is: scale the raw feature matrix, run a density backend
// (HDBSCAN by default, DBSCAN as the alternative), then apply the noise
// policy and optional departure-time bucketing. Each stage is its own
// function so tests can drive them in isolation.
package cluster

import "math"

// FeatureScaler normalizes a feature matrix before clustering. It is an
// interface so the test suite can swap in the identity scaler and reason
// about raw distances.
type FeatureScaler interface {
	Scale(features [][]float64) [][]float64
}

// StandardScaler shifts every column to zero mean and unit variance
// (population variance). A zero-variance column is only centered, never
// divided.
type StandardScaler struct{}

// Scale returns a standardized copy of features; the input is not touched.
func (StandardScaler) Scale(features [][]float64) [][]float64 {
	n := len(features)
	if n == 0 {
		return nil
	}
	cols := len(features[0])

	mean := make([]float64, cols)
	for _, row := range features {
		for c, v := range row {
			mean[c] += v
		}
	}
	for c := range mean {
		mean[c] /= float64(n)
	}

	std := make([]float64, cols)
	for _, row := range features {
		for c, v := range row {
			d := v - mean[c]
			std[c] += d * d
		}
	}
	for c := range std {
		std[c] = math.Sqrt(std[c] / float64(n))
		if std[c] == 0 {
			std[c] = 1
		}
	}

	scaled := make([][]float64, n)
	for i, row := range features {
		out := make([]float64, cols)
		for c, v := range row {
			out[c] = (v - mean[c]) / std[c]
		}
		scaled[i] = out
	}
	return scaled
}

// IdentityScaler passes features through untouched. Test seam.
type IdentityScaler struct{}

// Scale returns the features as-is.
func (IdentityScaler) Scale(features [][]float64) [][]float64 {
	return features
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
