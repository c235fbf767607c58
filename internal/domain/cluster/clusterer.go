package cluster

import (
	"errors"
	"fmt"
	"sort"
)

// Backend names accepted by the configuration.
const (
	BackendHDBSCAN = "hdbscan"
	BackendDBSCAN  = "dbscan"
)

var ErrUnknownBackend = errors.New("unknown clustering backend")

// Params carries the clustering knobs from the configuration.
type Params struct {
	Backend        string
	MinClusterSize int
	Eps            float64
	MinSamples     int
}

// Clusterer runs the scale-then-cluster pipeline over feature matrices.
type Clusterer struct {
	scaler  FeatureScaler
	backend string
	hdbscan HDBSCAN
	dbscan  DBSCAN
}

// New builds a Clusterer from params, using the standard scaler. The
// backend name must be one of the Backend constants.
func New(params Params, scaler FeatureScaler) (*Clusterer, error) {
	if scaler == nil {
		scaler = StandardScaler{}
	}
	switch params.Backend {
	case BackendHDBSCAN, BackendDBSCAN:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, params.Backend)
	}
	return &Clusterer{
		scaler:  scaler,
		backend: params.Backend,
		hdbscan: HDBSCAN{MinClusterSize: params.MinClusterSize},
		dbscan:  DBSCAN{Eps: params.Eps, MinSamples: params.MinSamples},
	}, nil
}

// Backend reports the configured backend name.
func (c *Clusterer) Backend() string {
	return c.backend
}

// Labels scales features and runs the configured backend. One label per
// input row, Noise (-1) for unclustered points.
func (c *Clusterer) Labels(features [][]float64) []int {
	if len(features) == 0 {
		return nil
	}
	scaled := c.scaler.Scale(features)
	if c.backend == BackendDBSCAN {
		return c.dbscan.Labels(scaled)
	}
	return c.hdbscan.Labels(scaled)
}

// Groups splits labels into clusters and noise. Clusters come back in
// ascending label order, each holding input indexes in input order; noise
// holds the Noise-labeled indexes in input order.
func Groups(labels []int) (clusters [][]int, noise []int) {
	byLabel := make(map[int][]int)
	for i, label := range labels {
		if label == Noise {
			noise = append(noise, i)
			continue
		}
		byLabel[label] = append(byLabel[label], i)
	}

	order := make([]int, 0, len(byLabel))
	for label := range byLabel {
		order = append(order, label)
	}
	sort.Ints(order)

	for _, label := range order {
		clusters = append(clusters, byLabel[label])
	}
	return clusters, noise
}
