package cluster

import (
	"math"
	"math/rand"
	"testing"
)

// twoBlobs returns 2*size points: a tight blob near the origin and a tight
// blob near (10,10), in interleaved input order.
func twoBlobs(size int, spread float64) [][]float64 {
	rng := rand.New(rand.NewSource(7))
	features := make([][]float64, 0, 2*size)
	for i := 0; i < size; i++ {
		features = append(features, []float64{
			rng.Float64() * spread,
			rng.Float64() * spread,
		})
		features = append(features, []float64{
			10 + rng.Float64()*spread,
			10 + rng.Float64()*spread,
		})
	}
	return features
}

func TestStandardScaler(t *testing.T) {
	features := [][]float64{
		{1, 100},
		{2, 200},
		{3, 300},
	}
	scaled := StandardScaler{}.Scale(features)

	for c := 0; c < 2; c++ {
		var mean float64
		for _, row := range scaled {
			mean += row[c]
		}
		mean /= float64(len(scaled))
		if math.Abs(mean) > 1e-9 {
			t.Errorf("column %d mean = %v, want 0", c, mean)
		}

		var variance float64
		for _, row := range scaled {
			variance += row[c] * row[c]
		}
		variance /= float64(len(scaled))
		if math.Abs(variance-1) > 1e-9 {
			t.Errorf("column %d variance = %v, want 1", c, variance)
		}
	}

	// input untouched
	if features[0][0] != 1 || features[2][1] != 300 {
		t.Error("Scale mutated its input")
	}
}

func TestStandardScalerZeroVariance(t *testing.T) {
	features := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	scaled := StandardScaler{}.Scale(features)
	for i, row := range scaled {
		if row[0] != 0 {
			t.Errorf("row %d constant column = %v, want centered 0", i, row[0])
		}
	}
}

func TestDBSCANTwoBlobs(t *testing.T) {
	features := twoBlobs(5, 0.5)
	labels := DBSCAN{Eps: 1.0, MinSamples: 3}.Labels(features)

	// even indexes are blob A, odd are blob B
	for i := 2; i < len(labels); i += 2 {
		if labels[i] != labels[0] {
			t.Errorf("point %d label = %d, want same cluster as point 0 (%d)", i, labels[i], labels[0])
		}
	}
	for i := 3; i < len(labels); i += 2 {
		if labels[i] != labels[1] {
			t.Errorf("point %d label = %d, want same cluster as point 1 (%d)", i, labels[i], labels[1])
		}
	}
	if labels[0] == labels[1] {
		t.Error("the two blobs collapsed into one cluster")
	}
	if labels[0] == Noise || labels[1] == Noise {
		t.Errorf("dense blobs labeled noise: %v", labels)
	}
}

func TestDBSCANNoise(t *testing.T) {
	features := twoBlobs(4, 0.3)
	features = append(features, []float64{100, -100}) // far outlier

	labels := DBSCAN{Eps: 1.0, MinSamples: 3}.Labels(features)
	if last := labels[len(labels)-1]; last != Noise {
		t.Errorf("outlier label = %d, want Noise", last)
	}
}

func TestDBSCANDeterministic(t *testing.T) {
	features := twoBlobs(6, 0.4)
	d := DBSCAN{Eps: 0.8, MinSamples: 3}
	first := d.Labels(features)
	second := d.Labels(features)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("labels differ between runs at %d: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestHDBSCANTwoTriples(t *testing.T) {
	// two tight triples far apart: the hierarchy's only real split is the
	// bridge between them, so each triple must come back as one cluster
	features := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
	labels := HDBSCAN{MinClusterSize: 3}.Labels(features)

	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("first triple split: %v", labels[:3])
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Errorf("second triple split: %v", labels[3:])
	}
	if labels[0] == labels[3] {
		t.Errorf("triples collapsed into one cluster: %v", labels)
	}
	if labels[0] == Noise || labels[3] == Noise {
		t.Errorf("dense triples labeled noise: %v", labels)
	}
}

func TestHDBSCANBlobsNeverMix(t *testing.T) {
	features := twoBlobs(6, 0.5)
	labels := HDBSCAN{MinClusterSize: 3}.Labels(features)

	// even indexes belong to blob A, odd to blob B; no label may span both
	seenA := make(map[int]bool)
	seenB := make(map[int]bool)
	countA, countB := 0, 0
	for i, label := range labels {
		if label == Noise {
			continue
		}
		if i%2 == 0 {
			seenA[label] = true
			countA++
		} else {
			seenB[label] = true
			countB++
		}
	}
	for label := range seenA {
		if seenB[label] {
			t.Errorf("label %d spans both blobs", label)
		}
	}
	// a selected cluster carries at least min_cluster_size points
	if countA < 3 || countB < 3 {
		t.Errorf("clustered point counts = %d/%d, want at least 3 per blob", countA, countB)
	}
}

func TestHDBSCANTooFewPoints(t *testing.T) {
	features := [][]float64{{0, 0}, {0.1, 0.1}}
	labels := HDBSCAN{MinClusterSize: 3}.Labels(features)
	for i, label := range labels {
		if label != Noise {
			t.Errorf("point %d label = %d, want Noise below min cluster size", i, label)
		}
	}
}

func TestHDBSCANOutlierStaysNoise(t *testing.T) {
	features := twoBlobs(6, 0.4)
	features = append(features, []float64{50, 50})

	labels := HDBSCAN{MinClusterSize: 4}.Labels(features)
	if last := labels[len(labels)-1]; last != Noise {
		t.Errorf("outlier label = %d, want Noise", last)
	}
}

func TestTimeBuckets(t *testing.T) {
	// two departure waves: around 10 minutes and around 60 minutes out
	values := []float64{9, 61, 11, 58, 10, 60}
	buckets := TimeBuckets(values, 2)

	if len(buckets) != 2 {
		t.Fatalf("bucket count = %d, want 2", len(buckets))
	}
	// buckets ordered by ascending mean: near wave first
	near, far := buckets[0], buckets[1]
	for _, i := range near {
		if values[i] > 30 {
			t.Errorf("near bucket holds value %v", values[i])
		}
	}
	for _, i := range far {
		if values[i] < 30 {
			t.Errorf("far bucket holds value %v", values[i])
		}
	}
}

func TestTimeBucketsSingle(t *testing.T) {
	buckets := TimeBuckets([]float64{5, 6, 7}, 1)
	if len(buckets) != 1 || len(buckets[0]) != 3 {
		t.Fatalf("k=1 should return one bucket with everything, got %v", buckets)
	}
}

func TestGroups(t *testing.T) {
	labels := []int{1, Noise, 0, 1, Noise, 0, 2}
	clusters, noise := Groups(labels)

	if len(clusters) != 3 {
		t.Fatalf("cluster count = %d, want 3", len(clusters))
	}
	// ascending label order with stable member order
	if clusters[0][0] != 2 || clusters[0][1] != 5 {
		t.Errorf("cluster 0 = %v, want [2 5]", clusters[0])
	}
	if clusters[1][0] != 0 || clusters[1][1] != 3 {
		t.Errorf("cluster 1 = %v, want [0 3]", clusters[1])
	}
	if clusters[2][0] != 6 {
		t.Errorf("cluster 2 = %v, want [6]", clusters[2])
	}
	if len(noise) != 2 || noise[0] != 1 || noise[1] != 4 {
		t.Errorf("noise = %v, want [1 4]", noise)
	}
}

func TestClustererUnknownBackend(t *testing.T) {
	if _, err := New(Params{Backend: "kmedoids"}, nil); err == nil {
		t.Fatal("unknown backend accepted")
	}
}

func TestClustererIdentityScalerSeam(t *testing.T) {
	// with the identity scaler, raw eps distances apply directly
	features := [][]float64{{0, 0}, {0.05, 0}, {0, 0.05}, {5, 5}}
	c, err := New(Params{Backend: BackendDBSCAN, Eps: 0.1, MinSamples: 3}, IdentityScaler{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	labels := c.Labels(features)
	if labels[0] == Noise || labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("tight triple should cluster: %v", labels)
	}
	if labels[3] != Noise {
		t.Errorf("distant point label = %d, want Noise", labels[3])
	}
}
