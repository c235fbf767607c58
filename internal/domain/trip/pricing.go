package trip

import (
	"math"
	"time"
)

// DefaultPricePerSeat is the flat fare used when dynamic pricing is off.
const DefaultPricePerSeat = 25.0

// PricePerSeat computes the per-seat fare for a cluster of clusterSize
// requests departing around `at`. With dynamic pricing disabled it is the
// configured base fare. With it enabled, fare scales with cluster size and
// a peak/off-peak factor: round2(50 * size/10 * (1.2 peak | 0.9 off)).
func PricePerSeat(clusterSize int, at time.Time, dynamic bool, base float64) float64 {
	if !dynamic {
		return base
	}
	factor := 0.9
	if PeakHour(at) {
		factor = 1.2
	}
	return round2(50 * (float64(clusterSize) / 10) * factor)
}

// PeakHour reports whether the local hour falls in the morning [7,9] or
// evening [17,19] rush windows, bounds inclusive.
func PeakHour(at time.Time) bool {
	h := at.Hour()
	return (h >= 7 && h <= 9) || (h >= 17 && h <= 19)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
