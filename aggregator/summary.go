package aggregator

import (
	"math/big"
	"sort"

	"github.com/montanaflynn/stats"

	"oraclecore.dev/verifier/coreerr"
	"oraclecore.dev/verifier/decimal"
)

// Summary is the recomputed statistical snapshot over an aggregator's
// populated ring window: Result is the median, Stdev the
// population standard deviation, and the timestamp bounds track the
// extremes of the window.
type Summary struct {
	Result         float64
	Mean           float64
	Range          float64
	Stdev          float64
	MinResult      float64
	MaxResult      float64
	MinTimestampMs uint64
	MaxTimestampMs uint64
}

// computeSummary reduces the populated window to a Summary using
// montanaflynn/stats for mean/stdev/min/max, and a hand-rolled
// lower-median for even population sizes: the even-n tie is resolved
// toward the lower of the two middle order statistics rather than
// stats.Median's averaging behavior.
func computeSummary(window []Response) (Summary, error) {
	if len(window) == 0 {
		return Summary{}, coreerr.New(coreerr.EInvalidLength, "cannot summarize an empty sample window")
	}
	samples := make([]float64, len(window))
	minTs, maxTs := window[0].TimestampMs, window[0].TimestampMs
	for i, r := range window {
		samples[i] = decodeSample(r.Value)
		if r.TimestampMs < minTs {
			minTs = r.TimestampMs
		}
		if r.TimestampMs > maxTs {
			maxTs = r.TimestampMs
		}
	}
	data := stats.Float64Data(samples)

	mean, err := data.Mean()
	if err != nil {
		return Summary{}, coreerr.Newf(coreerr.EInvalidLength, "mean: %v", err)
	}
	min, err := data.Min()
	if err != nil {
		return Summary{}, coreerr.Newf(coreerr.EInvalidLength, "min: %v", err)
	}
	max, err := data.Max()
	if err != nil {
		return Summary{}, coreerr.Newf(coreerr.EInvalidLength, "max: %v", err)
	}
	stdev, err := data.StandardDeviationPopulation()
	if err != nil {
		return Summary{}, coreerr.Newf(coreerr.EInvalidLength, "stdev: %v", err)
	}

	rng := max - min
	if rng < 0 {
		rng = 0
	}

	return Summary{
		Result:         lowerMedian(samples),
		Mean:           mean,
		Range:          rng,
		Stdev:          stdev,
		MinResult:      min,
		MaxResult:      max,
		MinTimestampMs: minTs,
		MaxTimestampMs: maxTs,
	}, nil
}

// lowerMedian returns the classic median for odd-length input, and the
// lower of the two middle order statistics for even-length input.
func lowerMedian(samples []float64) float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1]
}

// decodeSample converts a 128-bit signed fixed-point value into a float64
// for statistical purposes. This is lossy by construction: Summary is a
// reporting view, never fed back into on-chain-precision arithmetic.
func decodeSample(d decimal.Decimal) float64 {
	mag := new(big.Float).SetInt(d.Value().ToBig())
	f, _ := mag.Float64()
	if d.Neg() {
		return -f
	}
	return f
}
