// Package stats provides the summary statistics used by the aggregators.
// All functions leave their input untouched.
package stats

import (
	"errors"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// ErrEmptyInput is returned when a statistic is undefined for the input size.
var ErrEmptyInput = errors.New("stats: not enough input values")

// NoPercentile is returned by Percentile for empty input.
const NoPercentile = -1

// Median returns the middle value, or the mean of the two middle values.
func Median(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	return mstats.Median(xs)
}

// Percentile returns the nearest-rank percentile for p in [0, 1]:
// the value at sorted index ceil(n*p)-1. Empty input yields NoPercentile.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return NoPercentile
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Mean returns the arithmetic mean.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	return mstats.Mean(xs)
}

// SampleStdDev returns the standard deviation with Bessel's correction.
// It needs at least two values.
func SampleStdDev(xs []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, ErrEmptyInput
	}
	return mstats.StandardDeviationSample(xs)
}
