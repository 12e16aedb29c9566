package detectors

import (
	"math"
	"sort"
)

// madScale converts a median absolute deviation into a consistent estimator
// of the standard deviation under normality.
const madScale = 1.4826

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev computes the sample standard deviation (n-1 denominator).
func stddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	v := sum2 / float64(n-1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// scaledMAD is the robust dispersion measure used across the detectors:
// the median absolute deviation around the median, scaled to estimate sigma.
func scaledMAD(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	med := median(xs)
	devs := make([]float64, len(xs))
	for i, x := range xs {
		devs[i] = math.Abs(x - med)
	}
	return madScale * median(devs)
}

// robustSigma returns scaledMAD, falling back to the sample standard
// deviation when the MAD collapses to zero (more than half the values
// identical). A zero return means the series carries no dispersion at all.
func robustSigma(xs []float64) float64 {
	if s := scaledMAD(xs); s > 0 {
		return s
	}
	return stddev(xs)
}

// quantile returns the q-th quantile (0..1) with linear interpolation
// between order statistics.
func quantile(xs []float64, q float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// normalQuantile returns the z value covering a two-sided interval at the
// given confidence level, e.g. 0.95 -> 1.96.
func normalQuantile(confidence float64) float64 {
	p := (1 + confidence) / 2
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
