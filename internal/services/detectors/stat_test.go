package detectors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMedian(t *testing.T) {
	require.Equal(t, 2.0, median([]float64{3, 1, 2}))
	require.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
	require.Equal(t, 0.0, median(nil))
}

func TestScaledMAD(t *testing.T) {
	// symmetric around 3, MAD = 1
	got := scaledMAD([]float64{1, 2, 3, 4, 5})
	require.InDelta(t, madScale, got, 1e-12)

	require.Equal(t, 0.0, scaledMAD([]float64{7, 7, 7, 7}))
}

func TestRobustSigmaFallsBackToStddev(t *testing.T) {
	// more than half identical: MAD is zero, stddev is not
	xs := []float64{5, 5, 5, 5, 5, 5, 10}
	require.Equal(t, 0.0, scaledMAD(xs))
	require.Greater(t, robustSigma(xs), 0.0)

	// fully constant: no dispersion at all
	require.Equal(t, 0.0, robustSigma([]float64{2, 2, 2, 2}))
}

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	require.Equal(t, 1.0, quantile(xs, 0))
	require.Equal(t, 5.0, quantile(xs, 1))
	require.Equal(t, 3.0, quantile(xs, 0.5))
	require.InDelta(t, 4.6, quantile(xs, 0.9), 1e-12)
}

func TestNormalQuantile(t *testing.T) {
	require.InDelta(t, 1.959964, normalQuantile(0.95), 1e-4)
	require.InDelta(t, 1.644854, normalQuantile(0.90), 1e-4)
}

func TestStddev(t *testing.T) {
	require.InDelta(t, 1.0, stddev([]float64{1, 2, 3}), 1e-12)
	require.Equal(t, 0.0, stddev([]float64{1}))
	require.False(t, math.IsNaN(stddev(nil)))
}
