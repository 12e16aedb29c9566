package detectors

import (
	"context"
	"fmt"
	"math"

	"MacroPulse/internal/domain/models"
	domsvc "MacroPulse/internal/domain/service"
)

// seasonalPeriod is the number of periods in one seasonal cycle.
// The index is quarterly, so one cycle is a calendar year.
const seasonalPeriod = 4

// minSeasonalStrength is the share of detrended variance the seasonal
// component must explain before it is kept. Below it the series is treated
// as non-seasonal and decomposed into trend/residual only.
const minSeasonalStrength = 0.1

// DecomposerConfig configures the per-series residual detector.
type DecomposerConfig struct {
	// FlagThresholdK flags periods whose residual magnitude exceeds K
	// robust dispersion units.
	FlagThresholdK float64
	// MinSeasonalCycles is the minimum series length in seasonal cycles.
	MinSeasonalCycles int
}

// Decomposer separates each indicator independently into trend, seasonal and
// residual components and flags periods whose residual deviates by more than
// K scaled-MAD units from the residual median.
type Decomposer struct {
	cfg DecomposerConfig
}

func NewDecomposer(cfg DecomposerConfig) *Decomposer {
	return &Decomposer{cfg: cfg}
}

// ID returns the detector family id; individual output streams are keyed
// per indicator by the consolidator.
func (d *Decomposer) ID() models.DetectorID { return models.DetectorID("univariate") }

func (d *Decomposer) Evaluate(_ context.Context, table *models.IndicatorTable) ([]models.DetectorOutput, error) {
	minLen := d.cfg.MinSeasonalCycles * seasonalPeriod
	out := make([]models.DetectorOutput, 0, table.Len()*len(models.Indicators()))

	for _, name := range models.Indicators() {
		col := table.Column(name)
		if len(col) < minLen {
			return nil, &DecompositionError{
				Indicator: name,
				Reason:    fmt.Sprintf("series shorter than %d seasonal cycles", d.cfg.MinSeasonalCycles),
			}
		}
		for _, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &DecompositionError{Indicator: name, Reason: "non-finite value after alignment"}
			}
		}

		residual := decompose(col, table.Periods)
		med := median(residual)
		sigma := robustSigma(residual)

		for i, p := range table.Periods {
			score := 0.0
			if sigma > 0 {
				score = math.Abs(residual[i]-med) / sigma
			}
			verdict := models.VerdictNormal
			if score > d.cfg.FlagThresholdK {
				verdict = models.VerdictAnomalous
			}
			out = append(out, models.DetectorOutput{
				Period:    p,
				Indicator: name,
				Score:     score,
				Verdict:   verdict,
				Detail:    map[string]float64{"residual": residual[i], "sigma": sigma},
			})
		}
	}
	return out, nil
}

// decompose returns the residual after removing a centered moving-average
// trend and, when strong enough, quarter-of-year seasonal means.
func decompose(col []float64, periods []models.Period) []float64 {
	trend := movingAverageTrend(col)

	detrended := make([]float64, len(col))
	for i := range col {
		detrended[i] = col[i] - trend[i]
	}

	seasonal := seasonalMeans(detrended, periods)
	residual := make([]float64, len(col))
	for i := range col {
		residual[i] = detrended[i] - seasonal[i]
	}

	// Keep the seasonal component only when it actually explains variance;
	// otherwise degrade to trend/residual.
	if seasonalStrength(detrended, residual) < minSeasonalStrength {
		return detrended
	}
	return residual
}

// movingAverageTrend computes the classic centered 2x4 moving average used
// for quarterly decomposition; half-window edges hold the nearest estimate.
func movingAverageTrend(col []float64) []float64 {
	n := len(col)
	trend := make([]float64, n)
	half := seasonalPeriod / 2
	for i := half; i < n-half; i++ {
		sum := 0.5*col[i-half] + 0.5*col[i+half]
		for j := i - half + 1; j <= i+half-1; j++ {
			sum += col[j]
		}
		trend[i] = sum / seasonalPeriod
	}
	for i := 0; i < half; i++ {
		trend[i] = trend[half]
	}
	for i := n - half; i < n; i++ {
		trend[i] = trend[n-half-1]
	}
	return trend
}

// seasonalMeans averages the detrended values by quarter position and
// centers the four means to sum to zero.
func seasonalMeans(detrended []float64, periods []models.Period) []float64 {
	sums := [seasonalPeriod + 1]float64{}
	counts := [seasonalPeriod + 1]int{}
	for i, p := range periods {
		sums[p.Quarter] += detrended[i]
		counts[p.Quarter]++
	}
	means := [seasonalPeriod + 1]float64{}
	total := 0.0
	used := 0
	for q := 1; q <= seasonalPeriod; q++ {
		if counts[q] > 0 {
			means[q] = sums[q] / float64(counts[q])
			total += means[q]
			used++
		}
	}
	if used > 0 {
		center := total / float64(used)
		for q := 1; q <= seasonalPeriod; q++ {
			means[q] -= center
		}
	}
	out := make([]float64, len(periods))
	for i, p := range periods {
		out[i] = means[p.Quarter]
	}
	return out
}

// seasonalStrength is the share of detrended variance removed by the
// seasonal component, clamped to [0,1].
func seasonalStrength(detrended, residual []float64) float64 {
	vd := variance(detrended)
	if vd == 0 {
		return 0
	}
	s := 1 - variance(residual)/vd
	if s < 0 {
		return 0
	}
	return s
}

func variance(xs []float64) float64 {
	s := stddev(xs)
	return s * s
}

var _ domsvc.Detector = (*Decomposer)(nil)
