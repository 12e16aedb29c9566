package detectors

import (
	"context"
	"math"

	"MacroPulse/internal/domain/models"
	domsvc "MacroPulse/internal/domain/service"
)

// MultivariateConfig configures the joint outlier detector.
type MultivariateConfig struct {
	// Contamination is the expected fraction of anomalous periods; the
	// detector flags the most extreme Contamination share by score.
	Contamination float64
	// MinPeriods is the minimum number of samples for a stable estimate.
	MinPeriods int
}

// Multivariate scores how unusual the joint relationship among all indicator
// columns is at each period. Each column is standardized robustly (median
// and scaled MAD), and the period score is the root mean square of the
// per-indicator z values, so a single-series z of 3 and a broad systemic
// shift land on the same scale.
type Multivariate struct {
	cfg MultivariateConfig
}

func NewMultivariate(cfg MultivariateConfig) *Multivariate {
	return &Multivariate{cfg: cfg}
}

func (d *Multivariate) ID() models.DetectorID { return models.DetectorMultivariate }

func (d *Multivariate) Evaluate(_ context.Context, table *models.IndicatorTable) ([]models.DetectorOutput, error) {
	n := table.Len()
	if n < d.cfg.MinPeriods {
		return nil, &InsufficientDataError{Required: d.cfg.MinPeriods, Got: n}
	}

	indicators := models.Indicators()
	scores := make([]float64, n)
	for _, name := range indicators {
		col := table.Column(name)
		center := median(col)
		sigma := robustSigma(col)
		if sigma == 0 {
			// constant column carries no joint information
			continue
		}
		for i, v := range col {
			z := (v - center) / sigma
			scores[i] += z * z
		}
	}
	for i := range scores {
		scores[i] = math.Sqrt(scores[i] / float64(len(indicators)))
	}

	// Rank-based flagging: the top Contamination share by score, but never
	// the degenerate case where every period scores identically.
	cutoff := quantile(scores, 1-d.cfg.Contamination)
	minScore := scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
	}

	out := make([]models.DetectorOutput, 0, n)
	for i, p := range table.Periods {
		verdict := models.VerdictNormal
		if d.cfg.Contamination > 0 && scores[i] >= cutoff && scores[i] > minScore {
			verdict = models.VerdictAnomalous
		}
		out = append(out, models.DetectorOutput{
			Period:  p,
			Score:   scores[i],
			Verdict: verdict,
			Detail:  map[string]float64{"cutoff": cutoff},
		})
	}
	return out, nil
}

var _ domsvc.Detector = (*Multivariate)(nil)
