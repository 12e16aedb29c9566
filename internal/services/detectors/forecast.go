package detectors

import (
	"context"
	"math"

	"MacroPulse/internal/domain/models"
	domsvc "MacroPulse/internal/domain/service"
	applogger "MacroPulse/pkg/logger"
)

// ForecastConfig configures the forecast deviation detector on the lead
// indicator.
type ForecastConfig struct {
	// ConfidenceLevel is the two-sided interval coverage, e.g. 0.95.
	ConfidenceLevel float64
	// MinHistory is the minimum number of strictly prior periods before a
	// period can be evaluated at all; below it the period is not_evaluated.
	MinHistory int
	// MinSeasonalCycles gates the full trend+seasonality model; with less
	// history the detector degrades to a robust level forecast.
	MinSeasonalCycles int
}

// ForecastDeviation evaluates the lead indicator walk-forward: for each
// period it fits on all strictly prior periods (no leakage), produces a
// point forecast with a two-sided interval, and flags observations outside
// it. Early periods without enough history are a distinct not_evaluated
// state, not a boolean default.
type ForecastDeviation struct {
	cfg ForecastConfig
	z   float64
	l   *applogger.Logger
}

func NewForecastDeviation(cfg ForecastConfig) *ForecastDeviation {
	return &ForecastDeviation{cfg: cfg, z: normalQuantile(cfg.ConfidenceLevel)}
}

// SetLogger injects a structured logger for per-period fit failures.
func (d *ForecastDeviation) SetLogger(l *applogger.Logger) { d.l = l }

func (d *ForecastDeviation) ID() models.DetectorID { return models.DetectorForecast }

func (d *ForecastDeviation) Evaluate(_ context.Context, table *models.IndicatorTable) ([]models.DetectorOutput, error) {
	col := table.Column(models.LeadIndicator)
	fullModelAt := d.cfg.MinSeasonalCycles * seasonalPeriod

	out := make([]models.DetectorOutput, 0, table.Len())
	for i, p := range table.Periods {
		if i < d.cfg.MinHistory {
			out = append(out, models.DetectorOutput{
				Period:    p,
				Indicator: models.LeadIndicator,
				Verdict:   models.VerdictNotEvaluated,
			})
			continue
		}

		history := col[:i]
		var yhat, halfWidth float64
		var err error
		if i >= fullModelAt {
			yhat, halfWidth, err = d.seasonalTrendForecast(history, table.Periods[:i+1])
		} else {
			yhat = median(history)
			halfWidth = d.z * scaledMAD(history)
		}
		if err != nil {
			// ForecastFitError: the period stays not_evaluated.
			if d.l != nil {
				d.l.Warn("forecast fit failed", applogger.String("period", p.String()), applogger.Error(err))
			}
			out = append(out, models.DetectorOutput{
				Period:    p,
				Indicator: models.LeadIndicator,
				Verdict:   models.VerdictNotEvaluated,
			})
			continue
		}

		obs := col[i]
		dev := math.Abs(obs - yhat)
		score := dev
		if halfWidth > 0 {
			score = dev / halfWidth
		}
		verdict := models.VerdictNormal
		if dev > halfWidth && dev > 1e-9 {
			verdict = models.VerdictAnomalous
		}
		out = append(out, models.DetectorOutput{
			Period:    p,
			Indicator: models.LeadIndicator,
			Score:     score,
			Verdict:   verdict,
			Detail: map[string]float64{
				"forecast": yhat,
				"lower":    yhat - halfWidth,
				"upper":    yhat + halfWidth,
			},
		})
	}
	return out, nil
}

// seasonalTrendForecast fits y ~ intercept + linear trend + quarter dummies
// by least squares on the history and forecasts the next period. The
// interval half-width comes from the in-sample residual spread.
func (d *ForecastDeviation) seasonalTrendForecast(history []float64, periods []models.Period) (float64, float64, error) {
	n := len(history)
	rows := make([][]float64, n)
	for t := 0; t < n; t++ {
		rows[t] = regressorRow(t, periods[t].Quarter)
	}

	coeffs, err := leastSquares(rows, history)
	if err != nil {
		return 0, 0, &ForecastFitError{Period: periods[n], Reason: err.Error()}
	}

	// in-sample one-step residual spread
	sum2 := 0.0
	for t := 0; t < n; t++ {
		r := history[t] - dot(rows[t], coeffs)
		sum2 += r * r
	}
	dof := n - len(coeffs)
	if dof < 1 {
		dof = 1
	}
	sigma := math.Sqrt(sum2 / float64(dof))

	yhat := dot(regressorRow(n, periods[n].Quarter), coeffs)
	halfWidth := d.z * sigma * math.Sqrt(1+1/float64(n))
	return yhat, halfWidth, nil
}

func regressorRow(t, quarter int) []float64 {
	row := []float64{1, float64(t), 0, 0, 0}
	if quarter >= 2 {
		row[quarter] = 1
	}
	return row
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// leastSquares solves min ||Xb - y|| via the normal equations with
// partial-pivot Gaussian elimination.
func leastSquares(x [][]float64, y []float64) ([]float64, error) {
	p := len(x[0])
	xtx := make([][]float64, p)
	xty := make([]float64, p)
	for i := 0; i < p; i++ {
		xtx[i] = make([]float64, p)
	}
	for t := range x {
		for i := 0; i < p; i++ {
			xty[i] += x[t][i] * y[t]
			for j := 0; j < p; j++ {
				xtx[i][j] += x[t][i] * x[t][j]
			}
		}
	}
	return solveLinear(xtx, xty)
}

func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errSingular
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	out := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * out[c]
		}
		out[r] = sum / a[r][r]
	}
	return out, nil
}

var errSingular = &fitError{"normal equations are singular"}

type fitError struct{ msg string }

func (e *fitError) Error() string { return e.msg }

var _ domsvc.Detector = (*ForecastDeviation)(nil)
