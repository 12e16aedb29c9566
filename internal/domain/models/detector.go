package models

// DetectorID identifies one detector signal stream in consolidated output.
// The univariate decomposer contributes one stream per indicator.
type DetectorID string

const (
	DetectorMultivariate DetectorID = "multivariate"
	DetectorForecast     DetectorID = "forecast"
)

// UnivariateDetector returns the stream id for one indicator's residual
// detector, e.g. "univariate:gdp".
func UnivariateDetector(name Indicator) DetectorID {
	return DetectorID("univariate:" + string(name))
}

// DetectorOrder returns every stream id in canonical order. Contributing
// detector lists are always emitted in this order so re-runs are
// bit-identical.
func DetectorOrder() []DetectorID {
	order := []DetectorID{DetectorMultivariate}
	for _, name := range Indicators() {
		order = append(order, UnivariateDetector(name))
	}
	return append(order, DetectorForecast)
}

// Verdict is a detector's per-period judgment. NotEvaluated is a distinct
// third state for periods a detector could not judge (insufficient history,
// fit failure); it is never collapsed into "normal".
type Verdict string

const (
	VerdictNormal       Verdict = "normal"
	VerdictAnomalous    Verdict = "anomalous"
	VerdictNotEvaluated Verdict = "not_evaluated"
)

// Definite reports whether the verdict carries an actual judgment.
func (v Verdict) Definite() bool { return v == VerdictNormal || v == VerdictAnomalous }

// DetectorOutput is one detector's raw judgment for one period. Indicator is
// empty for the multivariate detector (it judges the whole period), set per
// indicator for the univariate decomposer, and fixed to the lead indicator
// for the forecast detector.
type DetectorOutput struct {
	Period    Period             `json:"period"`
	Indicator Indicator          `json:"indicator,omitempty"`
	Score     float64            `json:"score"`
	Verdict   Verdict            `json:"verdict"`
	Detail    map[string]float64 `json:"detail,omitempty"`
}
