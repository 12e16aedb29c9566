package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"MacroPulse/internal/domain/models"
)

func quarters(start models.Period, n int) []models.Period {
	out := make([]models.Period, 0, n)
	p := start
	for i := 0; i < n; i++ {
		out = append(out, p)
		p = p.Next()
	}
	return out
}

func stream(periods []models.Period, scores []float64, flagged map[int]bool) []models.DetectorOutput {
	outs := make([]models.DetectorOutput, 0, len(periods))
	for i, p := range periods {
		v := models.VerdictNormal
		if flagged[i] {
			v = models.VerdictAnomalous
		}
		outs = append(outs, models.DetectorOutput{Period: p, Score: scores[i], Verdict: v})
	}
	return outs
}

func TestConsolidateOneRecordPerPeriod(t *testing.T) {
	periods := quarters(models.Period{Year: 2018, Quarter: 1}, 6)
	streams := map[models.DetectorID][]models.DetectorOutput{
		models.DetectorMultivariate: stream(periods, []float64{0, 1, 2, 3, 4, 5}, nil),
	}

	recs := NewConsolidator().Consolidate(periods, streams)
	require.Len(t, recs, len(periods))
	for i, rec := range recs {
		require.Equal(t, periods[i], rec.Period)
	}
}

func TestConsolidateFlagConsistency(t *testing.T) {
	periods := quarters(models.Period{Year: 2018, Quarter: 1}, 4)
	streams := map[models.DetectorID][]models.DetectorOutput{
		models.DetectorMultivariate: stream(periods, []float64{0, 1, 2, 9}, map[int]bool{3: true}),
		models.DetectorForecast:     stream(periods, []float64{0, 0, 5, 9}, map[int]bool{2: true, 3: true}),
	}

	recs := NewConsolidator().Consolidate(periods, streams)
	for _, rec := range recs {
		require.Equal(t, rec.Anomalous, len(rec.Contributing) > 0)
		require.Equal(t, len(rec.Contributing), rec.ConsensusCount)
	}
	require.False(t, recs[0].Anomalous)
	require.Equal(t, []models.DetectorID{models.DetectorForecast}, recs[2].Contributing)
	// canonical order: multivariate before forecast
	require.Equal(t, []models.DetectorID{models.DetectorMultivariate, models.DetectorForecast}, recs[3].Contributing)
	require.Equal(t, 2, recs[3].ConsensusCount)
}

func TestConsolidateCombinedScoreIsMaxNormalizedSeverity(t *testing.T) {
	periods := quarters(models.Period{Year: 2018, Quarter: 1}, 3)
	// stream A spans [0,10], stream B spans [0,2]
	streams := map[models.DetectorID][]models.DetectorOutput{
		models.DetectorMultivariate: stream(periods, []float64{0, 5, 10}, nil),
		models.DetectorForecast:     stream(periods, []float64{0, 2, 0}, nil),
	}

	recs := NewConsolidator().Consolidate(periods, streams)
	require.NotNil(t, recs[1].CombinedScore)
	// A normalizes 5 to 0.5, B normalizes 2 to 1.0: max wins
	require.InDelta(t, 1.0, *recs[1].CombinedScore, 1e-12)
	require.InDelta(t, 1.0, *recs[2].CombinedScore, 1e-12)
	require.InDelta(t, 0.0, *recs[0].CombinedScore, 1e-12)
}

// Raising one period's raw score, everything else held fixed, must never
// lower its combined score.
func TestConsolidateMonotonicSeverity(t *testing.T) {
	periods := quarters(models.Period{Year: 2018, Quarter: 1}, 3)
	forecast := stream(periods, []float64{0, 0.5, 1}, nil)

	prev := -1.0
	for _, raw := range []float64{1, 2, 5, 9, 10, 15, 40} {
		streams := map[models.DetectorID][]models.DetectorOutput{
			models.DetectorMultivariate: stream(periods, []float64{0, raw, 10}, nil),
			models.DetectorForecast:     forecast,
		}
		recs := NewConsolidator().Consolidate(periods, streams)
		require.NotNil(t, recs[1].CombinedScore)
		require.GreaterOrEqual(t, *recs[1].CombinedScore, prev, "raw score %v", raw)
		prev = *recs[1].CombinedScore
	}
	require.Equal(t, 1.0, prev)
}

func TestConsolidateConstantStreamHasZeroSeverity(t *testing.T) {
	periods := quarters(models.Period{Year: 2018, Quarter: 1}, 4)
	streams := map[models.DetectorID][]models.DetectorOutput{
		models.DetectorMultivariate: stream(periods, []float64{3, 3, 3, 3}, nil),
	}

	recs := NewConsolidator().Consolidate(periods, streams)
	for _, rec := range recs {
		require.NotNil(t, rec.CombinedScore)
		require.Equal(t, 0.0, *rec.CombinedScore)
		require.Equal(t, 3.0, rec.DetectorScores[models.DetectorMultivariate])
	}
}

func TestConsolidateMissingStreamsMeanNotEvaluated(t *testing.T) {
	periods := quarters(models.Period{Year: 2018, Quarter: 1}, 3)

	recs := NewConsolidator().Consolidate(periods, nil)
	for _, rec := range recs {
		require.False(t, rec.Evaluated)
		require.Nil(t, rec.CombinedScore)
		require.False(t, rec.Anomalous)
		require.Empty(t, rec.Contributing)
		require.Empty(t, rec.DetectorScores)
	}
}

func TestConsolidateSkipsIndefiniteVerdicts(t *testing.T) {
	periods := quarters(models.Period{Year: 2018, Quarter: 1}, 3)
	outs := stream(periods, []float64{1, 2, 3}, nil)
	outs[0].Verdict = models.VerdictNotEvaluated
	streams := map[models.DetectorID][]models.DetectorOutput{
		models.DetectorForecast: outs,
	}

	recs := NewConsolidator().Consolidate(periods, streams)
	require.False(t, recs[0].Evaluated)
	require.Nil(t, recs[0].CombinedScore)
	require.True(t, recs[1].Evaluated)
	// normalization range comes from definite verdicts only: [2,3]
	require.InDelta(t, 0.0, *recs[1].CombinedScore, 1e-12)
	require.InDelta(t, 1.0, *recs[2].CombinedScore, 1e-12)
}

func TestConsolidateDeterministic(t *testing.T) {
	periods := quarters(models.Period{Year: 2018, Quarter: 1}, 5)
	streams := map[models.DetectorID][]models.DetectorOutput{
		models.DetectorMultivariate:                              stream(periods, []float64{0, 1, 2, 3, 4}, map[int]bool{4: true}),
		models.UnivariateDetector(models.IndicatorGDP):           stream(periods, []float64{1, 0, 0, 0, 2}, map[int]bool{4: true}),
		models.UnivariateDetector(models.IndicatorCorporateCredit): stream(periods, []float64{0, 0, 1, 0, 0}, nil),
		models.DetectorForecast:                                  stream(periods, []float64{0, 0, 0, 1, 3}, map[int]bool{4: true}),
	}

	c := NewConsolidator()
	a := c.Consolidate(periods, streams)
	b := c.Consolidate(periods, streams)
	require.Equal(t, a, b)

	want := []models.DetectorID{
		models.DetectorMultivariate,
		models.UnivariateDetector(models.IndicatorGDP),
		models.DetectorForecast,
	}
	require.Equal(t, want, a[4].Contributing)
}
