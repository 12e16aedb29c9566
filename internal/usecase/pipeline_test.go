package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"MacroPulse/internal/domain/models"
	domsvc "MacroPulse/internal/domain/service"
	"MacroPulse/internal/services/detectors"
)

type fakeDetector struct {
	id   models.DetectorID
	outs []models.DetectorOutput
	err  error
}

func (f *fakeDetector) ID() models.DetectorID { return f.id }

func (f *fakeDetector) Evaluate(_ context.Context, _ *models.IndicatorTable) ([]models.DetectorOutput, error) {
	return f.outs, f.err
}

func flatTable(n int) *models.IndicatorTable {
	t := &models.IndicatorTable{Columns: make(map[models.Indicator][]float64)}
	p := models.Period{Year: 2015, Quarter: 1}
	for i := 0; i < n; i++ {
		t.Periods = append(t.Periods, p)
		p = p.Next()
	}
	base := map[models.Indicator]float64{
		models.IndicatorGDP:             2.0,
		models.IndicatorCorporateCredit: 100.0,
		models.IndicatorHouseholdCredit: 80.0,
		models.IndicatorTotalDebt:       200.0,
	}
	for ind, v := range base {
		col := make([]float64, n)
		for i := range col {
			col[i] = v
		}
		t.Columns[ind] = col
	}
	return t
}

func TestPipelineRejectsInvalidTable(t *testing.T) {
	tab := flatTable(8)
	tab.Periods[3] = tab.Periods[3].Next() // break contiguity

	p := NewAnomalyPipeline(nil, nil)
	_, err := p.Run(context.Background(), tab)
	require.Error(t, err)
	require.Contains(t, err.Error(), "input table")
}

func TestPipelineDetectorFailureIsIsolated(t *testing.T) {
	tab := flatTable(4)
	ok := &fakeDetector{
		id: models.DetectorForecast,
		outs: []models.DetectorOutput{
			{Period: tab.Periods[0], Score: 0, Verdict: models.VerdictNormal},
			{Period: tab.Periods[1], Score: 1, Verdict: models.VerdictNormal},
			{Period: tab.Periods[2], Score: 9, Verdict: models.VerdictAnomalous},
			{Period: tab.Periods[3], Score: 0, Verdict: models.VerdictNormal},
		},
	}
	broken := &fakeDetector{id: models.DetectorMultivariate, err: errors.New("boom")}

	p := NewAnomalyPipeline([]domsvc.Detector{ok, broken}, nil)
	run, err := p.Run(context.Background(), tab)
	require.NoError(t, err)

	require.Contains(t, run.Errors, "multivariate")
	require.Contains(t, run.Errors["multivariate"], "boom")
	require.Contains(t, run.Errors["multivariate"], "2015Q1..2015Q4")

	// the healthy detector's verdicts survive untouched
	require.Len(t, run.Records, 4)
	require.True(t, run.Records[2].Anomalous)
	require.Equal(t, []models.DetectorID{models.DetectorForecast}, run.Records[2].Contributing)
	for _, rec := range run.Records {
		require.True(t, rec.Evaluated)
		require.NotContains(t, rec.DetectorScores, models.DetectorMultivariate)
	}
}

func TestPipelineSplitsUnivariateStreams(t *testing.T) {
	tab := flatTable(2)
	uni := &fakeDetector{id: "univariate"}
	for _, p := range tab.Periods {
		for _, ind := range models.Indicators() {
			uni.outs = append(uni.outs, models.DetectorOutput{
				Period: p, Indicator: ind, Score: 1, Verdict: models.VerdictNormal,
			})
		}
	}

	pl := NewAnomalyPipeline([]domsvc.Detector{uni}, nil)
	run, err := pl.Run(context.Background(), tab)
	require.NoError(t, err)

	for _, rec := range run.Records {
		for _, ind := range models.Indicators() {
			require.Contains(t, rec.DetectorScores, models.UnivariateDetector(ind))
		}
		require.NotContains(t, rec.DetectorScores, models.DetectorID("univariate"))
	}
}

// A single-series level shock: the residual detector must flag it on its own
// stream while the multivariate detector, starved of history, fails without
// taking the run down.
func TestPipelineUnivariateSpikeScenario(t *testing.T) {
	tab := flatTable(16)
	tab.Columns[models.IndicatorHouseholdCredit][9] = 40.0

	ensemble := []domsvc.Detector{
		detectors.NewMultivariate(detectors.MultivariateConfig{Contamination: 0.1, MinPeriods: 32}),
		detectors.NewDecomposer(detectors.DecomposerConfig{FlagThresholdK: 3.0, MinSeasonalCycles: 2}),
		detectors.NewForecastDeviation(detectors.ForecastConfig{ConfidenceLevel: 0.95, MinHistory: 2, MinSeasonalCycles: 2}),
	}
	p := NewAnomalyPipeline(ensemble, nil)
	run, err := p.Run(context.Background(), tab)
	require.NoError(t, err)

	require.Contains(t, run.Errors, "multivariate")
	require.Len(t, run.Records, 16)

	spiked := run.Records[9]
	require.True(t, spiked.Anomalous)
	require.True(t, spiked.FlaggedBy(models.UnivariateDetector(models.IndicatorHouseholdCredit)))
	require.GreaterOrEqual(t, spiked.ConsensusCount, 1)

	// gdp never moved, so the forecast stream stays quiet
	for _, rec := range run.Records {
		require.False(t, rec.FlaggedBy(models.DetectorForecast))
	}
}

// Minimal history: only the forecast detector can judge a 4-period table, and
// it must flag the spike without falsely flagging the recovery period after it.
func TestPipelineForecastScenario(t *testing.T) {
	tab := flatTable(4)
	tab.Columns[models.IndicatorGDP][2] = 9.0

	ensemble := []domsvc.Detector{
		detectors.NewMultivariate(detectors.MultivariateConfig{Contamination: 0.1, MinPeriods: 8}),
		detectors.NewDecomposer(detectors.DecomposerConfig{FlagThresholdK: 3.0, MinSeasonalCycles: 2}),
		detectors.NewForecastDeviation(detectors.ForecastConfig{ConfidenceLevel: 0.95, MinHistory: 2, MinSeasonalCycles: 2}),
	}
	p := NewAnomalyPipeline(ensemble, nil)
	run, err := p.Run(context.Background(), tab)
	require.NoError(t, err)

	require.Contains(t, run.Errors, "multivariate")
	require.Contains(t, run.Errors, "univariate")

	require.False(t, run.Records[0].Evaluated)
	require.False(t, run.Records[1].Evaluated)

	spiked := run.Records[2]
	require.True(t, spiked.Evaluated)
	require.True(t, spiked.Anomalous)
	require.Equal(t, []models.DetectorID{models.DetectorForecast}, spiked.Contributing)

	after := run.Records[3]
	require.True(t, after.Evaluated)
	require.False(t, after.Anomalous)

	// the spiked period outranks every other evaluated period
	for i, rec := range run.Records {
		if i == 2 || rec.CombinedScore == nil {
			continue
		}
		require.Greater(t, *spiked.CombinedScore, *rec.CombinedScore, "period %s", rec.Period)
	}
}

func TestPipelineRunMetadata(t *testing.T) {
	tab := flatTable(4)
	p := NewAnomalyPipeline([]domsvc.Detector{
		&fakeDetector{id: models.DetectorForecast, outs: []models.DetectorOutput{
			{Period: tab.Periods[0], Verdict: models.VerdictNormal},
		}},
	}, nil)
	run, err := p.Run(context.Background(), tab)
	require.NoError(t, err)
	require.False(t, run.GeneratedAt.IsZero())
	require.Empty(t, run.Errors)
}
