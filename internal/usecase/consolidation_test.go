package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"MacroPulse/internal/domain/models"
	domsvc "MacroPulse/internal/domain/service"
	"MacroPulse/internal/services/detectors"
	"MacroPulse/pkg/cache"
)

type fakeSeriesStore struct {
	table *models.IndicatorTable
	err   error
	loads int
}

func (f *fakeSeriesStore) LoadTable(_ context.Context) (*models.IndicatorTable, error) {
	f.loads++
	return f.table, f.err
}

type fakeResultStore struct {
	saved []*models.RunResult
	err   error
}

func (f *fakeResultStore) Init(_ context.Context) error   { return nil }
func (f *fakeResultStore) Health(_ context.Context) error { return nil }
func (f *fakeResultStore) Close() error                   { return nil }
func (f *fakeResultStore) SaveRun(_ context.Context, run *models.RunResult) error {
	f.saved = append(f.saved, run)
	return f.err
}

type fakeAlertPublisher struct {
	published [][]models.ConsolidatedRecord
}

func (f *fakeAlertPublisher) Close() error { return nil }
func (f *fakeAlertPublisher) PublishAlerts(_ context.Context, recs []models.ConsolidatedRecord) error {
	f.published = append(f.published, recs)
	return nil
}

func spikedEnsemble() []domsvc.Detector {
	return []domsvc.Detector{
		detectors.NewMultivariate(detectors.MultivariateConfig{Contamination: 0.1, MinPeriods: 8}),
		detectors.NewDecomposer(detectors.DecomposerConfig{FlagThresholdK: 3.0, MinSeasonalCycles: 2}),
		detectors.NewForecastDeviation(detectors.ForecastConfig{ConfidenceLevel: 0.95, MinHistory: 2, MinSeasonalCycles: 2}),
	}
}

func newTestUseCase(t *testing.T, tab *models.IndicatorTable) (*ConsolidationUseCase, *fakeSeriesStore, *fakeResultStore, *fakeAlertPublisher) {
	t.Helper()
	series := &fakeSeriesStore{table: tab}
	results := &fakeResultStore{}
	alerts := &fakeAlertPublisher{}
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })

	pipeline := NewAnomalyPipeline(spikedEnsemble(), nil)
	uc := NewConsolidationUseCase(series, pipeline, results, alerts, mem, time.Minute)
	return uc, series, results, alerts
}

func spikedTable() *models.IndicatorTable {
	tab := flatTable(16)
	tab.Columns[models.IndicatorGDP][6] = -8.0
	tab.Columns[models.IndicatorCorporateCredit][6] = 160.0
	tab.Columns[models.IndicatorHouseholdCredit][6] = 40.0
	tab.Columns[models.IndicatorTotalDebt][6] = 320.0
	return tab
}

func TestConsolidationRunPersistsAndPublishes(t *testing.T) {
	uc, _, results, alerts := newTestUseCase(t, spikedTable())

	run, err := uc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Records, 16)
	require.NotEmpty(t, run.AnomalousRecords())

	require.Len(t, results.saved, 1)
	require.Same(t, run, results.saved[0])
	require.Len(t, alerts.published, 1)
	require.Equal(t, run.AnomalousRecords(), alerts.published[0])
}

func TestConsolidationRunSurvivesPersistenceFailure(t *testing.T) {
	uc, _, results, _ := newTestUseCase(t, spikedTable())
	results.err = errors.New("clickhouse down")

	run, err := uc.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, run.Records)
}

func TestConsolidationLatestUsesMemoizedRun(t *testing.T) {
	uc, series, _, _ := newTestUseCase(t, spikedTable())

	_, err := uc.Run(context.Background())
	require.NoError(t, err)
	loadsAfterRun := series.loads

	_, err = uc.Latest(context.Background())
	require.NoError(t, err)
	require.Equal(t, loadsAfterRun, series.loads, "Latest must not reload the series")
}

func TestConsolidationLatestComputesWhenCold(t *testing.T) {
	uc, series, _, _ := newTestUseCase(t, spikedTable())

	run, err := uc.Latest(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, run.Records)
	require.Equal(t, 1, series.loads)
}

func TestConsolidationRecord(t *testing.T) {
	tab := spikedTable()
	uc, _, _, _ := newTestUseCase(t, tab)

	rec, err := uc.Record(context.Background(), tab.Periods[6])
	require.NoError(t, err)
	require.True(t, rec.Anomalous)

	_, err = uc.Record(context.Background(), models.Period{Year: 1990, Quarter: 1})
	require.Error(t, err)
}

func TestConsolidationListFilters(t *testing.T) {
	uc, _, _, _ := newTestUseCase(t, spikedTable())
	ctx := context.Background()

	all, err := uc.List(ctx, models.ListAnomaliesRequest{})
	require.NoError(t, err)
	require.Len(t, all, 16)

	flagged, err := uc.List(ctx, models.ListAnomaliesRequest{FlaggedOnly: true})
	require.NoError(t, err)
	require.NotEmpty(t, flagged)
	for _, rec := range flagged {
		require.True(t, rec.Anomalous)
	}
	// strongest consensus first
	for i := 1; i < len(flagged); i++ {
		require.GreaterOrEqual(t, flagged[i-1].ConsensusCount, flagged[i].ConsensusCount)
	}

	byDetector, err := uc.List(ctx, models.ListAnomaliesRequest{Detector: "multivariate"})
	require.NoError(t, err)
	for _, rec := range byDetector {
		require.True(t, rec.FlaggedBy(models.DetectorMultivariate))
	}

	strong, err := uc.List(ctx, models.ListAnomaliesRequest{FlaggedOnly: true, MinScore: 0.99})
	require.NoError(t, err)
	for _, rec := range strong {
		require.NotNil(t, rec.CombinedScore)
		require.GreaterOrEqual(t, *rec.CombinedScore, 0.99)
	}
}

func TestConsolidationIndicatorSeries(t *testing.T) {
	tab := spikedTable()
	uc, _, _, _ := newTestUseCase(t, tab)

	periods, values, err := uc.Indicator(context.Background(), models.IndicatorGDP)
	require.NoError(t, err)
	require.Equal(t, tab.Periods, periods)
	require.Equal(t, tab.Columns[models.IndicatorGDP], values)

	_, _, err = uc.Indicator(context.Background(), "bogus")
	require.Error(t, err)
}
