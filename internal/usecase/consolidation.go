package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/pkg/cache"
	applogger "MacroPulse/pkg/logger"
)

const latestRunCacheKey = "macropulse:run:latest"

// ConsolidationUseCase orchestrates a full batch run: load the aligned table
// from the series store, run the pipeline, then hand the consolidated table
// to the external collaborators (result store, alert topic, cache). Storage
// and publishing are best effort; a persistence error never invalidates the
// computed run.
type ConsolidationUseCase struct {
	series   domrepo.SeriesStore
	pipeline *AnomalyPipeline
	results  domrepo.ResultStore
	alerts   domrepo.AlertPublisher
	cache    cache.Service
	cacheTTL time.Duration
	l        *applogger.Logger

	mu     sync.RWMutex
	latest *models.RunResult
}

func NewConsolidationUseCase(
	series domrepo.SeriesStore,
	pipeline *AnomalyPipeline,
	results domrepo.ResultStore,
	alerts domrepo.AlertPublisher,
	c cache.Service,
	cacheTTL time.Duration,
) *ConsolidationUseCase {
	return &ConsolidationUseCase{
		series:   series,
		pipeline: pipeline,
		results:  results,
		alerts:   alerts,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// SetLogger injects a structured logger.
func (uc *ConsolidationUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// Run recomputes the consolidated table from scratch.
func (uc *ConsolidationUseCase) Run(ctx context.Context) (*models.RunResult, error) {
	table, err := uc.series.LoadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}

	run, err := uc.pipeline.Run(ctx, table)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	uc.latest = run
	uc.mu.Unlock()

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, latestRunCacheKey, run, uc.cacheTTL); err != nil && uc.l != nil {
			uc.l.Warn("cache latest run failed", applogger.Error(err))
		}
	}
	if uc.results != nil {
		if err := uc.results.SaveRun(ctx, run); err != nil && uc.l != nil {
			uc.l.Warn("persist run failed", applogger.Error(err))
		}
	}
	if uc.alerts != nil {
		if flagged := run.AnomalousRecords(); len(flagged) > 0 {
			if err := uc.alerts.PublishAlerts(ctx, flagged); err != nil && uc.l != nil {
				uc.l.Warn("publish alerts failed", applogger.Error(err))
			}
		}
	}
	return run, nil
}

// Latest returns the most recent run, consulting the in-process copy first,
// then the cache, and finally recomputing.
func (uc *ConsolidationUseCase) Latest(ctx context.Context) (*models.RunResult, error) {
	uc.mu.RLock()
	run := uc.latest
	uc.mu.RUnlock()
	if run != nil {
		return run, nil
	}

	if uc.cache != nil {
		var cached models.RunResult
		if err := uc.cache.Get(ctx, latestRunCacheKey, &cached); err == nil {
			uc.mu.Lock()
			uc.latest = &cached
			uc.mu.Unlock()
			return &cached, nil
		}
	}
	return uc.Run(ctx)
}

// Record returns the consolidated record for one period.
func (uc *ConsolidationUseCase) Record(ctx context.Context, p models.Period) (*models.ConsolidatedRecord, error) {
	run, err := uc.Latest(ctx)
	if err != nil {
		return nil, err
	}
	for i := range run.Records {
		if run.Records[i].Period == p {
			return &run.Records[i], nil
		}
	}
	return nil, fmt.Errorf("period %s not in consolidated index", p)
}

// List filters the latest run's records. Flagged-only listings are ordered
// by consensus count (strongest events first), then by period, matching the
// anomaly table of the exploration dashboard; full listings keep index order.
func (uc *ConsolidationUseCase) List(ctx context.Context, req models.ListAnomaliesRequest) ([]models.ConsolidatedRecord, error) {
	run, err := uc.Latest(ctx)
	if err != nil {
		return nil, err
	}

	detector := models.DetectorID(req.Detector)
	out := make([]models.ConsolidatedRecord, 0, len(run.Records))
	for _, rec := range run.Records {
		if req.FlaggedOnly && !rec.Anomalous {
			continue
		}
		if req.ConsensusOnly && rec.ConsensusCount < 2 {
			continue
		}
		if detector != "" && !rec.FlaggedBy(detector) {
			continue
		}
		if req.MinScore > 0 && (rec.CombinedScore == nil || *rec.CombinedScore < req.MinScore) {
			continue
		}
		out = append(out, rec)
	}

	if req.FlaggedOnly || req.ConsensusOnly {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].ConsensusCount != out[j].ConsensusCount {
				return out[i].ConsensusCount > out[j].ConsensusCount
			}
			return out[i].Period.Before(out[j].Period)
		})
	}
	return out, nil
}

// Indicator returns one raw indicator series for drill-down charts.
func (uc *ConsolidationUseCase) Indicator(ctx context.Context, name models.Indicator) ([]models.Period, []float64, error) {
	if !models.IsValidIndicator(name) {
		return nil, nil, fmt.Errorf("unknown indicator %q", name)
	}
	table, err := uc.series.LoadTable(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load series: %w", err)
	}
	return table.Periods, table.Column(name), nil
}
