package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	domsvc "MacroPulse/internal/domain/service"
	svcmetrics "MacroPulse/internal/service/metrics"
	applogger "MacroPulse/pkg/logger"
)

// AnomalyPipeline runs the detector ensemble over one immutable input table
// and consolidates the results. The detectors are mutually independent and
// run as parallel workers; the consolidator is a barrier that waits for
// every detector's result or explicit failure before producing any output,
// so partial results are never surfaced as complete.
type AnomalyPipeline struct {
	detectors    []domsvc.Detector
	consolidator *Consolidator
	metrics      domrepo.Metrics
	l            *applogger.Logger
}

func NewAnomalyPipeline(detectors []domsvc.Detector, metrics domrepo.Metrics) *AnomalyPipeline {
	svcmetrics.Register()
	return &AnomalyPipeline{
		detectors:    detectors,
		consolidator: NewConsolidator(),
		metrics:      metrics,
	}
}

// SetLogger injects a structured logger.
func (p *AnomalyPipeline) SetLogger(l *applogger.Logger) { p.l = l }

// Run validates the table, evaluates all detectors concurrently and merges
// their outputs. A broken alignment invariant aborts before any detector
// runs; a single detector's failure is recorded per detector and its periods
// become not_evaluated while the other detectors' verdicts survive.
func (p *AnomalyPipeline) Run(ctx context.Context, table *models.IndicatorTable) (*models.RunResult, error) {
	start := time.Now()
	if err := table.Validate(); err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("invalid_input")
		}
		return nil, fmt.Errorf("input table: %w", err)
	}

	type item struct {
		id   models.DetectorID
		outs []models.DetectorOutput
		err  error
		took time.Duration
	}
	ch := make(chan item, len(p.detectors))
	var wg sync.WaitGroup
	for _, det := range p.detectors {
		wg.Add(1)
		go func(det domsvc.Detector) {
			defer wg.Done()
			t0 := time.Now()
			outs, err := det.Evaluate(ctx, table)
			ch <- item{id: det.ID(), outs: outs, err: err, took: time.Since(t0)}
		}(det)
	}
	go func() { wg.Wait(); close(ch) }()

	first, last := table.Periods[0], table.Periods[table.Len()-1]
	streams := make(map[models.DetectorID][]models.DetectorOutput)
	failures := make(map[string]string)
	for it := range ch {
		if p.metrics != nil {
			p.metrics.RecordDetectorDuration(it.id, it.took.Seconds())
		}
		if it.err != nil {
			failures[string(it.id)] = fmt.Sprintf("%v (periods %s..%s)", it.err, first, last)
			if p.metrics != nil {
				p.metrics.RecordDetectorFailure(it.id)
			}
			if p.l != nil {
				p.l.Warn("detector failed, periods treated as not_evaluated",
					applogger.String("detector", string(it.id)),
					applogger.String("from", first.String()),
					applogger.String("to", last.String()),
					applogger.Error(it.err),
				)
			}
			continue
		}
		for id, outs := range splitStreams(it.id, it.outs) {
			streams[id] = outs
			flagged := 0
			for _, o := range outs {
				svcmetrics.DetectorEvaluations.WithLabelValues(string(id), string(o.Verdict)).Inc()
				if o.Verdict == models.VerdictAnomalous {
					flagged++
				}
			}
			svcmetrics.DetectorFlaggedPeriods.WithLabelValues(string(id)).Set(float64(flagged))
		}
	}

	records := p.consolidator.Consolidate(table.Periods, streams)
	run := &models.RunResult{Records: records, GeneratedAt: time.Now().UTC()}
	if len(failures) > 0 {
		run.Errors = failures
	}

	anomalous := len(run.AnomalousRecords())
	if p.metrics != nil {
		p.metrics.RecordRun(time.Since(start).Seconds(), anomalous)
	}
	if p.l != nil {
		p.l.Info("pipeline run complete",
			applogger.Int("periods", table.Len()),
			applogger.Int("anomalous", anomalous),
			applogger.Int("detector_failures", len(failures)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return run, nil
}

// splitStreams keys a detector's outputs by consolidation stream: the
// univariate decomposer fans out into one stream per indicator, the other
// detectors map one-to-one.
func splitStreams(id models.DetectorID, outs []models.DetectorOutput) map[models.DetectorID][]models.DetectorOutput {
	if id != "univariate" {
		return map[models.DetectorID][]models.DetectorOutput{id: outs}
	}
	split := make(map[models.DetectorID][]models.DetectorOutput, len(models.Indicators()))
	for _, o := range outs {
		key := models.UnivariateDetector(o.Indicator)
		split[key] = append(split[key], o)
	}
	return split
}
