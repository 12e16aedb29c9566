package repository

import (
	"context"

	"MacroPulse/internal/domain/models"
)

// SeriesStore supplies the cleaned, quarterly-aligned indicator table.
// Alignment and imputation happen upstream; the pipeline only validates.
type SeriesStore interface {
	LoadTable(ctx context.Context) (*models.IndicatorTable, error)
}

// ResultStore persists consolidated records for downstream exploration.
type ResultStore interface {
	Init(ctx context.Context) error // ensure tables exist
	SaveRun(ctx context.Context, run *models.RunResult) error
	Health(ctx context.Context) error
	Close() error
}

// AlertPublisher emits flagged periods to downstream consumers after a run.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, records []models.ConsolidatedRecord) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordRun(seconds float64, anomalous int)
	RecordDetectorDuration(id models.DetectorID, seconds float64)
	RecordDetectorFailure(id models.DetectorID)
	RecordError(kind string)
}
