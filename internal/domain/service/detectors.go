package service

import (
	"context"

	"MacroPulse/internal/domain/models"
)

// Detector is the single contract all anomaly detectors share. Each detector
// is a pure function of the read-only input table plus the configuration it
// was constructed with; the consolidator stays agnostic to the statistical
// technique behind each one.
//
// A returned error means the detector as a whole could not evaluate; the
// pipeline records it and treats the detector's periods as not_evaluated.
// Per-period evaluation gaps (insufficient history, fit failure) are instead
// reported in-band as VerdictNotEvaluated outputs.
type Detector interface {
	ID() models.DetectorID
	Evaluate(ctx context.Context, table *models.IndicatorTable) ([]models.DetectorOutput, error)
}
