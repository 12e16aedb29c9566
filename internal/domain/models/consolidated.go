package models

import "time"

// ConsolidatedRecord is the merged, provenance-tagged anomaly verdict for one
// period. Records are immutable once produced for a given input snapshot and
// regenerated wholesale on re-runs.
type ConsolidatedRecord struct {
	Period Period `json:"period"`

	// CombinedScore is the maximum normalized severity across detectors
	// with a definite verdict, nil when no detector evaluated the period.
	CombinedScore *float64 `json:"combined_score"`

	Anomalous bool `json:"is_anomalous"`

	// Evaluated is false only when every detector returned not_evaluated.
	Evaluated bool `json:"evaluated"`

	// Contributing lists exactly the detectors that flagged the period,
	// in canonical DetectorOrder. Empty iff Anomalous is false.
	Contributing []DetectorID `json:"contributing_detectors"`

	// ConsensusCount is len(Contributing); periods flagged by more than one
	// model are the strongest, least ambiguous events.
	ConsensusCount int `json:"consensus_count"`

	// DetectorScores exposes each stream's raw (un-normalized) score for
	// drill-down. Only streams with a definite verdict appear.
	DetectorScores map[DetectorID]float64 `json:"detector_scores"`
}

// FlaggedBy reports whether id is among the contributing detectors.
func (r *ConsolidatedRecord) FlaggedBy(id DetectorID) bool {
	for _, d := range r.Contributing {
		if d == id {
			return true
		}
	}
	return false
}

// RunResult is the output of one full pipeline run: one record per period in
// the shared index, plus per-detector failure messages. A detector failure
// never suppresses the other detectors' verdicts.
type RunResult struct {
	Records     []ConsolidatedRecord `json:"records"`
	Errors      map[string]string    `json:"errors,omitempty"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// AnomalousRecords returns only the flagged periods.
func (r *RunResult) AnomalousRecords() []ConsolidatedRecord {
	out := make([]ConsolidatedRecord, 0, len(r.Records))
	for _, rec := range r.Records {
		if rec.Anomalous {
			out = append(out, rec)
		}
	}
	return out
}
