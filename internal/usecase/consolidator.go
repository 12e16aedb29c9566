package usecase

import (
	"MacroPulse/internal/domain/models"
)

// Consolidator merges the heterogeneous detector streams into exactly one
// ConsolidatedRecord per period in the shared index. The three detectors
// score on incomparable scales, so each stream is min-max normalized to a
// [0,1] severity over its own evaluated range before comparison; the
// combined score is the maximum normalized severity, so any single strong
// signal surfaces the period instead of being diluted by quiet detectors.
type Consolidator struct{}

func NewConsolidator() *Consolidator { return &Consolidator{} }

// Consolidate produces one record per period. Streams are keyed by
// DetectorID; a stream missing a period (or the whole map missing a stream)
// counts as not_evaluated for it. Given identical inputs the output is
// bit-identical: iteration follows the canonical detector order and the
// shared period index only.
func (c *Consolidator) Consolidate(periods []models.Period, streams map[models.DetectorID][]models.DetectorOutput) []models.ConsolidatedRecord {
	order := models.DetectorOrder()

	byPeriod := make(map[models.DetectorID]map[models.Period]models.DetectorOutput, len(streams))
	severity := make(map[models.DetectorID]func(float64) float64, len(streams))
	for id, outputs := range streams {
		lookup := make(map[models.Period]models.DetectorOutput, len(outputs))
		for _, o := range outputs {
			lookup[o.Period] = o
		}
		byPeriod[id] = lookup
		severity[id] = normalizer(outputs)
	}

	records := make([]models.ConsolidatedRecord, 0, len(periods))
	for _, p := range periods {
		rec := models.ConsolidatedRecord{
			Period:         p,
			Contributing:   []models.DetectorID{},
			DetectorScores: map[models.DetectorID]float64{},
		}
		for _, id := range order {
			out, ok := byPeriod[id][p]
			if !ok || !out.Verdict.Definite() {
				continue
			}
			rec.Evaluated = true
			rec.DetectorScores[id] = out.Score
			sev := severity[id](out.Score)
			if rec.CombinedScore == nil || sev > *rec.CombinedScore {
				s := sev
				rec.CombinedScore = &s
			}
			if out.Verdict == models.VerdictAnomalous {
				rec.Contributing = append(rec.Contributing, id)
			}
		}
		rec.Anomalous = len(rec.Contributing) > 0
		rec.ConsensusCount = len(rec.Contributing)
		records = append(records, rec)
	}
	return records
}

// normalizer builds the min-max scaling for one stream, computed over that
// detector's definite verdicts alone. A stream with a constant score range
// normalizes to zero severity: nothing in it stands out.
func normalizer(outputs []models.DetectorOutput) func(float64) float64 {
	first := true
	var lo, hi float64
	for _, o := range outputs {
		if !o.Verdict.Definite() {
			continue
		}
		if first || o.Score < lo {
			lo = o.Score
		}
		if first || o.Score > hi {
			hi = o.Score
		}
		first = false
	}
	span := hi - lo
	return func(score float64) float64 {
		if span <= 0 {
			return 0
		}
		sev := (score - lo) / span
		if sev < 0 {
			return 0
		}
		if sev > 1 {
			return 1
		}
		return sev
	}
}
