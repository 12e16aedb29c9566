package models

import (
	"fmt"
	"math"
)

// Indicator identifies one tracked macroeconomic series.
type Indicator string

const (
	IndicatorGDP             Indicator = "gdp"
	IndicatorCorporateCredit Indicator = "corporate_credit"
	IndicatorHouseholdCredit Indicator = "household_credit"
	IndicatorTotalDebt       Indicator = "total_debt"
)

// LeadIndicator is the series evaluated by the forecast deviation detector.
const LeadIndicator = IndicatorGDP

// Indicators returns all tracked indicators in canonical order.
func Indicators() []Indicator {
	return []Indicator{IndicatorGDP, IndicatorCorporateCredit, IndicatorHouseholdCredit, IndicatorTotalDebt}
}

// IsValidIndicator reports whether name is a tracked indicator.
func IsValidIndicator(name Indicator) bool {
	switch name {
	case IndicatorGDP, IndicatorCorporateCredit, IndicatorHouseholdCredit, IndicatorTotalDebt:
		return true
	default:
		return false
	}
}

// IndicatorTable is the cleaned, quarterly-aligned input table: a shared
// ordered period index and one value column per indicator. Detectors treat
// it as read-only.
type IndicatorTable struct {
	Periods []Period
	Columns map[Indicator][]float64
}

// Len returns the number of periods in the shared index.
func (t *IndicatorTable) Len() int { return len(t.Periods) }

// Column returns the values for one indicator, or nil if absent.
func (t *IndicatorTable) Column(name Indicator) []float64 {
	return t.Columns[name]
}

// Index returns the position of p in the shared index, or -1.
func (t *IndicatorTable) Index(p Period) int {
	for i, q := range t.Periods {
		if q == p {
			return i
		}
	}
	return -1
}

// Validate enforces the alignment invariants the whole pipeline relies on:
// a non-empty, contiguous, strictly increasing period index, every column
// present with the exact index length, and only finite cells. A violation
// here is fatal and must abort before any detector runs.
func (t *IndicatorTable) Validate() error {
	if t == nil || len(t.Periods) == 0 {
		return fmt.Errorf("indicator table: empty period index")
	}
	for i, p := range t.Periods {
		if !p.Valid() {
			return fmt.Errorf("indicator table: invalid period at position %d", i)
		}
		if i > 0 && t.Periods[i-1].Next() != p {
			return fmt.Errorf("indicator table: non-contiguous index at %s -> %s", t.Periods[i-1], p)
		}
	}
	for _, name := range Indicators() {
		col, ok := t.Columns[name]
		if !ok {
			return fmt.Errorf("indicator table: missing column %s", name)
		}
		if len(col) != len(t.Periods) {
			return fmt.Errorf("indicator table: column %s has %d values, index has %d periods",
				name, len(col), len(t.Periods))
		}
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("indicator table: non-finite value in %s at %s", name, t.Periods[i])
			}
		}
	}
	return nil
}
