package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is one calendar quarter in the aligned series index.
// Periods are totally ordered and form a contiguous sequence after alignment.
type Period struct {
	Year    int
	Quarter int // 1..4
}

// ParsePeriod parses "2020Q2" (case-insensitive) into a Period.
func ParsePeriod(s string) (Period, error) {
	parts := strings.SplitN(strings.ToUpper(strings.TrimSpace(s)), "Q", 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("invalid period %q: expected <year>Q<quarter>", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period year %q: %w", parts[0], err)
	}
	q, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period quarter %q: %w", parts[1], err)
	}
	p := Period{Year: year, Quarter: q}
	if !p.Valid() {
		return Period{}, fmt.Errorf("invalid period %q: quarter must be 1..4", s)
	}
	return p, nil
}

// PeriodOf returns the quarter containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Quarter: (int(t.Month())-1)/3 + 1}
}

// Valid reports whether the quarter component is in range.
func (p Period) Valid() bool {
	return p.Quarter >= 1 && p.Quarter <= 4
}

// String formats the period as "2020Q2".
func (p Period) String() string {
	return fmt.Sprintf("%04dQ%d", p.Year, p.Quarter)
}

// Before reports whether p precedes q in calendar order.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Quarter < q.Quarter
}

// Next returns the immediately following quarter.
func (p Period) Next() Period {
	if p.Quarter == 4 {
		return Period{Year: p.Year + 1, Quarter: 1}
	}
	return Period{Year: p.Year, Quarter: p.Quarter + 1}
}

// Start returns the first day of the quarter in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month((p.Quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last day of the quarter in UTC. Matches the date-indexed
// convention of the quarterly source data (e.g. 2020-06-30 for 2020Q2).
func (p Period) End() time.Time {
	return p.Next().Start().AddDate(0, 0, -1)
}

// MarshalJSON encodes the period as its "2020Q2" form.
func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON decodes a "2020Q2" string.
func (p *Period) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
