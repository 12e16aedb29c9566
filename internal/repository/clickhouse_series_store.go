package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MacroPulse/internal/domain/models"
	pkgch "MacroPulse/pkg/clickhouse"
	applogger "MacroPulse/pkg/logger"
)

// CHSeriesStore loads the quarterly indicator table from ClickHouse. Values
// live in a narrow table (period_date, indicator, value) and are pivoted into
// the shared-index wide form here.
type CHSeriesStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSeriesStore(ch *pkgch.Client) *CHSeriesStore {
	return &CHSeriesStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSeriesStore) LoadTable(ctx context.Context) (*models.IndicatorTable, error) {
	start := time.Now()
	const q = `
        SELECT period_date, indicator, value
        FROM macropulse.indicator_values
        ORDER BY period_date ASC, indicator ASC
    `
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse series query error", applogger.Error(err))
		}
		return nil, fmt.Errorf("load indicator values: %w", err)
	}
	defer rows.Close()

	byPeriod := make(map[models.Period]map[models.Indicator]float64)
	for rows.Next() {
		var (
			date  time.Time
			name  string
			value float64
		)
		if err := rows.Scan(&date, &name, &value); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse series scan error", applogger.Error(err))
			}
			return nil, fmt.Errorf("scan indicator value: %w", err)
		}
		ind := models.Indicator(name)
		if !models.IsValidIndicator(ind) {
			continue
		}
		p := models.PeriodOf(date)
		if byPeriod[p] == nil {
			byPeriod[p] = make(map[models.Indicator]float64, len(models.Indicators()))
		}
		byPeriod[p][ind] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(byPeriod) == 0 {
		return nil, fmt.Errorf("no indicator values in clickhouse")
	}

	first, last := firstLastPeriod(byPeriod)

	table := &models.IndicatorTable{
		Columns: make(map[models.Indicator][]float64, len(models.Indicators())),
	}
	for p := first; !last.Before(p); p = p.Next() {
		values, ok := byPeriod[p]
		if !ok {
			return nil, fmt.Errorf("missing period %s in indicator values", p)
		}
		table.Periods = append(table.Periods, p)
		for _, ind := range models.Indicators() {
			v, ok := values[ind]
			if !ok {
				return nil, fmt.Errorf("missing %s value at %s", ind, p)
			}
			table.Columns[ind] = append(table.Columns[ind], v)
		}
	}

	if s.l != nil {
		s.l.Info("clickhouse series loaded",
			applogger.Int("periods", table.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return table, nil
}

func firstLastPeriod(byPeriod map[models.Period]map[models.Indicator]float64) (models.Period, models.Period) {
	var first, last models.Period
	started := false
	for p := range byPeriod {
		if !started {
			first, last = p, p
			started = true
			continue
		}
		if p.Before(first) {
			first = p
		}
		if last.Before(p) {
			last = p
		}
	}
	return first, last
}
