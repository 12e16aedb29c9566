package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"MacroPulse/internal/domain/models"
	applogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/util"
)

// csvColumnAliases maps accepted header names to indicators. Both the raw
// column names of the published quarterly dataset and the canonical short
// names are recognized.
var csvColumnAliases = map[string]models.Indicator{
	"gdp":                        models.IndicatorGDP,
	"pib":                        models.IndicatorGDP,
	"PIB_var_homologa":           models.IndicatorGDP,
	"corporate_credit":           models.IndicatorCorporateCredit,
	"credito_empresas":           models.IndicatorCorporateCredit,
	"Credito_Empresas_Total":     models.IndicatorCorporateCredit,
	"household_credit":           models.IndicatorHouseholdCredit,
	"credito_particulares":       models.IndicatorHouseholdCredit,
	"Credito_Particulares_Total": models.IndicatorHouseholdCredit,
	"total_debt":                 models.IndicatorTotalDebt,
	"endividamento":              models.IndicatorTotalDebt,
	"Endividamento_Total":        models.IndicatorTotalDebt,
}

// CSVSeriesStore loads the quarterly indicator table from a date-indexed CSV
// file. The first column holds the period-end date, the remaining columns one
// indicator each.
type CSVSeriesStore struct {
	path string
	l    *applogger.Logger
}

func NewCSVSeriesStore(path string) *CSVSeriesStore {
	return &CSVSeriesStore{path: path}
}

// SetLogger injects a structured logger.
func (s *CSVSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVSeriesStore) LoadTable(ctx context.Context) (*models.IndicatorTable, error) {
	start := time.Now()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open series csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("csv header has %d columns, need a date column plus indicators", len(header))
	}

	colIndex := make(map[models.Indicator]int, len(models.Indicators()))
	for i, name := range header[1:] {
		if ind, ok := csvColumnAliases[name]; ok {
			colIndex[ind] = i + 1
		}
	}
	for _, ind := range models.Indicators() {
		if _, ok := colIndex[ind]; !ok {
			return nil, fmt.Errorf("csv missing column for indicator %s", ind)
		}
	}

	type row struct {
		period models.Period
		values map[models.Indicator]float64
	}
	rows := make([]row, 0, 128)

	for line := 2; ; line++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		date, ok := util.ParseDate(rec[0])
		if !ok {
			return nil, fmt.Errorf("csv line %d: invalid date %q", line, rec[0])
		}

		values := make(map[models.Indicator]float64, len(colIndex))
		for ind, idx := range colIndex {
			if idx >= len(rec) {
				return nil, fmt.Errorf("csv line %d: missing value for %s", line, ind)
			}
			v, err := strconv.ParseFloat(rec[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d: invalid %s value %q: %w", line, ind, rec[idx], err)
			}
			values[ind] = v
		}
		rows = append(rows, row{period: models.PeriodOf(date), values: values})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].period.Before(rows[j].period) })

	table := &models.IndicatorTable{
		Periods: make([]models.Period, 0, len(rows)),
		Columns: make(map[models.Indicator][]float64, len(models.Indicators())),
	}
	for _, rw := range rows {
		table.Periods = append(table.Periods, rw.period)
		for _, ind := range models.Indicators() {
			table.Columns[ind] = append(table.Columns[ind], rw.values[ind])
		}
	}

	if s.l != nil {
		s.l.Info("csv series loaded",
			applogger.String("path", s.path),
			applogger.Int("periods", table.Len()),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return table, nil
}
