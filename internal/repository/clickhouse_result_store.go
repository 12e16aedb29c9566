package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"MacroPulse/internal/domain/models"
	pkgch "MacroPulse/pkg/clickhouse"
	applogger "MacroPulse/pkg/logger"
)

// CHResultStore persists consolidated records in ClickHouse. Each run inserts
// a full snapshot keyed by generated_at so downstream queries can pick the
// latest run or diff runs over time.
type CHResultStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client) *CHResultStore {
	return &CHResultStore{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures database and tables exist (idempotent).
func (s *CHResultStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE DATABASE IF NOT EXISTS macropulse`,
		`CREATE TABLE IF NOT EXISTS macropulse.consolidated_anomalies (
            period          String,
            year            UInt16,
            quarter         UInt8,
            combined_score  Nullable(Float64),
            is_anomalous    UInt8,
            evaluated       UInt8,
            contributing    String,
            consensus_count UInt8,
            detector_scores String,
            generated_at    DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(generated_at)
        ORDER BY (year, quarter)`,
	}
	return s.client.InitSchema(ctx, stmts)
}

// SaveRun inserts the full set of records for one run in a single batch.
func (s *CHResultStore) SaveRun(ctx context.Context, run *models.RunResult) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO macropulse.consolidated_anomalies
            (period, year, quarter, combined_score, is_anomalous, evaluated,
             contributing, consensus_count, detector_scores, generated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range run.Records {
		var score sql.NullFloat64
		if rec.CombinedScore != nil {
			score = sql.NullFloat64{Float64: *rec.CombinedScore, Valid: true}
		}

		contributing := make([]string, 0, len(rec.Contributing))
		for _, id := range rec.Contributing {
			contributing = append(contributing, string(id))
		}

		scoresJSON, err := json.Marshal(rec.DetectorScores)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal detector scores for %s: %w", rec.Period, err)
		}

		if _, err := stmt.ExecContext(ctx,
			rec.Period.String(),
			uint16(rec.Period.Year),
			uint8(rec.Period.Quarter),
			score,
			boolToUint8(rec.Anomalous),
			boolToUint8(rec.Evaluated),
			strings.Join(contributing, ","),
			uint8(rec.ConsensusCount),
			string(scoresJSON),
			run.GeneratedAt,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert record %s: %w", rec.Period, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	if s.l != nil {
		s.l.Info("run persisted",
			applogger.Int("records", len(run.Records)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Health performs health check.
func (s *CHResultStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close closes the underlying connection pool.
func (s *CHResultStore) Close() error {
	return s.client.Close()
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
