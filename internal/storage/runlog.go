package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fundpulse/rollupd/internal/domain/models"
)

// RunLogRepository persists one row per engine execution for auditing.
type RunLogRepository interface {
	InsertRun(result models.RunResult) error
	LatestRuns(limit int) ([]RunLogEntry, error)
}

// RunLogEntry is one persisted execution summary.
type RunLogEntry struct {
	ID        int64
	Status    string
	Reason    string
	Processed int
	Updated   int
	TookMs    int64
	Details   []models.SummaryItem
}

type runLogRepository struct {
	db *sql.DB
}

// NewRunLogRepository wraps an open Postgres handle.
func NewRunLogRepository(db *sql.DB) RunLogRepository {
	return &runLogRepository{db: db}
}

// InsertRun records the outcome of one run. Details are stored as JSON so
// the schema does not chase the summary shape.
func (r *runLogRepository) InsertRun(result models.RunResult) error {
	var processed, updated int
	if result.Totals != nil {
		processed = result.Totals.Processed
		updated = result.Totals.Updated
	}

	reason := result.Reason
	if reason == "" {
		reason = result.Message
	}

	details, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("encode run details: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO rollup_runs (status, reason, processed, updated, took_ms, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, result.Status, reason, processed, updated, result.TookMs, details)
	return err
}

// LatestRuns returns the most recent run summaries, newest first.
func (r *runLogRepository) LatestRuns(limit int) ([]RunLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT id, status, reason, processed, updated, took_ms, details
		FROM rollup_runs
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []RunLogEntry
	for rows.Next() {
		var e RunLogEntry
		var reason sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.Status, &reason, &e.Processed, &e.Updated, &e.TookMs, &details); err != nil {
			return nil, err
		}
		e.Reason = reason.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("decode run details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
