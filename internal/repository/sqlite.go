package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps the results server readable while a pipeline run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		patients INTEGER NOT NULL DEFAULT 0,
		episodes INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS episodes (
		run_id TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		episode_number INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		duration_days INTEGER NOT NULL,
		duration_weeks REAL NOT NULL,
		confidence_score REAL NOT NULL,
		has_temporal_issues INTEGER NOT NULL DEFAULT 0,
		has_clinical_issues INTEGER NOT NULL DEFAULT 0,
		has_outcome_issues INTEGER NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		PRIMARY KEY (run_id, patient_id, episode_number)
	);

	CREATE INDEX IF NOT EXISTS idx_episodes_run ON episodes(run_id);
	CREATE INDEX IF NOT EXISTS idx_episodes_patient ON episodes(run_id, patient_id);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveRun stores the run metadata and every episode result in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, created_at, patients, episodes) VALUES (?, ?, ?, ?)",
		run.RunID, run.GeneratedAt, run.Stats.Patients, len(run.Results),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO episodes (
			run_id, patient_id, episode_number, start_date, end_date,
			duration_days, duration_weeks, confidence_score,
			has_temporal_issues, has_clinical_issues, has_outcome_issues, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, result := range run.Results {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal episode result: %w", err)
		}

		ep := result.Episode
		_, err = stmt.ExecContext(ctx,
			run.RunID, ep.PatientID, ep.Number,
			ep.StartDate.Format("2006-01-02"), ep.EndDate.Format("2006-01-02"),
			ep.DurationDays, ep.DurationWeeks, result.ConfidenceScore,
			result.Validation.HasTemporalIssues(), result.Validation.HasClinicalIssues(),
			result.Validation.HasOutcomeIssues(), string(payload),
		)
		if err != nil {
			return fmt.Errorf("failed to insert episode: %w", err)
		}
	}

	return tx.Commit()
}

// ListRuns returns stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, patients, episodes FROM runs ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Patients, &r.Episodes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetSummary returns the per-episode summary rows for a run.
func (s *SQLiteStore) GetSummary(ctx context.Context, runID string) ([]domain.EpisodeSummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, episode_number, start_date, end_date, duration_weeks,
			confidence_score, has_temporal_issues, has_clinical_issues, has_outcome_issues
		FROM episodes
		WHERE run_id = ?
		ORDER BY patient_id, episode_number
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var summaries []domain.EpisodeSummaryRow
	for rows.Next() {
		var row domain.EpisodeSummaryRow
		var start, end string
		err := rows.Scan(
			&row.PatientID, &row.EpisodeNumber, &start, &end, &row.DurationWeeks,
			&row.ConfidenceScore, &row.HasTemporalIssues, &row.HasClinicalIssues, &row.HasOutcomeIssues,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		if row.StartDate, err = time.Parse("2006-01-02", start); err != nil {
			return nil, fmt.Errorf("failed to parse start date: %w", err)
		}
		if row.EndDate, err = time.Parse("2006-01-02", end); err != nil {
			return nil, fmt.Errorf("failed to parse end date: %w", err)
		}
		summaries = append(summaries, row)
	}
	return summaries, rows.Err()
}

// GetEpisodes returns the full episode results for a run, optionally filtered
// to one patient.
func (s *SQLiteStore) GetEpisodes(ctx context.Context, runID, patientID string) ([]domain.EpisodeResult, error) {
	query := "SELECT payload FROM episodes WHERE run_id = ?"
	args := []interface{}{runID}
	if patientID != "" {
		query += " AND patient_id = ?"
		args = append(args, patientID)
	}
	query += " ORDER BY patient_id, episode_number"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var results []domain.EpisodeResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		var result domain.EpisodeResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal episode result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
