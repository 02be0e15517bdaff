package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// PostgresStore implements Store on PostgreSQL. It expects the schema to
// already exist, created via the migrations in migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing connection.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a connection pool to the given database URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// SaveRun stores the run metadata and every episode result in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run *domain.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, created_at, patients, episodes) VALUES ($1, $2, $3, $4)",
		run.RunID, run.GeneratedAt, run.Stats.Patients, len(run.Results),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, result := range run.Results {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal episode result: %w", err)
		}

		ep := result.Episode
		_, err = tx.ExecContext(ctx, `
			INSERT INTO episodes (
				run_id, patient_id, episode_number, start_date, end_date,
				duration_days, duration_weeks, confidence_score,
				has_temporal_issues, has_clinical_issues, has_outcome_issues, payload
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			run.RunID, ep.PatientID, ep.Number, ep.StartDate, ep.EndDate,
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
func (s *PostgresStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
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
func (s *PostgresStore) GetSummary(ctx context.Context, runID string) ([]domain.EpisodeSummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT patient_id, episode_number, start_date, end_date, duration_weeks,
			confidence_score, has_temporal_issues, has_clinical_issues, has_outcome_issues
		FROM episodes
		WHERE run_id = $1
		ORDER BY patient_id, episode_number
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var summaries []domain.EpisodeSummaryRow
	for rows.Next() {
		var row domain.EpisodeSummaryRow
		err := rows.Scan(
			&row.PatientID, &row.EpisodeNumber, &row.StartDate, &row.EndDate, &row.DurationWeeks,
			&row.ConfidenceScore, &row.HasTemporalIssues, &row.HasClinicalIssues, &row.HasOutcomeIssues,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summaries = append(summaries, row)
	}
	return summaries, rows.Err()
}

// GetEpisodes returns the full episode results for a run, optionally filtered
// to one patient.
func (s *PostgresStore) GetEpisodes(ctx context.Context, runID, patientID string) ([]domain.EpisodeResult, error) {
	query := "SELECT payload FROM episodes WHERE run_id = $1"
	args := []interface{}{runID}
	if patientID != "" {
		query += " AND patient_id = $2"
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
