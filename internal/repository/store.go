package repository

import (
	"context"
	"time"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// RunRecord is the stored metadata for one pipeline run.
type RunRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Patients  int       `json:"patients"`
	Episodes  int       `json:"episodes"`
}

// Store persists pipeline runs and their episode results. Persistence is
// optional: the pipeline produces its artifacts without a store, and the
// results server reads whichever backend was used.
type Store interface {
	// SaveRun stores the run metadata and every episode result.
	SaveRun(ctx context.Context, run *domain.RunResult) error

	// ListRuns returns stored runs, newest first.
	ListRuns(ctx context.Context) ([]RunRecord, error)

	// GetSummary returns the per-episode summary rows for a run.
	GetSummary(ctx context.Context, runID string) ([]domain.EpisodeSummaryRow, error)

	// GetEpisodes returns the full episode results for a run, optionally
	// filtered to one patient. An unknown run returns an empty slice.
	GetEpisodes(ctx context.Context, runID, patientID string) ([]domain.EpisodeResult, error)

	// Close releases the underlying database resources.
	Close() error
}
