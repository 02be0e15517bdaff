package service

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Pipeline runs the full per-patient analysis: normalize, segment, validate,
// and score. Patients are independent, so they fan out across a bounded worker
// pool; within one patient segmentation stays strictly sequential. Results are
// merged in deterministic (patient, episode) order regardless of worker
// scheduling.
type Pipeline struct {
	cfg        *domain.Config
	logger     *logrus.Logger
	normalizer *Normalizer
	segmenter  *Segmenter
	validator  *Validator
	scorer     *ScoringEngine
}

// NewPipeline wires the pipeline components from one validated configuration.
func NewPipeline(cfg *domain.Config, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		normalizer: NewNormalizer(logger),
		segmenter:  NewSegmenter(cfg.Segmentation, logger),
		validator:  NewValidator(cfg.Validation, logger),
		scorer:     NewScoringEngine(cfg.Scoring, cfg.Validation, logger),
	}
}

// patientOutput carries one worker's finished patient back to the collector.
type patientOutput struct {
	patientID string
	events    []domain.Event
	results   []domain.EpisodeResult
}

// Run processes the whole dataset and returns the complete run result.
func (p *Pipeline) Run(ctx context.Context, ds *domain.Dataset) (*domain.RunResult, error) {
	runID := uuid.New().String()
	started := time.Now()

	idx := BuildIndicatorIndex(ds.DateColumns, p.cfg.Scoring.IndicatorWeights)
	outcomeType := p.cfg.Scoring.DefaultOutcomeType

	workers := p.cfg.Pipeline.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"patients": len(ds.Rows),
		"workers":  workers,
	}).Info("Starting pipeline run")

	rowCh := make(chan domain.PatientRow)
	outCh := make(chan patientOutput, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rowCh {
				outCh <- p.processPatient(row, ds.DateColumns, idx, outcomeType)
			}
		}()
	}

	go func() {
		defer close(rowCh)
		for _, row := range ds.Rows {
			select {
			case rowCh <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	patientEvents := make(map[string][]domain.Event, len(ds.Rows))
	var results []domain.EpisodeResult
	for out := range outCh {
		patientEvents[out.patientID] = out.events
		results = append(results, out.results...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Worker completion order is nondeterministic; restore a stable order.
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i].Episode, results[j].Episode
		if a.PatientID != b.PatientID {
			return a.PatientID < b.PatientID
		}
		return a.Number < b.Number
	})

	stats := ComputeCohortStats(patientEvents, len(results))

	p.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"episodes": len(results),
		"duration": time.Since(started),
	}).Info("Pipeline run completed")

	return &domain.RunResult{
		RunID:       runID,
		GeneratedAt: started.UTC(),
		Results:     results,
		Stats:       stats,
	}, nil
}

// processPatient runs the sequential per-patient stages.
func (p *Pipeline) processPatient(row domain.PatientRow, dateColumns []string, idx IndicatorIndex, outcomeType string) patientOutput {
	events := p.normalizer.Normalize(row, dateColumns)
	episodes := p.segmenter.Segment(row.PatientID, events)

	results := make([]domain.EpisodeResult, 0, len(episodes))
	for i := range episodes {
		ep := episodes[i]
		report := p.scorer.Score(&ep, idx, outcomeType)
		results = append(results, domain.EpisodeResult{
			Episode:         ep,
			Validation:      p.validator.Validate(&ep),
			Confidence:      report,
			ConfidenceScore: report.Overall.Score,
		})
	}

	return patientOutput{patientID: row.PatientID, events: events, results: results}
}
