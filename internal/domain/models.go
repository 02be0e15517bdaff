package domain

import (
	"time"
)

// Core Data Models

// Event is a single dated clinical event for one patient. Events are created by
// the normalizer from a wide extract row and are never mutated afterwards.
type Event struct {
	PatientID string    `json:"patient_id"`
	Type      string    `json:"event_type"`
	Date      time.Time `json:"event_date"`
}

// Episode is a contiguous run of a patient's events grouped by the gap threshold.
// StartDate and EndDate are always derived from the member events, never set
// independently. Number is 1-based and unique only within a patient.
type Episode struct {
	PatientID     string    `json:"patient_id"`
	Number        int       `json:"episode_number"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Events        []Event   `json:"member_events"`
	DurationDays  int       `json:"duration_days"`
	DurationWeeks float64   `json:"duration_weeks"`
}

// EventTypes returns the member event types in chronological order, duplicates
// included.
func (e *Episode) EventTypes() []string {
	types := make([]string, 0, len(e.Events))
	for _, ev := range e.Events {
		types = append(types, ev.Type)
	}
	return types
}

// HasEventType reports whether the episode contains at least one event of the
// given type.
func (e *Episode) HasEventType(eventType string) bool {
	for _, ev := range e.Events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

// EarliestEvent returns the earliest event of the given type, or nil if the
// episode has none.
func (e *Episode) EarliestEvent(eventType string) *Event {
	for i := range e.Events {
		if e.Events[i].Type == eventType {
			return &e.Events[i]
		}
	}
	return nil
}

// Validation Models

// ValidationResult holds the named data-quality issues found for one episode.
// An empty map means no issues in that category; key presence is the flag,
// there is no severity.
type ValidationResult struct {
	Temporal map[string]string `json:"temporal"`
	Clinical map[string]string `json:"clinical"`
	Outcome  map[string]string `json:"outcome"`
}

// NewValidationResult returns an empty result with all categories initialized.
func NewValidationResult() ValidationResult {
	return ValidationResult{
		Temporal: map[string]string{},
		Clinical: map[string]string{},
		Outcome:  map[string]string{},
	}
}

// HasTemporalIssues reports whether any temporal check flagged the episode.
func (v ValidationResult) HasTemporalIssues() bool { return len(v.Temporal) > 0 }

// HasClinicalIssues reports whether any clinical check flagged the episode.
func (v ValidationResult) HasClinicalIssues() bool { return len(v.Clinical) > 0 }

// HasOutcomeIssues reports whether any outcome check flagged the episode.
func (v ValidationResult) HasOutcomeIssues() bool { return len(v.Outcome) > 0 }

// Confidence Models

// ComponentDetail is one scored item inside a category: its awarded score, the
// maximum it could have contributed, and the presence annotation shown in
// reports ("Present (0.15)" / "Missing").
type ComponentDetail struct {
	Score       float64 `json:"score"`
	MaxPossible float64 `json:"max_possible"`
	Details     string  `json:"details"`
}

// CategoryScore is the explainable breakdown for one scoring category. Score is
// the raw sum of awarded item weights and MaxPossible the sum of all configured
// item weights, so summing the component contributions reproduces Score exactly.
type CategoryScore struct {
	Score       float64                    `json:"score"`
	MaxPossible float64                    `json:"max_possible"`
	Components  map[string]ComponentDetail `json:"components"`
}

// Normalized returns Score/MaxPossible capped at 1.0, or 0 when MaxPossible is
// zero (only reachable for an unknown outcome type; empty weight tables are
// rejected at startup).
func (c CategoryScore) Normalized() float64 {
	if c.MaxPossible <= 0 {
		return 0
	}
	n := c.Score / c.MaxPossible
	if n > 1.0 {
		return 1.0
	}
	return n
}

// ScoreSummary is a bare score/max pair, used for the overall record.
type ScoreSummary struct {
	Score       float64 `json:"score"`
	MaxPossible float64 `json:"max_possible"`
}

// ConfidenceReport is the full per-episode scoring breakdown: four category
// records plus the combined overall score.
type ConfidenceReport struct {
	EventSequence      CategoryScore `json:"event_sequence"`
	ClinicalIndicators CategoryScore `json:"clinical_indicators"`
	Outcome            CategoryScore `json:"outcome"`
	DataQuality        CategoryScore `json:"data_quality"`
	Overall            ScoreSummary  `json:"overall"`
}

// Result Models

// EpisodeResult is the episode-level output record: the episode enriched with
// its validation flags and confidence breakdown.
type EpisodeResult struct {
	Episode         Episode          `json:"episode"`
	Validation      ValidationResult `json:"validation_results"`
	Confidence      ConfidenceReport `json:"confidence_report"`
	ConfidenceScore float64          `json:"confidence_score"`
}

// ComponentRow is one row of the long-format export: a single scored item with
// its presence annotation.
type ComponentRow struct {
	PatientID     string  `json:"patient_id"`
	EpisodeNumber int     `json:"episode_num"`
	Component     string  `json:"component"`
	Score         float64 `json:"score"`
	MaxPossible   float64 `json:"max_possible"`
	Details       string  `json:"details"`
}

// EpisodeSummaryRow is one row of the flat per-episode summary export.
type EpisodeSummaryRow struct {
	PatientID         string    `json:"patient_id"`
	EpisodeNumber     int       `json:"episode_num"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	DurationWeeks     float64   `json:"duration_weeks"`
	ConfidenceScore   float64   `json:"confidence_score"`
	HasTemporalIssues bool      `json:"has_temporal_issues"`
	HasClinicalIssues bool      `json:"has_clinical_issues"`
	HasOutcomeIssues  bool      `json:"has_outcome_issues"`
}

// Input Models

// PatientRow is one row of the wide input table: a patient identifier plus the
// raw string value of every populated *_date column.
type PatientRow struct {
	PatientID string
	Values    map[string]string
}

// Dataset is the parsed wide input table. DateColumns preserves the source
// column order, which also fixes the tie order for same-day events.
type Dataset struct {
	DateColumns []string
	Rows        []PatientRow
}

// Run Models

// CohortStats summarizes antenatal/outcome coverage across the whole cohort.
type CohortStats struct {
	Patients           int     `json:"patients"`
	PatientsWithEvents int     `json:"patients_with_events"`
	Episodes           int     `json:"episodes"`
	MeanEpisodes       float64 `json:"mean_episodes_per_patient"`
	HasAntenatal       int     `json:"has_antenatal"`
	HasOutcome         int     `json:"has_outcome"`
	AntenatalNoOutcome int     `json:"antenatal_no_outcome"`
	OutcomeNoAntenatal int     `json:"outcome_no_antenatal"`
}

// RunResult is the complete output of one pipeline run.
type RunResult struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Results     []EpisodeResult `json:"results"`
	Stats       CohortStats     `json:"stats"`
}
