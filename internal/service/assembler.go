package service

import (
	"sort"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Component names used in the long-format export. Per-item rows are prefixed
// with their category.
const (
	componentEventSequence      = "event_sequence"
	componentClinicalIndicators = "clinical_indicators"
	componentOutcome            = "outcome"
	componentDataQuality        = "data_quality"
	componentOverall            = "overall"
)

// Assembler flattens an episode's validation flags and confidence breakdown
// into the export row shapes. It performs no computation beyond restructuring;
// every number it emits comes straight from the inputs.
type Assembler struct{}

// NewAssembler creates a report assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// SummaryRow builds the flat per-episode summary record.
func (a *Assembler) SummaryRow(result domain.EpisodeResult) domain.EpisodeSummaryRow {
	ep := result.Episode
	return domain.EpisodeSummaryRow{
		PatientID:         ep.PatientID,
		EpisodeNumber:     ep.Number,
		StartDate:         ep.StartDate,
		EndDate:           ep.EndDate,
		DurationWeeks:     ep.DurationWeeks,
		ConfidenceScore:   result.ConfidenceScore,
		HasTemporalIssues: result.Validation.HasTemporalIssues(),
		HasClinicalIssues: result.Validation.HasClinicalIssues(),
		HasOutcomeIssues:  result.Validation.HasOutcomeIssues(),
	}
}

// ComponentRows builds the long-format records: one row per scored item of the
// event-sequence and clinical-indicator categories, one row each for outcome,
// data quality, and the overall score. Item rows are emitted in sorted name
// order so the output is deterministic.
func (a *Assembler) ComponentRows(result domain.EpisodeResult) []domain.ComponentRow {
	ep := result.Episode
	report := result.Confidence

	rows := make([]domain.ComponentRow, 0,
		len(report.EventSequence.Components)+len(report.ClinicalIndicators.Components)+3)

	rows = append(rows, itemRows(ep, componentEventSequence, report.EventSequence)...)
	rows = append(rows, itemRows(ep, componentClinicalIndicators, report.ClinicalIndicators)...)

	rows = append(rows, domain.ComponentRow{
		PatientID:     ep.PatientID,
		EpisodeNumber: ep.Number,
		Component:     componentOutcome,
		Score:         report.Outcome.Score,
		MaxPossible:   report.Outcome.MaxPossible,
		Details:       categoryDetails(report.Outcome),
	})
	rows = append(rows, domain.ComponentRow{
		PatientID:     ep.PatientID,
		EpisodeNumber: ep.Number,
		Component:     componentDataQuality,
		Score:         report.DataQuality.Score,
		MaxPossible:   report.DataQuality.MaxPossible,
		Details:       categoryDetails(report.DataQuality),
	})
	rows = append(rows, domain.ComponentRow{
		PatientID:     ep.PatientID,
		EpisodeNumber: ep.Number,
		Component:     componentOverall,
		Score:         report.Overall.Score,
		MaxPossible:   report.Overall.MaxPossible,
		Details:       "",
	})

	return rows
}

// itemRows flattens a category's components into prefixed per-item rows.
func itemRows(ep domain.Episode, category string, cat domain.CategoryScore) []domain.ComponentRow {
	names := make([]string, 0, len(cat.Components))
	for name := range cat.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]domain.ComponentRow, 0, len(names))
	for _, name := range names {
		detail := cat.Components[name]
		rows = append(rows, domain.ComponentRow{
			PatientID:     ep.PatientID,
			EpisodeNumber: ep.Number,
			Component:     category + ":" + name,
			Score:         detail.Score,
			MaxPossible:   detail.MaxPossible,
			Details:       detail.Details,
		})
	}
	return rows
}

// categoryDetails joins a single-row category's component annotations.
func categoryDetails(cat domain.CategoryScore) string {
	names := make([]string, 0, len(cat.Components))
	for name := range cat.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	details := ""
	for i, name := range names {
		if i > 0 {
			details += "; "
		}
		details += name + ": " + cat.Components[name].Details
	}
	return details
}
