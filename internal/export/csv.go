package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Writer emits the delimited output artifacts consumed by the downstream
// reporting stage. Dates are ISO, scores carry four decimal places, durations
// one.
type Writer struct {
	logger *logrus.Logger
}

// NewWriter creates an export writer.
func NewWriter(logger *logrus.Logger) *Writer {
	return &Writer{logger: logger}
}

// componentHeader matches the long-format table contract.
var componentHeader = []string{"patient_id", "episode_num", "component", "score", "max_possible", "details"}

// summaryHeader matches the flat per-episode summary contract.
var summaryHeader = []string{
	"patient_id", "episode_num", "start_date", "end_date", "duration_weeks",
	"confidence_score", "has_temporal_issues", "has_clinical_issues", "has_outcome_issues",
}

// WriteComponents writes the long-format component table.
func (w *Writer) WriteComponents(dst io.Writer, rows []domain.ComponentRow) error {
	cw := csv.NewWriter(dst)

	if err := cw.Write(componentHeader); err != nil {
		return fmt.Errorf("writing component header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.PatientID,
			strconv.Itoa(row.EpisodeNumber),
			row.Component,
			formatScore(row.Score),
			formatScore(row.MaxPossible),
			row.Details,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing component row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing component table: %w", err)
	}

	w.logger.WithField("rows", len(rows)).Info("Wrote component table")
	return nil
}

// WriteSummary writes the flat per-episode summary table.
func (w *Writer) WriteSummary(dst io.Writer, rows []domain.EpisodeSummaryRow) error {
	cw := csv.NewWriter(dst)

	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("writing summary header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.PatientID,
			strconv.Itoa(row.EpisodeNumber),
			row.StartDate.Format("2006-01-02"),
			row.EndDate.Format("2006-01-02"),
			strconv.FormatFloat(row.DurationWeeks, 'f', 1, 64),
			formatScore(row.ConfidenceScore),
			strconv.FormatBool(row.HasTemporalIssues),
			strconv.FormatBool(row.HasClinicalIssues),
			strconv.FormatBool(row.HasOutcomeIssues),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing summary row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing summary table: %w", err)
	}

	w.logger.WithField("rows", len(rows)).Info("Wrote summary table")
	return nil
}

// WriteCohortStats writes the cohort coverage figures as a key,value table.
func (w *Writer) WriteCohortStats(dst io.Writer, stats domain.CohortStats) error {
	cw := csv.NewWriter(dst)

	records := [][]string{
		{"metric", "value"},
		{"patients", strconv.Itoa(stats.Patients)},
		{"patients_with_events", strconv.Itoa(stats.PatientsWithEvents)},
		{"episodes", strconv.Itoa(stats.Episodes)},
		{"mean_episodes_per_patient", strconv.FormatFloat(stats.MeanEpisodes, 'f', 2, 64)},
		{"has_antenatal", strconv.Itoa(stats.HasAntenatal)},
		{"has_outcome", strconv.Itoa(stats.HasOutcome)},
		{"antenatal_no_outcome", strconv.Itoa(stats.AntenatalNoOutcome)},
		{"outcome_no_antenatal", strconv.Itoa(stats.OutcomeNoAntenatal)},
	}
	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing cohort stats: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing cohort stats: %w", err)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
