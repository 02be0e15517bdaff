package service

import (
	"strings"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Event type families used for cohort coverage flags. Antenatal events mark
// pregnancy care, outcome events mark a recorded end of pregnancy; a patient
// with one family but not the other is a data-quality signal for the cohort
// report.
var (
	antenatalPrefixes = []string{"antenatal", "pregnancy_test", "booking_visit", "dating_scan"}
	outcomeTypes      = []string{"live_birth", "stillbirth"}
)

// ComputeCohortStats aggregates per-patient coverage flags over the whole run.
func ComputeCohortStats(patientEvents map[string][]domain.Event, totalEpisodes int) domain.CohortStats {
	stats := domain.CohortStats{
		Patients: len(patientEvents),
		Episodes: totalEpisodes,
	}

	for _, events := range patientEvents {
		if len(events) == 0 {
			continue
		}
		stats.PatientsWithEvents++

		hasAntenatal, hasOutcome := false, false
		for _, e := range events {
			if isAntenatalType(e.Type) {
				hasAntenatal = true
			}
			if isOutcomeType(e.Type) {
				hasOutcome = true
			}
		}

		if hasAntenatal {
			stats.HasAntenatal++
		}
		if hasOutcome {
			stats.HasOutcome++
		}
		if hasAntenatal && !hasOutcome {
			stats.AntenatalNoOutcome++
		}
		if hasOutcome && !hasAntenatal {
			stats.OutcomeNoAntenatal++
		}
	}

	if stats.PatientsWithEvents > 0 {
		stats.MeanEpisodes = float64(totalEpisodes) / float64(stats.PatientsWithEvents)
	}

	return stats
}

func isAntenatalType(eventType string) bool {
	for _, prefix := range antenatalPrefixes {
		if strings.HasPrefix(eventType, prefix) {
			return true
		}
	}
	return false
}

func isOutcomeType(eventType string) bool {
	for _, t := range outcomeTypes {
		if eventType == t {
			return true
		}
	}
	return false
}
