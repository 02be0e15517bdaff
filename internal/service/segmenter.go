package service

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Segmenter partitions a patient's chronological event sequence into episodes:
// adjacent events further apart than the gap threshold never share an episode.
// Segmentation is strictly sequential within one patient; each decision depends
// on the neighboring event's date.
type Segmenter struct {
	cfg    domain.SegmentationConfig
	logger *logrus.Logger
}

// NewSegmenter creates an episode segmenter.
func NewSegmenter(cfg domain.SegmentationConfig, logger *logrus.Logger) *Segmenter {
	return &Segmenter{cfg: cfg, logger: logger}
}

// Segment groups the sorted events into episodes. Episode numbers are the
// 1-based rank of episode starts within the patient's timeline. A patient with
// one event yields one zero-duration episode; no events yields no episodes.
func (s *Segmenter) Segment(patientID string, events []domain.Event) []domain.Episode {
	if len(events) == 0 {
		return nil
	}

	starts := s.episodeStarts(events)

	var episodes []domain.Episode
	var current []domain.Event
	for i, e := range events {
		if starts[i] && len(current) > 0 {
			episodes = append(episodes, buildEpisode(patientID, len(episodes)+1, current))
			current = current[:0:0]
		}
		current = append(current, e)
	}
	episodes = append(episodes, buildEpisode(patientID, len(episodes)+1, current))

	s.logger.WithFields(logrus.Fields{
		"patient_id": patientID,
		"events":     len(events),
		"episodes":   len(episodes),
	}).Debug("Segmented patient timeline")

	return episodes
}

// episodeStarts marks the indices that open a new episode. The two legacy
// variants of this logic walked the gaps in opposite directions: one checked
// each event against its predecessor, the other checked each event against its
// successor and closed the episode after it. On a sorted sequence both measure
// the same adjacent intervals, so the resulting partitions agree; the setting
// is kept explicit because the deployed variants disagreed about direction.
func (s *Segmenter) episodeStarts(events []domain.Event) []bool {
	starts := make([]bool, len(events))
	starts[0] = true
	threshold := float64(s.cfg.GapThresholdDays)

	if s.cfg.GapComparison == domain.CompareNext {
		for i := 0; i+1 < len(events); i++ {
			if daysBetween(events[i].Date, events[i+1].Date) > threshold {
				starts[i+1] = true
			}
		}
		return starts
	}

	for i := 1; i < len(events); i++ {
		if daysBetween(events[i-1].Date, events[i].Date) > threshold {
			starts[i] = true
		}
	}
	return starts
}

// buildEpisode derives the span and durations from the member events. Start
// and end are never stored independently of membership.
func buildEpisode(patientID string, number int, events []domain.Event) domain.Episode {
	start, end := events[0].Date, events[0].Date
	for _, e := range events[1:] {
		if e.Date.Before(start) {
			start = e.Date
		}
		if e.Date.After(end) {
			end = e.Date
		}
	}

	durationDays := int(math.Round(end.Sub(start).Hours() / 24))
	members := make([]domain.Event, len(events))
	copy(members, events)

	return domain.Episode{
		PatientID:     patientID,
		Number:        number,
		StartDate:     start,
		EndDate:       end,
		Events:        members,
		DurationDays:  durationDays,
		DurationWeeks: float64(durationDays) / 7.0,
	}
}

// daysBetween returns the signed day count from a to b.
func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}
