package service

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Shared fixtures for the pipeline stage tests.

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ev(eventType, date string) domain.Event {
	return domain.Event{PatientID: "p1", Type: eventType, Date: day(date)}
}

func testSegmentationConfig() domain.SegmentationConfig {
	return domain.SegmentationConfig{
		GapThresholdDays: 90,
		GapComparison:    domain.ComparePrevious,
	}
}

func testValidationConfig() domain.ValidationConfig {
	return domain.ValidationConfig{
		MaxDurationDays:         294,
		MaxBookingDelayDays:     84,
		ScanIntervalMinDays:     14,
		ScanIntervalMaxDays:     84,
		MaxConcurrentConditions: 5,
		GestationalAgeMinDays:   154,
		GestationalAgeMaxDays:   294,
	}
}

func testScoringConfig() domain.ScoringConfig {
	return domain.ScoringConfig{
		EventWeights: map[string]float64{
			"pregnancy_test":       0.15,
			"booking_visit":        0.20,
			"dating_scan":          0.15,
			"antenatal_screening":  0.10,
			"antenatal_risk":       0.10,
			"antenatal_procedures": 0.10,
		},
		IndicatorWeights: map[string]float64{
			"preeclampsia":        0.10,
			"htn":                 0.08,
			"diabetes":            0.08,
			"infection":           0.06,
			"other_complications": 0.04,
		},
		Outcomes: map[string]domain.OutcomeProfile{
			"live_birth": {
				RequiredEvents:        []string{"live_birth"},
				GestationalAgeMinDays: 259,
				GestationalAgeMaxDays: 294,
				Weight:                0.8,
			},
			"stillbirth": {
				RequiredEvents:        []string{"stillbirth"},
				GestationalAgeMinDays: 196,
				GestationalAgeMaxDays: 294,
				Weight:                0.7,
			},
			"miscarriage": {
				RequiredEvents:        []string{},
				GestationalAgeMinDays: 28,
				GestationalAgeMaxDays: 154,
				Weight:                0.5,
			},
		},
		DataQuality: domain.DataQualityConfig{
			CompletenessWeight: 0.4,
			ConsistencyWeight:  0.4,
			PlausibilityWeight: 0.2,
			MinRequiredEvents:  4,
		},
		DefaultOutcomeType: "live_birth",
	}
}

func testConfig() *domain.Config {
	return &domain.Config{
		Segmentation: testSegmentationConfig(),
		Validation:   testValidationConfig(),
		Scoring:      testScoringConfig(),
		Pipeline:     domain.PipelineConfig{Workers: 2},
	}
}

// episodeOf builds an episode from events the way the segmenter would.
func episodeOf(events ...domain.Event) *domain.Episode {
	seg := NewSegmenter(domain.SegmentationConfig{
		GapThresholdDays: 1 << 20, // never split
		GapComparison:    domain.ComparePrevious,
	}, testLogger())
	episodes := seg.Segment("p1", events)
	return &episodes[0]
}
