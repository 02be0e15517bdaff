package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CleanEpisodeHasNoIssues(t *testing.T) {
	// Arrange: a well-formed pregnancy timeline
	v := NewValidator(testValidationConfig(), testLogger())
	ep := episodeOf(
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-02-01"),
		ev("dating_scan", "2020-02-20"),
		ev("antenatal_screening", "2020-04-01"),
		ev("live_birth", "2020-09-20"),
	)

	// Act
	result := v.Validate(ep)

	// Assert
	assert.False(t, result.HasTemporalIssues())
	assert.False(t, result.HasClinicalIssues())
	assert.False(t, result.HasOutcomeIssues())
}

func TestValidator_FlagsExcessiveDuration(t *testing.T) {
	// Arrange: 300-day episode against a 294-day maximum
	v := NewValidator(testValidationConfig(), testLogger())
	ep := episodeOf(
		ev("pregnancy_test", "2020-01-01"),
		ev("live_birth", "2020-10-27"),
	)
	require.Equal(t, 300, ep.DurationDays)

	// Act
	result := v.Validate(ep)

	// Assert: key presence is the contract, message text is free to change
	assert.Contains(t, result.Temporal, IssueDuration)
	assert.True(t, result.HasTemporalIssues())
}

func TestValidator_FlagsLateBooking(t *testing.T) {
	// Arrange: booking visit 100 days after the pregnancy test
	v := NewValidator(testValidationConfig(), testLogger())
	ep := episodeOf(
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-04-10"),
	)

	// Act
	result := v.Validate(ep)

	// Assert
	assert.Contains(t, result.Temporal, IssueBookingDelay)
}

func TestValidator_BookingCheckSkippedWhenEventAbsent(t *testing.T) {
	// Arrange: no pregnancy test at all
	v := NewValidator(testValidationConfig(), testLogger())
	ep := episodeOf(ev("booking_visit", "2020-04-10"))

	// Act
	result := v.Validate(ep)

	// Assert: missing data is not an issue
	assert.NotContains(t, result.Temporal, IssueBookingDelay)
}

func TestValidator_ScanIntervalWindow(t *testing.T) {
	tests := []struct {
		name     string
		scanDate string
		scrnDate string
		flagged  bool
	}{
		{"too close", "2020-03-01", "2020-03-05", true},
		{"lower bound", "2020-03-01", "2020-03-15", false},
		{"inside window", "2020-03-01", "2020-04-15", false},
		{"upper bound", "2020-03-01", "2020-05-24", false},
		{"too far", "2020-03-01", "2020-06-15", true},
	}

	v := NewValidator(testValidationConfig(), testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := episodeOf(
				ev("dating_scan", tt.scanDate),
				ev("antenatal_screening", tt.scrnDate),
			)

			result := v.Validate(ep)

			if tt.flagged {
				assert.Contains(t, result.Temporal, IssueScanInterval)
			} else {
				assert.NotContains(t, result.Temporal, IssueScanInterval)
			}
		})
	}
}

func TestValidator_FlagsTooManyDatedEvents(t *testing.T) {
	// Arrange: six dated events against a maximum of five. Every dated event
	// counts, not only condition-type events.
	v := NewValidator(testValidationConfig(), testLogger())
	ep := episodeOf(
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-01-10"),
		ev("dating_scan", "2020-01-20"),
		ev("antenatal_screening", "2020-02-01"),
		ev("antenatal_risk", "2020-02-10"),
		ev("antenatal_procedures", "2020-02-20"),
	)

	// Act
	result := v.Validate(ep)

	// Assert
	assert.Contains(t, result.Clinical, IssueTooManyConditions)
}

func TestValidator_GestationalAgeOutsideWindow(t *testing.T) {
	v := NewValidator(testValidationConfig(), testLogger())

	t.Run("below minimum", func(t *testing.T) {
		ep := episodeOf(
			ev("pregnancy_test", "2020-01-01"),
			ev("dating_scan", "2020-02-01"),
		)

		result := v.Validate(ep)

		assert.Contains(t, result.Outcome, IssueGestationalAge)
	})

	t.Run("above maximum", func(t *testing.T) {
		ep := episodeOf(
			ev("pregnancy_test", "2020-01-01"),
			ev("live_birth", "2020-12-01"),
		)

		result := v.Validate(ep)

		assert.Contains(t, result.Outcome, IssueGestationalAge)
	})

	t.Run("inside window", func(t *testing.T) {
		ep := episodeOf(
			ev("pregnancy_test", "2020-01-01"),
			ev("live_birth", "2020-09-20"),
		)

		result := v.Validate(ep)

		assert.NotContains(t, result.Outcome, IssueGestationalAge)
	})
}

func TestValidator_ChecksAreIndependent(t *testing.T) {
	// Arrange: an episode that trips several checks at once
	v := NewValidator(testValidationConfig(), testLogger())
	ep := episodeOf(
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-04-20"),
		ev("dating_scan", "2020-05-01"),
		ev("antenatal_screening", "2020-05-03"),
		ev("antenatal_risk", "2020-06-01"),
		ev("antenatal_procedures", "2020-07-01"),
		ev("live_birth", "2020-11-15"),
	)

	// Act
	result := v.Validate(ep)

	// Assert: every applicable check reports, none short-circuits the others
	assert.Contains(t, result.Temporal, IssueDuration)
	assert.Contains(t, result.Temporal, IssueBookingDelay)
	assert.Contains(t, result.Temporal, IssueScanInterval)
	assert.Contains(t, result.Clinical, IssueTooManyConditions)
	assert.Contains(t, result.Outcome, IssueGestationalAge)
}
