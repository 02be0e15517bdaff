package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregnancy-episode-engine/internal/domain"
)

func testEpisodeResult(t *testing.T) domain.EpisodeResult {
	t.Helper()

	e := NewScoringEngine(testScoringConfig(), testValidationConfig(), testLogger())
	v := NewValidator(testValidationConfig(), testLogger())
	ep := episodeOf(
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-02-01"),
		ev("dating_scan", "2020-03-01"),
		ev("live_birth", "2020-09-27"),
	)
	report := e.Score(ep, IndicatorIndex{}, "live_birth")

	return domain.EpisodeResult{
		Episode:         *ep,
		Validation:      v.Validate(ep),
		Confidence:      report,
		ConfidenceScore: report.Overall.Score,
	}
}

func TestAssembler_SummaryRow(t *testing.T) {
	// Arrange
	a := NewAssembler()
	result := testEpisodeResult(t)

	// Act
	row := a.SummaryRow(result)

	// Assert
	assert.Equal(t, "p1", row.PatientID)
	assert.Equal(t, 1, row.EpisodeNumber)
	assert.Equal(t, result.Episode.StartDate, row.StartDate)
	assert.Equal(t, result.Episode.EndDate, row.EndDate)
	assert.Equal(t, result.ConfidenceScore, row.ConfidenceScore)
	assert.Equal(t, result.Validation.HasTemporalIssues(), row.HasTemporalIssues)
}

func TestAssembler_ComponentRowShape(t *testing.T) {
	// Arrange
	a := NewAssembler()
	result := testEpisodeResult(t)

	// Act
	rows := a.ComponentRows(result)

	// Assert: one row per event weight and indicator weight, plus outcome,
	// data quality, and overall
	expected := len(testScoringConfig().EventWeights) + len(testScoringConfig().IndicatorWeights) + 3
	require.Len(t, rows, expected)

	byComponent := make(map[string]domain.ComponentRow, len(rows))
	for _, row := range rows {
		assert.Equal(t, "p1", row.PatientID)
		assert.Equal(t, 1, row.EpisodeNumber)
		byComponent[row.Component] = row
	}
	assert.Contains(t, byComponent, "event_sequence:pregnancy_test")
	assert.Contains(t, byComponent, "clinical_indicators:diabetes")
	assert.Contains(t, byComponent, "outcome")
	assert.Contains(t, byComponent, "data_quality")
	assert.Contains(t, byComponent, "overall")
	assert.Equal(t, result.ConfidenceScore, byComponent["overall"].Score)
}

func TestAssembler_ItemRowsSumToCategoryScore(t *testing.T) {
	// Arrange
	a := NewAssembler()
	result := testEpisodeResult(t)

	// Act
	rows := a.ComponentRows(result)

	// Assert: flattening loses nothing; summing a category's item rows gives
	// back the category score
	sums := map[string]float64{}
	for _, row := range rows {
		if i := strings.IndexByte(row.Component, ':'); i >= 0 {
			sums[row.Component[:i]] += row.Score
		}
	}
	assert.InDelta(t, result.Confidence.EventSequence.Score, sums["event_sequence"], 1e-9)
	assert.InDelta(t, result.Confidence.ClinicalIndicators.Score, sums["clinical_indicators"], 1e-9)
}

func TestAssembler_ItemRowsAreSortedByName(t *testing.T) {
	// Arrange
	a := NewAssembler()
	result := testEpisodeResult(t)

	// Act
	rows := a.ComponentRows(result)

	// Assert: deterministic output ordering within each category
	var prev string
	for _, row := range rows {
		if !strings.HasPrefix(row.Component, "event_sequence:") {
			continue
		}
		assert.Greater(t, row.Component, prev)
		prev = row.Component
	}
}
