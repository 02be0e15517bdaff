package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregnancy-episode-engine/internal/domain"
)

func TestSegmenter_SplitsOnLargeGap(t *testing.T) {
	// Arrange: two clusters 200 days apart
	seg := NewSegmenter(testSegmentationConfig(), testLogger())
	events := []domain.Event{
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-02-15"),
		ev("pregnancy_test", "2020-09-01"),
		ev("booking_visit", "2020-10-01"),
	}

	// Act
	episodes := seg.Segment("p1", events)

	// Assert
	require.Len(t, episodes, 2)
	assert.Equal(t, 1, episodes[0].Number)
	assert.Equal(t, 2, episodes[1].Number)
	assert.Equal(t, day("2020-01-01"), episodes[0].StartDate)
	assert.Equal(t, day("2020-02-15"), episodes[0].EndDate)
	assert.Equal(t, day("2020-09-01"), episodes[1].StartDate)
	assert.Len(t, episodes[0].Events, 2)
	assert.Len(t, episodes[1].Events, 2)
}

func TestSegmenter_ChainedEventsStayTogether(t *testing.T) {
	// Arrange: five events, each 80 days after the last. Total span is 320 days
	// but no adjacent gap exceeds the 90-day threshold.
	seg := NewSegmenter(testSegmentationConfig(), testLogger())
	events := []domain.Event{
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-03-21"),
		ev("dating_scan", "2020-06-09"),
		ev("antenatal_screening", "2020-08-28"),
		ev("antenatal_risk", "2020-11-16"),
	}

	// Act
	episodes := seg.Segment("p1", events)

	// Assert: duration may exceed any plausible pregnancy; that is the
	// validator's concern, not the segmenter's
	require.Len(t, episodes, 1)
	assert.Equal(t, 320, episodes[0].DurationDays)
	assert.Len(t, episodes[0].Events, 5)
}

func TestSegmenter_GapExactlyAtThresholdDoesNotSplit(t *testing.T) {
	// Arrange: 90 days apart with a 90-day threshold
	seg := NewSegmenter(testSegmentationConfig(), testLogger())
	events := []domain.Event{
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-03-31"),
	}

	// Act
	episodes := seg.Segment("p1", events)

	// Assert: only strictly greater gaps split
	require.Len(t, episodes, 1)
}

func TestSegmenter_SingleEventEpisode(t *testing.T) {
	// Arrange
	seg := NewSegmenter(testSegmentationConfig(), testLogger())

	// Act
	episodes := seg.Segment("p1", []domain.Event{ev("pregnancy_test", "2020-01-01")})

	// Assert: zero-duration, kept for downstream validation
	require.Len(t, episodes, 1)
	assert.Equal(t, 0, episodes[0].DurationDays)
	assert.Equal(t, 0.0, episodes[0].DurationWeeks)
	assert.Equal(t, episodes[0].StartDate, episodes[0].EndDate)
}

func TestSegmenter_NoEventsNoEpisodes(t *testing.T) {
	seg := NewSegmenter(testSegmentationConfig(), testLogger())

	assert.Nil(t, seg.Segment("p1", nil))
}

func TestSegmenter_GapDirectionsProduceIdenticalPartitions(t *testing.T) {
	// Arrange: a sequence with gaps straddling the threshold
	events := []domain.Event{
		ev("pregnancy_test", "2020-01-01"),
		ev("booking_visit", "2020-02-01"),
		ev("pregnancy_test", "2020-07-01"),
		ev("dating_scan", "2020-07-20"),
		ev("pregnancy_test", "2021-03-01"),
	}
	prev := NewSegmenter(domain.SegmentationConfig{
		GapThresholdDays: 90, GapComparison: domain.ComparePrevious,
	}, testLogger())
	next := NewSegmenter(domain.SegmentationConfig{
		GapThresholdDays: 90, GapComparison: domain.CompareNext,
	}, testLogger())

	// Act
	fromPrev := prev.Segment("p1", events)
	fromNext := next.Segment("p1", events)

	// Assert: on sorted input the two directions measure the same intervals
	require.Len(t, fromPrev, 3)
	require.Equal(t, len(fromPrev), len(fromNext))
	for i := range fromPrev {
		assert.Equal(t, fromPrev[i].StartDate, fromNext[i].StartDate)
		assert.Equal(t, fromPrev[i].EndDate, fromNext[i].EndDate)
		assert.Equal(t, len(fromPrev[i].Events), len(fromNext[i].Events))
	}
}

func TestSegmenter_AdjacentGapInvariant(t *testing.T) {
	// Arrange
	seg := NewSegmenter(testSegmentationConfig(), testLogger())
	events := []domain.Event{
		ev("pregnancy_test", "2019-01-01"),
		ev("booking_visit", "2019-01-20"),
		ev("pregnancy_test", "2019-08-01"),
		ev("dating_scan", "2019-08-15"),
		ev("antenatal_screening", "2020-06-01"),
	}

	// Act
	episodes := seg.Segment("p1", events)

	// Assert: within every episode, adjacent events are within the threshold
	for _, ep := range episodes {
		for i := 1; i < len(ep.Events); i++ {
			gap := daysBetween(ep.Events[i-1].Date, ep.Events[i].Date)
			assert.LessOrEqual(t, gap, float64(90))
		}
	}
	// And every event appears in exactly one episode
	total := 0
	for _, ep := range episodes {
		total += len(ep.Events)
	}
	assert.Equal(t, len(events), total)
}
