package service

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// epoch anchors numeric day-offset values, matching the extract convention.
var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order for non-numeric values.
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// Normalizer turns a wide patient row into a flat, chronologically sorted
// sequence of typed events. Values that are neither numeric offsets nor
// parseable dates are dropped, not errors; partial records degrade the
// confidence score downstream instead of failing the run.
type Normalizer struct {
	logger *logrus.Logger
}

// NewNormalizer creates an event normalizer.
func NewNormalizer(logger *logrus.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize emits one event per populated *_date column, sorted ascending by
// date. The sort is stable, so events on the same date keep the dataset's
// column order; no other cross-type tie order is guaranteed.
func (n *Normalizer) Normalize(row domain.PatientRow, dateColumns []string) []domain.Event {
	events := make([]domain.Event, 0, len(row.Values))

	for _, col := range dateColumns {
		raw, ok := row.Values[col]
		if !ok {
			continue
		}
		date, ok := n.coerceDate(raw)
		if !ok {
			n.logger.WithFields(logrus.Fields{
				"patient_id": row.PatientID,
				"column":     col,
				"value":      raw,
			}).Debug("Dropping unparseable date value")
			continue
		}
		events = append(events, domain.Event{
			PatientID: row.PatientID,
			Type:      strings.TrimSuffix(col, "_date"),
			Date:      date,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})

	return events
}

// coerceDate interprets a raw cell: a numeric value is a day offset from the
// 1970-01-01 epoch, anything else is tried against the known date layouts.
func (n *Normalizer) coerceDate(raw string) (time.Time, bool) {
	if isNumeric(raw) {
		if offset, err := strconv.ParseFloat(raw, 64); err == nil {
			return epoch.AddDate(0, 0, int(offset)), true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// isNumeric reports whether s is a plain signed decimal number. Date strings
// contain separators and fail this check before any float parsing happens.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	dot := false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}
