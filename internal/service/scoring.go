package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// IndicatorIndex maps each configured clinical indicator to the event types
// that qualify for it. It is resolved once per dataset from the
// case-insensitive substring rule, so scoring never re-matches column names
// per episode.
type IndicatorIndex map[string][]string

// BuildIndicatorIndex resolves indicator names against the dataset's date
// columns. An indicator qualifies a column when the column's event type
// contains the indicator name, ignoring case.
func BuildIndicatorIndex(dateColumns []string, indicatorWeights map[string]float64) IndicatorIndex {
	idx := make(IndicatorIndex, len(indicatorWeights))
	for indicator := range indicatorWeights {
		needle := strings.ToLower(indicator)
		var types []string
		for _, col := range dateColumns {
			eventType := strings.TrimSuffix(col, "_date")
			if strings.Contains(strings.ToLower(eventType), needle) {
				types = append(types, eventType)
			}
		}
		idx[indicator] = types
	}
	return idx
}

// ScoringEngine computes the four weighted confidence sub-scores and combines
// them into one normalized overall score. It is a pure function of
// (episode, configuration); the weight tables are validated non-empty at
// startup, so no division here can hit a zero denominator except the unknown
// outcome type, which scores zero by contract.
type ScoringEngine struct {
	scoring    domain.ScoringConfig
	validation domain.ValidationConfig
	logger     *logrus.Logger
}

// NewScoringEngine creates a confidence scoring engine.
func NewScoringEngine(scoring domain.ScoringConfig, validation domain.ValidationConfig, logger *logrus.Logger) *ScoringEngine {
	return &ScoringEngine{scoring: scoring, validation: validation, logger: logger}
}

// Score produces the full confidence report for one episode.
func (e *ScoringEngine) Score(ep *domain.Episode, idx IndicatorIndex, outcomeType string) domain.ConfidenceReport {
	report := domain.ConfidenceReport{
		EventSequence:      e.scoreEventSequence(ep),
		ClinicalIndicators: e.scoreClinicalIndicators(ep, idx),
		Outcome:            e.scoreOutcome(ep, outcomeType),
		DataQuality:        e.scoreDataQuality(ep),
	}
	report.Overall = e.combine(report)

	e.logger.WithFields(logrus.Fields{
		"patient_id":     ep.PatientID,
		"episode_number": ep.Number,
		"overall_score":  report.Overall.Score,
	}).Debug("Scored episode")

	return report
}

// scoreEventSequence awards each configured event type's weight when the
// episode contains at least one event of that type.
func (e *ScoringEngine) scoreEventSequence(ep *domain.Episode) domain.CategoryScore {
	cat := domain.CategoryScore{Components: make(map[string]domain.ComponentDetail)}

	for eventType, weight := range e.scoring.EventWeights {
		cat.MaxPossible += weight
		if ep.HasEventType(eventType) {
			cat.Score += weight
			cat.Components[eventType] = presentDetail(weight)
		} else {
			cat.Components[eventType] = missingDetail(weight)
		}
	}
	return cat
}

// scoreClinicalIndicators awards each indicator's weight when any of its
// qualifying event types appears in the episode. An indicator with no
// qualifying column in the dataset simply stays missing.
func (e *ScoringEngine) scoreClinicalIndicators(ep *domain.Episode, idx IndicatorIndex) domain.CategoryScore {
	cat := domain.CategoryScore{Components: make(map[string]domain.ComponentDetail)}

	for indicator, weight := range e.scoring.IndicatorWeights {
		cat.MaxPossible += weight
		found := false
		for _, eventType := range idx[indicator] {
			if ep.HasEventType(eventType) {
				found = true
				break
			}
		}
		if found {
			cat.Score += weight
			cat.Components[indicator] = presentDetail(weight)
		} else {
			cat.Components[indicator] = missingDetail(weight)
		}
	}
	return cat
}

// scoreOutcome looks the outcome type up in the configured table. The base
// score is the outcome's weight, halved when the episode duration falls
// outside that outcome's gestational age window. An unknown outcome type
// scores zero without error.
func (e *ScoringEngine) scoreOutcome(ep *domain.Episode, outcomeType string) domain.CategoryScore {
	cat := domain.CategoryScore{Components: make(map[string]domain.ComponentDetail)}

	profile, ok := e.scoring.Outcomes[outcomeType]
	if !ok {
		cat.Components[outcomeType] = domain.ComponentDetail{
			Details: "Missing (unknown outcome type)",
		}
		return cat
	}

	score := profile.Weight
	detail := fmt.Sprintf("Present (%.2f)", profile.Weight)
	if ep.DurationDays < profile.GestationalAgeMinDays || ep.DurationDays > profile.GestationalAgeMaxDays {
		score = profile.Weight / 2
		detail = fmt.Sprintf("Present (%.2f, halved: %d days outside %d-%d day window)",
			score, ep.DurationDays, profile.GestationalAgeMinDays, profile.GestationalAgeMaxDays)
	}
	if missing := missingRequiredEvents(ep, profile.RequiredEvents); len(missing) > 0 {
		detail += fmt.Sprintf(" [missing required events: %s]", strings.Join(missing, ", "))
	}

	cat.Score = score
	cat.MaxPossible = profile.Weight
	cat.Components[outcomeType] = domain.ComponentDetail{
		Score:       score,
		MaxPossible: profile.Weight,
		Details:     detail,
	}
	return cat
}

// scoreDataQuality combines completeness, consistency, and the reserved
// plausibility term through their configured sub-weights. Plausibility always
// contributes zero but its weight stays in the denominator; dropping it would
// silently inflate every data-quality score.
func (e *ScoringEngine) scoreDataQuality(ep *domain.Episode) domain.CategoryScore {
	dq := e.scoring.DataQuality

	completeness := float64(len(ep.Events)) / float64(dq.MinRequiredEvents)
	if completeness > 1.0 {
		completeness = 1.0
	}

	consistency := 0.5
	if ep.DurationDays >= e.validation.GestationalAgeMinDays && ep.DurationDays <= e.validation.GestationalAgeMaxDays {
		consistency = 1.0
	}

	plausibility := 0.0

	cat := domain.CategoryScore{
		Score:       dq.CompletenessWeight*completeness + dq.ConsistencyWeight*consistency + dq.PlausibilityWeight*plausibility,
		MaxPossible: dq.CompletenessWeight + dq.ConsistencyWeight + dq.PlausibilityWeight,
		Components: map[string]domain.ComponentDetail{
			"completeness": {
				Score:       dq.CompletenessWeight * completeness,
				MaxPossible: dq.CompletenessWeight,
				Details:     fmt.Sprintf("%.2f of %d required dated events (weight %.2f)", completeness, dq.MinRequiredEvents, dq.CompletenessWeight),
			},
			"consistency": {
				Score:       dq.ConsistencyWeight * consistency,
				MaxPossible: dq.ConsistencyWeight,
				Details:     fmt.Sprintf("%.2f duration plausibility (weight %.2f)", consistency, dq.ConsistencyWeight),
			},
			"plausibility": {
				Score:       0,
				MaxPossible: dq.PlausibilityWeight,
				Details:     fmt.Sprintf("reserved (weight %.2f)", dq.PlausibilityWeight),
			},
		},
	}
	return cat
}

// combine computes the overall score as a weighted mean of the four
// sub-scores, where each category's weight is the sum of its own item weight
// table. The event-sequence, indicator, and data-quality sub-scores are
// normalized by their own maxima; the outcome sub-score is the raw table
// weight, exactly as the category computes it. Collapsing this into a flat
// average of the four numbers changes results; keep the two levels.
func (e *ScoringEngine) combine(report domain.ConfidenceReport) domain.ScoreSummary {
	wEvents := e.scoring.EventWeightSum()
	wIndicators := e.scoring.IndicatorWeightSum()
	wOutcome := e.scoring.OutcomeWeightSum()
	wQuality := e.scoring.DataQualityWeightSum()

	weighted := report.EventSequence.Normalized()*wEvents +
		report.ClinicalIndicators.Normalized()*wIndicators +
		report.Outcome.Score*wOutcome +
		report.DataQuality.Normalized()*wQuality

	overall := weighted / (wEvents + wIndicators + wOutcome + wQuality)
	if overall < 0 {
		overall = 0
	}
	if overall > 1 {
		overall = 1
	}

	return domain.ScoreSummary{Score: overall, MaxPossible: 1.0}
}

// missingRequiredEvents lists the outcome profile's required events absent
// from the episode. This only annotates the report; it does not change the
// score.
func missingRequiredEvents(ep *domain.Episode, required []string) []string {
	var missing []string
	for _, eventType := range required {
		if !ep.HasEventType(eventType) {
			missing = append(missing, eventType)
		}
	}
	return missing
}

func presentDetail(weight float64) domain.ComponentDetail {
	return domain.ComponentDetail{
		Score:       weight,
		MaxPossible: weight,
		Details:     fmt.Sprintf("Present (%.2f)", weight),
	}
}

func missingDetail(weight float64) domain.ComponentDetail {
	return domain.ComponentDetail{
		MaxPossible: weight,
		Details:     "Missing",
	}
}
