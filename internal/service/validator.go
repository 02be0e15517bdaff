package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Issue keys produced by the validator. Tests and consumers key on these, not
// on message text.
const (
	IssueDuration          = "duration"
	IssueBookingDelay      = "booking_delay"
	IssueScanInterval      = "scan_interval"
	IssueTooManyConditions = "too_many_conditions"
	IssueGestationalAge    = "gestational_age"
)

// Event types consulted by the temporal checks.
const (
	eventPregnancyTest      = "pregnancy_test"
	eventBookingVisit       = "booking_visit"
	eventDatingScan         = "dating_scan"
	eventAntenatalScreening = "antenatal_screening"
)

// issueCategory routes a check's finding into one of the three result maps.
type issueCategory int

const (
	temporalIssue issueCategory = iota
	clinicalIssue
	outcomeIssue
)

// episodeCheck is one independently evaluable validation rule. A check that
// lacks the data it needs reports nothing; missing values never raise.
type episodeCheck struct {
	key       string
	category  issueCategory
	evaluator func(ep *domain.Episode) (string, bool)
}

// Validator applies the configured rule checks to an episode and collects the
// named issues. It is a pure function of (episode, configuration): no check
// mutates the episode or depends on another check's outcome.
type Validator struct {
	cfg    domain.ValidationConfig
	checks []episodeCheck
	logger *logrus.Logger
}

// NewValidator creates an episode validator with all checks registered.
func NewValidator(cfg domain.ValidationConfig, logger *logrus.Logger) *Validator {
	v := &Validator{cfg: cfg, logger: logger}
	v.checks = []episodeCheck{
		{IssueDuration, temporalIssue, v.checkDuration},
		{IssueBookingDelay, temporalIssue, v.checkBookingDelay},
		{IssueScanInterval, temporalIssue, v.checkScanInterval},
		{IssueTooManyConditions, clinicalIssue, v.checkConcurrentConditions},
		{IssueGestationalAge, outcomeIssue, v.checkGestationalAge},
	}
	return v
}

// Validate runs every check against the episode.
func (v *Validator) Validate(ep *domain.Episode) domain.ValidationResult {
	result := domain.NewValidationResult()

	for _, check := range v.checks {
		message, flagged := check.evaluator(ep)
		if !flagged {
			continue
		}
		switch check.category {
		case temporalIssue:
			result.Temporal[check.key] = message
		case clinicalIssue:
			result.Clinical[check.key] = message
		case outcomeIssue:
			result.Outcome[check.key] = message
		}
	}

	if len(result.Temporal)+len(result.Clinical)+len(result.Outcome) > 0 {
		v.logger.WithFields(logrus.Fields{
			"patient_id":      ep.PatientID,
			"episode_number":  ep.Number,
			"temporal_issues": len(result.Temporal),
			"clinical_issues": len(result.Clinical),
			"outcome_issues":  len(result.Outcome),
		}).Debug("Episode validation found issues")
	}

	return result
}

// checkDuration flags episodes longer than the maximum plausible pregnancy.
func (v *Validator) checkDuration(ep *domain.Episode) (string, bool) {
	if ep.DurationDays > v.cfg.MaxDurationDays {
		return fmt.Sprintf("episode duration %d days exceeds %d days (%d weeks)",
			ep.DurationDays, v.cfg.MaxDurationDays, v.cfg.MaxDurationDays/7), true
	}
	return "", false
}

// checkBookingDelay flags a late booking visit relative to the first pregnancy
// test. Skipped when either event is absent.
func (v *Validator) checkBookingDelay(ep *domain.Episode) (string, bool) {
	test := ep.EarliestEvent(eventPregnancyTest)
	booking := ep.EarliestEvent(eventBookingVisit)
	if test == nil || booking == nil {
		return "", false
	}

	delay := int(daysBetween(test.Date, booking.Date))
	if delay > v.cfg.MaxBookingDelayDays {
		return fmt.Sprintf("booking visit %d days after pregnancy test, maximum is %d",
			delay, v.cfg.MaxBookingDelayDays), true
	}
	return "", false
}

// checkScanInterval flags a dating scan and antenatal screening whose interval
// falls outside the configured window. Skipped when either event is absent.
func (v *Validator) checkScanInterval(ep *domain.Episode) (string, bool) {
	scan := ep.EarliestEvent(eventDatingScan)
	screening := ep.EarliestEvent(eventAntenatalScreening)
	if scan == nil || screening == nil {
		return "", false
	}

	interval := int(daysBetween(scan.Date, screening.Date))
	if interval < v.cfg.ScanIntervalMinDays || interval > v.cfg.ScanIntervalMaxDays {
		return fmt.Sprintf("scan to screening interval %d days outside %d-%d day window",
			interval, v.cfg.ScanIntervalMinDays, v.cfg.ScanIntervalMaxDays), true
	}
	return "", false
}

// checkConcurrentConditions flags an implausible pile-up of dated events. It
// counts every dated event in the episode regardless of category; narrowing the
// count to condition-type events would change flagged cohorts.
func (v *Validator) checkConcurrentConditions(ep *domain.Episode) (string, bool) {
	count := len(ep.Events)
	if count > v.cfg.MaxConcurrentConditions {
		return fmt.Sprintf("%d dated events in episode window, maximum is %d",
			count, v.cfg.MaxConcurrentConditions), true
	}
	return "", false
}

// checkGestationalAge flags a duration outside the global plausibility window,
// with distinct too-low and too-high messages under the shared key.
func (v *Validator) checkGestationalAge(ep *domain.Episode) (string, bool) {
	if ep.DurationDays < v.cfg.GestationalAgeMinDays {
		return fmt.Sprintf("gestational age %d days below plausible minimum of %d",
			ep.DurationDays, v.cfg.GestationalAgeMinDays), true
	}
	if ep.DurationDays > v.cfg.GestationalAgeMaxDays {
		return fmt.Sprintf("gestational age %d days above plausible maximum of %d",
			ep.DurationDays, v.cfg.GestationalAgeMaxDays), true
	}
	return "", false
}
