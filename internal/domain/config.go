package domain

import (
	"time"
)

// Config is the complete application configuration. It is loaded once at
// startup, validated, and passed read-only into every component; nothing in the
// pipeline mutates it.
type Config struct {
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Validation   ValidationConfig   `mapstructure:"validation"`
	Scoring      ScoringConfig      `mapstructure:"scoring"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
	Server       ServerConfig       `mapstructure:"server"`
	Store        StoreConfig        `mapstructure:"store"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// GapComparison selects which adjacent event the segmentation gap is measured
// against. The two deployed variants of the legacy logic disagreed here, so it
// is explicit configuration rather than a silent choice.
type GapComparison string

const (
	// ComparePrevious measures each event's gap against the previous event.
	ComparePrevious GapComparison = "previous"
	// CompareNext measures each event's gap against the following event and
	// closes the episode after it. On a sorted sequence both directions break
	// at the same gaps and produce identical partitions.
	CompareNext GapComparison = "next"
)

// SegmentationConfig controls episode grouping.
type SegmentationConfig struct {
	// GapThresholdDays is the maximum gap, in days, between adjacent events of
	// the same episode. Legacy deployments used 90 or 180; 90 is the default.
	GapThresholdDays int           `mapstructure:"gap_threshold_days"`
	GapComparison    GapComparison `mapstructure:"gap_comparison"`
}

// ValidationConfig holds the named thresholds for episode validation checks.
type ValidationConfig struct {
	MaxDurationDays         int `mapstructure:"max_duration_days"`
	MaxBookingDelayDays     int `mapstructure:"max_booking_delay_days"`
	ScanIntervalMinDays     int `mapstructure:"scan_interval_min_days"`
	ScanIntervalMaxDays     int `mapstructure:"scan_interval_max_days"`
	MaxConcurrentConditions int `mapstructure:"max_concurrent_conditions"`
	GestationalAgeMinDays   int `mapstructure:"gestational_age_min_days"`
	GestationalAgeMaxDays   int `mapstructure:"gestational_age_max_days"`
}

// OutcomeProfile describes the plausibility envelope for one outcome type.
type OutcomeProfile struct {
	RequiredEvents        []string `mapstructure:"required_events"`
	GestationalAgeMinDays int      `mapstructure:"gestational_age_min_days"`
	GestationalAgeMaxDays int      `mapstructure:"gestational_age_max_days"`
	Weight                float64  `mapstructure:"weight"`
}

// DataQualityConfig holds the sub-weights of the data-quality composite. The
// plausibility term is reserved and always contributes zero, but its weight
// stays in the normalizing denominator.
type DataQualityConfig struct {
	CompletenessWeight float64 `mapstructure:"completeness_weight"`
	ConsistencyWeight  float64 `mapstructure:"consistency_weight"`
	PlausibilityWeight float64 `mapstructure:"plausibility_weight"`
	MinRequiredEvents  int     `mapstructure:"min_required_events"`
}

// ScoringConfig holds the weight tables of the confidence scoring engine.
type ScoringConfig struct {
	EventWeights     map[string]float64        `mapstructure:"event_weights"`
	IndicatorWeights map[string]float64        `mapstructure:"indicator_weights"`
	Outcomes         map[string]OutcomeProfile `mapstructure:"outcomes"`
	DataQuality      DataQualityConfig         `mapstructure:"data_quality"`
	// DefaultOutcomeType is assumed for every episode; no outcome classifier
	// exists yet and the legacy behavior fixed a single default category.
	DefaultOutcomeType string `mapstructure:"default_outcome_type"`
}

// EventWeightSum returns the sum of all configured event-type weights.
func (s ScoringConfig) EventWeightSum() float64 {
	return sumWeights(s.EventWeights)
}

// IndicatorWeightSum returns the sum of all configured indicator weights.
func (s ScoringConfig) IndicatorWeightSum() float64 {
	return sumWeights(s.IndicatorWeights)
}

// OutcomeWeightSum returns the sum of the outcome-table weights.
func (s ScoringConfig) OutcomeWeightSum() float64 {
	var sum float64
	for _, p := range s.Outcomes {
		sum += p.Weight
	}
	return sum
}

// DataQualityWeightSum returns the sum of the data-quality sub-weights.
func (s ScoringConfig) DataQualityWeightSum() float64 {
	dq := s.DataQuality
	return dq.CompletenessWeight + dq.ConsistencyWeight + dq.PlausibilityWeight
}

func sumWeights(w map[string]float64) float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// PipelineConfig controls batch execution.
type PipelineConfig struct {
	// Workers bounds the per-patient worker pool; 0 means one per CPU.
	Workers int `mapstructure:"workers"`
}

// ServerConfig holds the results API server settings.
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BurstLimit        int           `mapstructure:"burst_limit"`
	CacheSize         int           `mapstructure:"cache_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// StoreConfig selects and configures the optional episode result store.
type StoreConfig struct {
	// Driver is "none", "sqlite", or "postgres".
	Driver         string `mapstructure:"driver"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	PostgresURL    string `mapstructure:"postgres_url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
