package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pregnancy-episode-engine/internal/domain"
)

// Manager loads and validates application configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a configuration manager, loading config.yaml (optional),
// PREGEPI_* environment overrides, and built-in defaults in that precedence.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pregnancy-episode-engine/")

	viper.SetEnvPrefix("PREGEPI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars are enough to run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Segmentation defaults. The legacy analysis scripts disagreed between 90
	// and 180 days and between gap directions; both are explicit settings.
	viper.SetDefault("segmentation.gap_threshold_days", 90)
	viper.SetDefault("segmentation.gap_comparison", string(domain.ComparePrevious))

	// Validation thresholds
	viper.SetDefault("validation.max_duration_days", 294)
	viper.SetDefault("validation.max_booking_delay_days", 84)
	viper.SetDefault("validation.scan_interval_min_days", 14)
	viper.SetDefault("validation.scan_interval_max_days", 84)
	viper.SetDefault("validation.max_concurrent_conditions", 5)
	viper.SetDefault("validation.gestational_age_min_days", 154)
	viper.SetDefault("validation.gestational_age_max_days", 294)

	// Scoring weight tables
	viper.SetDefault("scoring.event_weights", map[string]float64{
		"pregnancy_test":       0.15,
		"booking_visit":        0.20,
		"dating_scan":          0.15,
		"antenatal_screening":  0.10,
		"antenatal_risk":       0.10,
		"antenatal_procedures": 0.10,
	})
	viper.SetDefault("scoring.indicator_weights", map[string]float64{
		"preeclampsia":        0.10,
		"htn":                 0.08,
		"diabetes":            0.08,
		"infection":           0.06,
		"other_complications": 0.04,
	})
	viper.SetDefault("scoring.outcomes", map[string]interface{}{
		"live_birth": map[string]interface{}{
			"required_events":          []string{"live_birth"},
			"gestational_age_min_days": 259,
			"gestational_age_max_days": 294,
			"weight":                   0.8,
		},
		"stillbirth": map[string]interface{}{
			"required_events":          []string{"stillbirth"},
			"gestational_age_min_days": 196,
			"gestational_age_max_days": 294,
			"weight":                   0.7,
		},
		"miscarriage": map[string]interface{}{
			"required_events":          []string{},
			"gestational_age_min_days": 28,
			"gestational_age_max_days": 154,
			"weight":                   0.5,
		},
	})
	viper.SetDefault("scoring.data_quality.completeness_weight", 0.4)
	viper.SetDefault("scoring.data_quality.consistency_weight", 0.4)
	viper.SetDefault("scoring.data_quality.plausibility_weight", 0.2)
	viper.SetDefault("scoring.data_quality.min_required_events", 4)
	viper.SetDefault("scoring.default_outcome_type", "live_birth")

	// Pipeline defaults
	viper.SetDefault("pipeline.workers", 0)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.requests_per_second", 50)
	viper.SetDefault("server.burst_limit", 20)
	viper.SetDefault("server.cache_size", 256)
	viper.SetDefault("server.cache_ttl", "5m")

	// Store defaults
	viper.SetDefault("store.driver", "none")
	viper.SetDefault("store.sqlite_path", "data/episodes.db")
	viper.SetDefault("store.postgres_url", "")
	viper.SetDefault("store.migrations_path", "migrations")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Validate validates the configuration. Weight tables that would produce a
// zero denominator are fatal here so scoring never has to handle them.
func (m *Manager) Validate() error {
	cfg := m.config

	if cfg.Segmentation.GapThresholdDays <= 0 {
		return domain.NewConfigError("segmentation.gap_threshold_days", "must be positive")
	}
	switch cfg.Segmentation.GapComparison {
	case domain.ComparePrevious, domain.CompareNext:
	default:
		return domain.NewConfigError("segmentation.gap_comparison",
			fmt.Sprintf("must be %q or %q", domain.ComparePrevious, domain.CompareNext))
	}

	if cfg.Validation.MaxDurationDays <= 0 {
		return domain.NewConfigError("validation.max_duration_days", "must be positive")
	}
	if cfg.Validation.ScanIntervalMinDays > cfg.Validation.ScanIntervalMaxDays {
		return domain.NewConfigError("validation.scan_interval_min_days", "min exceeds max")
	}
	if cfg.Validation.GestationalAgeMinDays >= cfg.Validation.GestationalAgeMaxDays {
		return domain.NewConfigError("validation.gestational_age_min_days", "min must be below max")
	}

	if cfg.Scoring.EventWeightSum() <= 0 {
		return domain.NewConfigError("scoring.event_weights", "weight table sums to zero")
	}
	if cfg.Scoring.IndicatorWeightSum() <= 0 {
		return domain.NewConfigError("scoring.indicator_weights", "weight table sums to zero")
	}
	if cfg.Scoring.OutcomeWeightSum() <= 0 {
		return domain.NewConfigError("scoring.outcomes", "outcome weight table sums to zero")
	}
	if cfg.Scoring.DataQualityWeightSum() <= 0 {
		return domain.NewConfigError("scoring.data_quality", "sub-weights sum to zero")
	}
	if cfg.Scoring.DataQuality.MinRequiredEvents <= 0 {
		return domain.NewConfigError("scoring.data_quality.min_required_events", "must be positive")
	}
	for name, profile := range cfg.Scoring.Outcomes {
		if profile.Weight < 0 || profile.Weight > 1 {
			return domain.NewConfigError("scoring.outcomes."+name+".weight", "must be in [0, 1]")
		}
		if profile.GestationalAgeMinDays >= profile.GestationalAgeMaxDays {
			return domain.NewConfigError("scoring.outcomes."+name, "gestational age min must be below max")
		}
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return domain.NewConfigError("server.port", fmt.Sprintf("invalid port: %d", cfg.Server.Port))
	}

	switch cfg.Store.Driver {
	case "none", "sqlite", "postgres":
	default:
		return domain.NewConfigError("store.driver", "must be none, sqlite, or postgres")
	}
	if cfg.Store.Driver == "postgres" && cfg.Store.PostgresURL == "" {
		return domain.NewConfigError("store.postgres_url", "required for the postgres driver")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		return domain.NewConfigError("logging.level", fmt.Sprintf("invalid log level: %s", cfg.Logging.Level))
	}

	return nil
}
