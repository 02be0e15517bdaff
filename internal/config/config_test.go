package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregnancy-episode-engine/internal/domain"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	m, err := NewManager()
	require.NoError(t, err)
	return m
}

func TestManager_Defaults(t *testing.T) {
	// Arrange / Act
	m := newTestManager(t)
	cfg := m.GetConfig()

	// Assert
	assert.Equal(t, 90, cfg.Segmentation.GapThresholdDays)
	assert.Equal(t, domain.ComparePrevious, cfg.Segmentation.GapComparison)
	assert.Equal(t, 294, cfg.Validation.MaxDurationDays)
	assert.Equal(t, 84, cfg.Validation.MaxBookingDelayDays)
	assert.Equal(t, 5, cfg.Validation.MaxConcurrentConditions)
	assert.InDelta(t, 0.20, cfg.Scoring.EventWeights["booking_visit"], 1e-9)
	assert.InDelta(t, 0.10, cfg.Scoring.IndicatorWeights["preeclampsia"], 1e-9)
	assert.Equal(t, "live_birth", cfg.Scoring.DefaultOutcomeType)
	assert.Equal(t, 4, cfg.Scoring.DataQuality.MinRequiredEvents)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)

	outcome, ok := cfg.Scoring.Outcomes["live_birth"]
	require.True(t, ok)
	assert.Equal(t, 259, outcome.GestationalAgeMinDays)
	assert.Equal(t, 294, outcome.GestationalAgeMaxDays)
	assert.InDelta(t, 0.8, outcome.Weight, 1e-9)
}

func TestManager_DefaultsValidate(t *testing.T) {
	m := newTestManager(t)

	assert.NoError(t, m.Validate())
}

func TestManager_EnvironmentOverride(t *testing.T) {
	// Arrange
	t.Setenv("PREGEPI_SEGMENTATION_GAP_THRESHOLD_DAYS", "180")
	t.Setenv("PREGEPI_SEGMENTATION_GAP_COMPARISON", "next")
	t.Setenv("PREGEPI_LOGGING_LEVEL", "debug")

	// Act
	m := newTestManager(t)
	cfg := m.GetConfig()

	// Assert
	assert.Equal(t, 180, cfg.Segmentation.GapThresholdDays)
	assert.Equal(t, domain.CompareNext, cfg.Segmentation.GapComparison)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, m.Validate())
}

func TestManager_ValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *domain.Config)
	}{
		{"non-positive gap threshold", func(cfg *domain.Config) {
			cfg.Segmentation.GapThresholdDays = 0
		}},
		{"unknown gap comparison", func(cfg *domain.Config) {
			cfg.Segmentation.GapComparison = "sideways"
		}},
		{"empty event weight table", func(cfg *domain.Config) {
			cfg.Scoring.EventWeights = map[string]float64{}
		}},
		{"empty indicator weight table", func(cfg *domain.Config) {
			cfg.Scoring.IndicatorWeights = nil
		}},
		{"zero-sum outcome table", func(cfg *domain.Config) {
			cfg.Scoring.Outcomes = map[string]domain.OutcomeProfile{}
		}},
		{"zero data-quality sub-weights", func(cfg *domain.Config) {
			cfg.Scoring.DataQuality.CompletenessWeight = 0
			cfg.Scoring.DataQuality.ConsistencyWeight = 0
			cfg.Scoring.DataQuality.PlausibilityWeight = 0
		}},
		{"non-positive min required events", func(cfg *domain.Config) {
			cfg.Scoring.DataQuality.MinRequiredEvents = 0
		}},
		{"inverted gestational age window", func(cfg *domain.Config) {
			cfg.Validation.GestationalAgeMinDays = 300
		}},
		{"inverted outcome window", func(cfg *domain.Config) {
			p := cfg.Scoring.Outcomes["live_birth"]
			p.GestationalAgeMinDays = 400
			cfg.Scoring.Outcomes["live_birth"] = p
		}},
		{"invalid store driver", func(cfg *domain.Config) {
			cfg.Store.Driver = "mysql"
		}},
		{"postgres driver without url", func(cfg *domain.Config) {
			cfg.Store.Driver = "postgres"
			cfg.Store.PostgresURL = ""
		}},
		{"invalid port", func(cfg *domain.Config) {
			cfg.Server.Port = -1
		}},
		{"invalid log level", func(cfg *domain.Config) {
			cfg.Logging.Level = "verbose"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			m := newTestManager(t)
			tt.mutate(m.GetConfig())

			// Act
			err := m.Validate()

			// Assert: all configuration problems share the sentinel
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestNewLogger(t *testing.T) {
	// Arrange / Act
	logger := NewLogger(domain.LoggingConfig{Level: "debug", Format: "text"})

	// Assert
	assert.Equal(t, "debug", logger.GetLevel().String())
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	logger := NewLogger(domain.LoggingConfig{Level: "nonsense", Format: "json"})

	assert.Equal(t, "info", logger.GetLevel().String())
}
