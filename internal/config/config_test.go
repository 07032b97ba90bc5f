package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentCandidates)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.InDelta(t, 0.10, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 5, cfg.Monitoring.MinBatchSize)
	assert.Empty(t, cfg.Monitoring.WebhookURL)

	cal := cfg.Calibration
	assert.InDelta(t, 6, cal.Contracts.DefaultShortMonths, 0.001)
	assert.InDelta(t, 0.5, cal.Contracts.ShortRatioFlagThreshold, 0.001)
	assert.InDelta(t, 12, cal.Contracts.GapMonthsFlagThreshold, 0.001)
	assert.Equal(t, 4, cal.Contracts.FrequentSwitchFlagThreshold)
	assert.Equal(t, 3, cal.Contracts.RecentCompaniesWindowYears)
	assert.NotEmpty(t, cal.Contracts.ShortMonthsByRank)
	assert.InDelta(t, 6, cal.Rank.UnrealisticPromotionMonths, 0.001)
	assert.Equal(t, 2, cal.Rank.UnrealisticPromotionLevels)
	assert.True(t, cal.Competency.Enabled)
	assert.InDelta(t, 45, cal.Competency.ReviewThreshold, 0.001)
	assert.True(t, cal.Competency.RejectOnCriticalFlag)
	assert.InDelta(t, 50, cal.Technical.ReviewBelow, 0.001)
	assert.True(t, cal.Correlation.Enabled)
	assert.True(t, cal.Predictive.Enabled)
	assert.Equal(t, 90, cal.Confidence.StaleAfterDays)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/trust
log:
  level: debug
  format: console
calibration:
  technical:
    review_below: 65
  competency:
    reject_on_critical_flag: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/trust", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.InDelta(t, 65, cfg.Calibration.Technical.ReviewBelow, 0.001)
	assert.False(t, cfg.Calibration.Competency.RejectOnCriticalFlag)
	// Defaults still apply for unset values.
	assert.InDelta(t, 45, cfg.Calibration.Competency.ReviewThreshold, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("TRUST_LOG_LEVEL", "warn")
	t.Setenv("TRUST_CALIBRATION_CONFIDENCE_STALE_AFTER_DAYS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Calibration.Confidence.StaleAfterDays)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr string
	}{
		{"sqlite ok", StoreConfig{Driver: "sqlite"}, ""},
		{"postgres ok", StoreConfig{Driver: "postgres", DatabaseURL: "postgres://x"}, ""},
		{"postgres missing url", StoreConfig{Driver: "postgres"}, "database_url is required"},
		{"unknown driver", StoreConfig{Driver: "mysql"}, "unsupported store driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Store: tt.store}
			err := cfg.Validate("store")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateUnknownScope(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate("evaluate"))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
