package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Calibration CalibrationConfig `yaml:"calibration" mapstructure:"calibration"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// BatchConfig configures batch recompute.
type BatchConfig struct {
	MaxConcurrentCandidates int     `yaml:"max_concurrent_candidates" mapstructure:"max_concurrent_candidates"`
	RatePerSec              float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// RetryConfig configures retries of transient store writes.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// MonitoringConfig configures batch health alerts.
type MonitoringConfig struct {
	WebhookURL                  string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold        float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LowConfidenceShareThreshold float64 `yaml:"low_confidence_share_threshold" mapstructure:"low_confidence_share_threshold"`
	MinBatchSize                int     `yaml:"min_batch_size" mapstructure:"min_batch_size"`
}

// CalibrationConfig is every threshold the trust and decision engines use.
// It is passed by value into each component; nothing reads it globally.
type CalibrationConfig struct {
	Contracts   ContractCalibration    `yaml:"contracts" mapstructure:"contracts" json:"contracts"`
	Rank        RankCalibration        `yaml:"rank" mapstructure:"rank" json:"rank"`
	Competency  CompetencyCalibration  `yaml:"competency" mapstructure:"competency" json:"competency"`
	Technical   TechnicalCalibration   `yaml:"technical" mapstructure:"technical" json:"technical"`
	Correlation CorrelationCalibration `yaml:"correlation" mapstructure:"correlation" json:"correlation"`
	Predictive  PredictiveCalibration  `yaml:"predictive" mapstructure:"predictive" json:"predictive"`
	Confidence  ConfidenceCalibration  `yaml:"confidence" mapstructure:"confidence" json:"confidence"`
}

// ContractCalibration configures contract pattern analysis.
type ContractCalibration struct {
	DefaultShortMonths          float64            `yaml:"default_short_months" mapstructure:"default_short_months" json:"default_short_months"`
	ShortMonthsByRank           map[string]float64 `yaml:"short_months_by_rank" mapstructure:"short_months_by_rank" json:"short_months_by_rank"`
	ShortRatioFlagThreshold     float64            `yaml:"short_ratio_flag_threshold" mapstructure:"short_ratio_flag_threshold" json:"short_ratio_flag_threshold"`
	GapMonthsFlagThreshold      float64            `yaml:"gap_months_flag_threshold" mapstructure:"gap_months_flag_threshold" json:"gap_months_flag_threshold"`
	FrequentSwitchFlagThreshold int                `yaml:"frequent_switch_flag_threshold" mapstructure:"frequent_switch_flag_threshold" json:"frequent_switch_flag_threshold"`
	RecentCompaniesWindowYears  int                `yaml:"recent_companies_window_years" mapstructure:"recent_companies_window_years" json:"recent_companies_window_years"`
}

// RankCalibration configures rank progression anomaly detection.
type RankCalibration struct {
	UnrealisticPromotionMonths float64 `yaml:"unrealistic_promotion_months" mapstructure:"unrealistic_promotion_months" json:"unrealistic_promotion_months"`
	UnrealisticPromotionLevels int     `yaml:"unrealistic_promotion_levels" mapstructure:"unrealistic_promotion_levels" json:"unrealistic_promotion_levels"`
}

// CompetencyCalibration configures how competency signals affect decisions.
type CompetencyCalibration struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	ReviewThreshold      float64 `yaml:"review_threshold" mapstructure:"review_threshold" json:"review_threshold"`
	RejectOnCriticalFlag bool    `yaml:"reject_on_critical_flag" mapstructure:"reject_on_critical_flag" json:"reject_on_critical_flag"`
}

// TechnicalCalibration configures the technical review threshold.
type TechnicalCalibration struct {
	ReviewBelow float64 `yaml:"review_below" mapstructure:"review_below" json:"review_below"`
}

// CorrelationCalibration configures cross-signal correlation checks.
type CorrelationCalibration struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	HighDepthIndex       float64 `yaml:"high_depth_index" mapstructure:"high_depth_index" json:"high_depth_index"`
	LowTechnicalScore    float64 `yaml:"low_technical_score" mapstructure:"low_technical_score" json:"low_technical_score"`
	HighCompetencyScore  float64 `yaml:"high_competency_score" mapstructure:"high_competency_score" json:"high_competency_score"`
	LowComplianceScore   float64 `yaml:"low_compliance_score" mapstructure:"low_compliance_score" json:"low_compliance_score"`
	HighStabilityIndex   float64 `yaml:"high_stability_index" mapstructure:"high_stability_index" json:"high_stability_index"`
	HighRiskScore        float64 `yaml:"high_risk_score" mapstructure:"high_risk_score" json:"high_risk_score"`
	ExperiencedSeaMonths float64 `yaml:"experienced_sea_months" mapstructure:"experienced_sea_months" json:"experienced_sea_months"`
	NoviceSeaMonths      float64 `yaml:"novice_sea_months" mapstructure:"novice_sea_months" json:"novice_sea_months"`
}

// PredictiveCalibration toggles the predictive-risk rule.
type PredictiveCalibration struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
}

// ConfidenceCalibration configures freshness accounting.
type ConfidenceCalibration struct {
	StaleAfterDays int `yaml:"stale_after_days" mapstructure:"stale_after_days" json:"stale_after_days"`
}

// Validate checks that the configuration is usable for the given command scope.
func (c *Config) Validate(scope string) error {
	switch scope {
	case "store":
		switch c.Store.Driver {
		case "sqlite":
			return nil
		case "postgres":
			if c.Store.DatabaseURL == "" {
				return eris.New("config: store.database_url is required for the postgres driver (TRUST_STORE_DATABASE_URL)")
			}
			return nil
		default:
			return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
		}
	default:
		return nil
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("batch.max_concurrent_candidates", 4)
	v.SetDefault("batch.rate_per_sec", 0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.low_confidence_share_threshold", 0.5)
	v.SetDefault("monitoring.min_batch_size", 5)
	v.SetDefault("calibration.contracts.default_short_months", 6)
	v.SetDefault("calibration.contracts.short_months_by_rank", map[string]float64{
		"MASTER":          3,
		"CHIEF_OFFICER":   4,
		"CHIEF_ENGINEER":  3,
		"SECOND_ENGINEER": 4,
		"ETO":             4,
		"DECK_CADET":      4,
		"ENGINE_CADET":    4,
	})
	v.SetDefault("calibration.contracts.short_ratio_flag_threshold", 0.5)
	v.SetDefault("calibration.contracts.gap_months_flag_threshold", 12)
	v.SetDefault("calibration.contracts.frequent_switch_flag_threshold", 4)
	v.SetDefault("calibration.contracts.recent_companies_window_years", 3)
	v.SetDefault("calibration.rank.unrealistic_promotion_months", 6)
	v.SetDefault("calibration.rank.unrealistic_promotion_levels", 2)
	v.SetDefault("calibration.competency.enabled", true)
	v.SetDefault("calibration.competency.review_threshold", 45)
	v.SetDefault("calibration.competency.reject_on_critical_flag", true)
	v.SetDefault("calibration.technical.review_below", 50)
	v.SetDefault("calibration.correlation.enabled", true)
	v.SetDefault("calibration.correlation.high_depth_index", 70)
	v.SetDefault("calibration.correlation.low_technical_score", 50)
	v.SetDefault("calibration.correlation.high_competency_score", 75)
	v.SetDefault("calibration.correlation.low_compliance_score", 50)
	v.SetDefault("calibration.correlation.high_stability_index", 70)
	v.SetDefault("calibration.correlation.high_risk_score", 70)
	v.SetDefault("calibration.correlation.experienced_sea_months", 60)
	v.SetDefault("calibration.correlation.novice_sea_months", 12)
	v.SetDefault("calibration.predictive.enabled", true)
	v.SetDefault("calibration.confidence.stale_after_days", 90)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// viper lowercases map keys; rank codes are upper case.
	byRank := make(map[string]float64, len(cfg.Calibration.Contracts.ShortMonthsByRank))
	for code, months := range cfg.Calibration.Contracts.ShortMonthsByRank {
		byRank[strings.ToUpper(code)] = months
	}
	cfg.Calibration.Contracts.ShortMonthsByRank = byRank

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
