package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Govmap   GovmapConfig   `yaml:"govmap" envconfig:"GOVMAP"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/nadlan.log"`
}

// GovmapConfig contains settings for the Govmap registry client
type GovmapConfig struct {
	BaseURL           string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://www.govmap.gov.il/api/"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT" default:"nadlancli/1.0"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT" default:"10s"`
	ReadTimeout       time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	MaxRetries        int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3"`
	RetryMinWait      time.Duration `yaml:"retry_min_wait" envconfig:"RETRY_MIN_WAIT" default:"1s"`
	RetryMaxWait      time.Duration `yaml:"retry_max_wait" envconfig:"RETRY_MAX_WAIT" default:"10s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" default:"5"`

	// Default search parameters
	DefaultRadius    int `yaml:"default_radius" envconfig:"DEFAULT_RADIUS" default:"30"`
	DefaultYearsBack int `yaml:"default_years_back" envconfig:"DEFAULT_YEARS_BACK" default:"2"`
	DefaultDealLimit int `yaml:"default_deal_limit" envconfig:"DEFAULT_DEAL_LIMIT" default:"100"`

	// Concurrency cap for per-polygon batch fetches
	MaxConcurrentFetches int `yaml:"max_concurrent_fetches" envconfig:"MAX_CONCURRENT_FETCHES" default:"4"`
}

// AnalysisConfig contains outlier detection and hard-bound settings.
// These are read-only values passed into the analysis entry points; there is
// no process-wide mutable configuration.
type AnalysisConfig struct {
	// Outlier method: none, iqr or percent
	OutlierMethod    string  `yaml:"outlier_method" envconfig:"OUTLIER_METHOD" default:"iqr"`
	IQRMultiplier    float64 `yaml:"iqr_multiplier" envconfig:"IQR_MULTIPLIER" default:"1.5"`
	PercentThreshold float64 `yaml:"percent_threshold" envconfig:"PERCENT_THRESHOLD" default:"0.5"`

	// Percentage backup pass applied after the IQR pass, as a safety net
	// against very wide distributions the IQR method under-flags
	UsePercentageBackup bool    `yaml:"use_percentage_backup" envconfig:"USE_PERCENTAGE_BACKUP" default:"true"`
	BackupThreshold     float64 `yaml:"backup_threshold" envconfig:"BACKUP_THRESHOLD" default:"1.0"`

	// Minimum sample size before statistical outlier detection runs
	MinDealsForOutlierDetection int `yaml:"min_deals_for_outlier_detection" envconfig:"MIN_DEALS_FOR_OUTLIER_DETECTION" default:"8"`

	// Hard bounds, applied before any statistical method
	PricePerSqmMin float64 `yaml:"price_per_sqm_min" envconfig:"PRICE_PER_SQM_MIN" default:"5000"`
	PricePerSqmMax float64 `yaml:"price_per_sqm_max" envconfig:"PRICE_PER_SQM_MAX" default:"100000"`
	MinDealAmount  float64 `yaml:"min_deal_amount" envconfig:"MIN_DEAL_AMOUNT" default:"500000"`
}

// Load loads configuration from environment variables (prefix NADLAN) and an
// optional YAML file. Environment values take precedence over file values.
func Load() (*Config, error) {
	var cfg Config

	if path := configFilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := envconfig.Process("NADLAN", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// configFilePath returns the YAML config location, overridable via env
func configFilePath() string {
	if path := os.Getenv("NADLAN_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if err := c.Govmap.Validate(); err != nil {
		return err
	}
	return c.Analysis.Validate()
}

// Validate checks Govmap client settings
func (g GovmapConfig) Validate() error {
	if g.BaseURL == "" {
		return fmt.Errorf("govmap base_url cannot be empty")
	}
	if g.ConnectTimeout <= 0 || g.ReadTimeout <= 0 {
		return fmt.Errorf("govmap timeouts must be positive")
	}
	if g.MaxRetries < 0 {
		return fmt.Errorf("govmap max_retries must be non-negative")
	}
	if g.RetryMinWait <= 0 || g.RetryMaxWait < g.RetryMinWait {
		return fmt.Errorf("govmap retry waits invalid: min=%s max=%s", g.RetryMinWait, g.RetryMaxWait)
	}
	if g.RequestsPerSecond <= 0 {
		return fmt.Errorf("govmap requests_per_second must be positive")
	}
	if g.DefaultRadius <= 0 || g.DefaultYearsBack <= 0 || g.DefaultDealLimit <= 0 {
		return fmt.Errorf("govmap default search parameters must be positive")
	}
	if g.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("govmap max_concurrent_fetches must be positive")
	}
	return nil
}

// Validate checks analysis settings
func (a AnalysisConfig) Validate() error {
	switch a.OutlierMethod {
	case "none", "iqr", "percent":
	default:
		return fmt.Errorf("outlier_method must be one of none, iqr, percent; got %q", a.OutlierMethod)
	}
	if a.IQRMultiplier <= 0 {
		return fmt.Errorf("iqr_multiplier must be positive")
	}
	if a.PercentThreshold <= 0 || a.BackupThreshold <= 0 {
		return fmt.Errorf("percent thresholds must be positive")
	}
	if a.MinDealsForOutlierDetection < 0 {
		return fmt.Errorf("min_deals_for_outlier_detection must be non-negative")
	}
	if a.PricePerSqmMin < 0 || a.PricePerSqmMax <= a.PricePerSqmMin {
		return fmt.Errorf("price_per_sqm bounds invalid: min=%.0f max=%.0f", a.PricePerSqmMin, a.PricePerSqmMax)
	}
	if a.MinDealAmount < 0 {
		return fmt.Errorf("min_deal_amount must be non-negative")
	}
	return nil
}
