package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Series struct {
		Source  string `yaml:"source"` // "csv" or "clickhouse"
		CSVPath string `yaml:"csv_path"`
	} `yaml:"series"`
	Detectors struct {
		MultivariateContamination float64 `yaml:"multivariate_contamination_fraction"`
		MinPeriodsForMultivariate int     `yaml:"min_periods_for_multivariate"`
		ResidualFlagThresholdK    float64 `yaml:"residual_flag_threshold_k"`
		ForecastConfidenceLevel   float64 `yaml:"forecast_confidence_level"`
		ForecastMinHistory        int     `yaml:"forecast_min_history"`
		MinSeasonalCycles         int     `yaml:"min_seasonal_cycles"`
	} `yaml:"detectors"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		BatchSize    int           `yaml:"batch_size"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"kafka"`
	Cache struct {
		RedisEnabled bool          `yaml:"redis_enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		TTL          time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERIES_CSV_PATH"); v != "" {
		c.Series.CSVPath = v
	}
	if v := os.Getenv("SERIES_SOURCE"); v != "" {
		c.Series.Source = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Host = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyDefaults fills the recognized detector options with their documented
// defaults when the YAML leaves them zero.
func (c *Config) ApplyDefaults() {
	d := &c.Detectors
	if d.MultivariateContamination == 0 {
		d.MultivariateContamination = 0.1
	}
	if d.MinPeriodsForMultivariate == 0 {
		d.MinPeriodsForMultivariate = 8
	}
	if d.ResidualFlagThresholdK == 0 {
		d.ResidualFlagThresholdK = 3.0
	}
	if d.ForecastConfidenceLevel == 0 {
		d.ForecastConfidenceLevel = 0.95
	}
	if d.ForecastMinHistory == 0 {
		d.ForecastMinHistory = 2
	}
	if d.MinSeasonalCycles == 0 {
		d.MinSeasonalCycles = 2
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 15 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Series.Source != "csv" && c.Series.Source != "clickhouse" {
		return fmt.Errorf("series.source must be 'csv' or 'clickhouse', got '%s'", c.Series.Source)
	}
	if c.Series.Source == "csv" && c.Series.CSVPath == "" {
		return fmt.Errorf("series.csv_path is required for csv source")
	}
	if c.Series.Source == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("clickhouse must be enabled for clickhouse series source")
	}
	d := &c.Detectors
	if d.MultivariateContamination < 0 || d.MultivariateContamination > 0.5 {
		return fmt.Errorf("detectors.multivariate_contamination_fraction must be in [0, 0.5]")
	}
	if d.MinPeriodsForMultivariate < 2 {
		return fmt.Errorf("detectors.min_periods_for_multivariate must be at least 2")
	}
	if d.ResidualFlagThresholdK <= 0 {
		return fmt.Errorf("detectors.residual_flag_threshold_k must be positive")
	}
	if d.ForecastConfidenceLevel <= 0 || d.ForecastConfidenceLevel >= 1 {
		return fmt.Errorf("detectors.forecast_confidence_level must be in (0, 1)")
	}
	if d.ForecastMinHistory < 2 {
		return fmt.Errorf("detectors.forecast_min_history must be at least 2")
	}
	if d.MinSeasonalCycles < 2 {
		return fmt.Errorf("detectors.min_seasonal_cycles must be at least 2")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
