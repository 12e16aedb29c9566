package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
environment: test
series:
  source: csv
  csv_path: data/series.csv
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	require.Equal(t, 0.1, cfg.Detectors.MultivariateContamination)
	require.Equal(t, 8, cfg.Detectors.MinPeriodsForMultivariate)
	require.Equal(t, 3.0, cfg.Detectors.ResidualFlagThresholdK)
	require.Equal(t, 0.95, cfg.Detectors.ForecastConfidenceLevel)
	require.Equal(t, 2, cfg.Detectors.ForecastMinHistory)
	require.Equal(t, 2, cfg.Detectors.MinSeasonalCycles)
	require.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
detectors:
  multivariate_contamination_fraction: 0.2
  residual_flag_threshold_k: 2.5
`))
	require.NoError(t, err)
	require.Equal(t, 0.2, cfg.Detectors.MultivariateContamination)
	require.Equal(t, 2.5, cfg.Detectors.ResidualFlagThresholdK)
	require.Equal(t, 8, cfg.Detectors.MinPeriodsForMultivariate)
}

func TestLoadRejectsInvalidDetectorOptions(t *testing.T) {
	cases := []string{
		"detectors:\n  multivariate_contamination_fraction: 0.9\n",
		"detectors:\n  residual_flag_threshold_k: -1\n",
		"detectors:\n  forecast_confidence_level: 1.5\n",
		"detectors:\n  min_seasonal_cycles: 1\n",
	}
	for _, extra := range cases {
		_, err := Load(writeConfig(t, minimalYAML+extra))
		require.Error(t, err, "config:\n%s", extra)
	}
}

func TestLoadRequiresSeriesSource(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
series:
  source: postgres
`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `
environment: test
series:
  source: csv
`))
	require.Error(t, err, "csv source requires a path")

	_, err = Load(writeConfig(t, `
environment: test
series:
  source: clickhouse
`))
	require.Error(t, err, "clickhouse source requires the client enabled")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SERIES_CSV_PATH", "/tmp/override.csv")
	t.Setenv("REDIS_HOST", "redis.internal")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	require.Equal(t, "/tmp/override.csv", cfg.Series.CSVPath)
	require.Equal(t, "redis.internal", cfg.Cache.Host)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestKafkaValidation(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
kafka:
  enabled: true
`))
	require.Error(t, err)

	cfg, err := Load(writeConfig(t, minimalYAML+`
kafka:
  enabled: true
  brokers: ["localhost:9092"]
`))
	require.NoError(t, err)
	require.True(t, cfg.Kafka.Enabled)
}
