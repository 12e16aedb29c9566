package di

import (
	"context"
	"fmt"
	"time"

	"MacroPulse/internal/domain/repository"
	domsvc "MacroPulse/internal/domain/service"
	"MacroPulse/internal/handler/api"
	internalrepo "MacroPulse/internal/repository"
	"MacroPulse/internal/services/detectors"
	"MacroPulse/internal/usecase"
	"MacroPulse/pkg/cache"
	pkgch "MacroPulse/pkg/clickhouse"
	"MacroPulse/pkg/config"
	xhttp "MacroPulse/pkg/http"
	pkgkafka "MacroPulse/pkg/kafka"
	applogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/metrics"
	"MacroPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSeriesStore selects the configured indicator series source.
func ProvideSeriesStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.SeriesStore, error) {
	switch cfg.Series.Source {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("series source clickhouse requires an enabled clickhouse client")
		}
		store := internalrepo.NewCHSeriesStore(ch)
		store.SetLogger(l)
		return store, nil
	default:
		store := internalrepo.NewCSVSeriesStore(cfg.Series.CSVPath)
		store.SetLogger(l)
		return store, nil
	}
}

// ProvideResultStore creates the ClickHouse result store, or nil when
// persistence is disabled. The schema is ensured here so the pipeline can
// assume it exists.
func ProvideResultStore(ch *pkgch.Client, l *applogger.Logger) (repository.ResultStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHResultStore(ch)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("result store schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertPublisher creates the Kafka alert publisher, or nil when
// alerting is disabled.
func ProvideAlertPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) repository.AlertPublisher {
	if producer == nil {
		return nil
	}
	pub := internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.Topic)
	pub.SetLogger(l)
	return pub
}

// ProvideCache selects Redis when enabled, falling back to the in-memory cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.RedisEnabled {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Host),
			cache.WithRedisPort(cfg.Cache.Port),
			cache.WithRedisPassword(cfg.Cache.Password),
			cache.WithRedisDB(cfg.Cache.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryCache(), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideDetectors builds the detector ensemble from config.
func ProvideDetectors(cfg *config.Config, l *applogger.Logger) []domsvc.Detector {
	d := cfg.Detectors

	forecast := detectors.NewForecastDeviation(detectors.ForecastConfig{
		ConfidenceLevel:   d.ForecastConfidenceLevel,
		MinHistory:        d.ForecastMinHistory,
		MinSeasonalCycles: d.MinSeasonalCycles,
	})
	forecast.SetLogger(l)

	return []domsvc.Detector{
		detectors.NewMultivariate(detectors.MultivariateConfig{
			Contamination: d.MultivariateContamination,
			MinPeriods:    d.MinPeriodsForMultivariate,
		}),
		detectors.NewDecomposer(detectors.DecomposerConfig{
			FlagThresholdK:    d.ResidualFlagThresholdK,
			MinSeasonalCycles: d.MinSeasonalCycles,
		}),
		forecast,
	}
}

// ProvidePipeline creates the detector pipeline.
func ProvidePipeline(dets []domsvc.Detector, m repository.Metrics, l *applogger.Logger) *usecase.AnomalyPipeline {
	p := usecase.NewAnomalyPipeline(dets, m)
	p.SetLogger(l)
	return p
}

// ProvideConsolidationUseCase creates the consolidation use case.
func ProvideConsolidationUseCase(
	cfg *config.Config,
	series repository.SeriesStore,
	pipeline *usecase.AnomalyPipeline,
	results repository.ResultStore,
	alerts repository.AlertPublisher,
	c cache.Service,
	l *applogger.Logger,
) *usecase.ConsolidationUseCase {
	uc := usecase.NewConsolidationUseCase(series, pipeline, results, alerts, c, cfg.Cache.TTL)
	uc.SetLogger(l)
	return uc
}

// ProvideHTTPHandler creates the anomalies HTTP handler.
func ProvideHTTPHandler(l *applogger.Logger, uc *usecase.ConsolidationUseCase) xhttp.Handler {
	return api.NewAnomaliesEchoHandler(l, uc)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	uc *usecase.ConsolidationUseCase,
	handler xhttp.Handler,
	results repository.ResultStore,
	alerts repository.AlertPublisher,
	c cache.Service,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, uc, handler, results, alerts, c, l)
}
