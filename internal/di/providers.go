package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StockSense/internal/domain/repository"
	domsvc "StockSense/internal/domain/service"
	"StockSense/internal/handler/api"
	"StockSense/internal/handler/ws"
	internalrepo "StockSense/internal/repository"
	"StockSense/internal/service/txsource"
	"StockSense/internal/services/normalize"
	"StockSense/internal/usecase"
	"StockSense/pkg/cache"
	pkgch "StockSense/pkg/clickhouse"
	"StockSense/pkg/config"
	xhttp "StockSense/pkg/http"
	"StockSense/pkg/http/middleware"
	pkgkafka "StockSense/pkg/kafka"
	"StockSense/pkg/logger"
	"StockSense/pkg/metrics"
	"StockSense/pkg/server"
)

// Pipeline exposes both stages to the command-line runner.
type Pipeline struct {
	Log      *logger.Logger
	Prepare  *usecase.PrepareService
	Forecast *usecase.ForecastService
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideCache returns Redis when enabled, otherwise an in-process cache.
// The cache backs the run lock, so a Redis lock spans replicas.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache()
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis connected", logger.String("host", cfg.Redis.Host), logger.Int("port", cfg.Redis.Port))
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideClickHouseClient creates a ClickHouse client and its database.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideHandoffStore selects the artifact backend from handoff.backend.
func ProvideHandoffStore(cfg *config.Config, c cache.Service, l *logger.Logger) (repository.HandoffStore, func(), error) {
	switch cfg.Handoff.Backend {
	case "file":
		s, err := internalrepo.NewFileHandoffStore(cfg.Handoff.Dir, l)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "sqlite":
		s, err := internalrepo.NewSQLiteHandoffStore(cfg.Handoff.SQLitePath, cfg.Handoff.Table, l)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "redis":
		rc, ok := c.(*cache.RedisCache)
		if !ok {
			return nil, nil, fmt.Errorf("handoff backend redis requires redis.enabled")
		}
		s := internalrepo.NewRedisHandoffStore(rc, l)
		return s, func() { _ = s.Close() }, nil
	case "clickhouse":
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse ping: %w", err)
		}
		if err := client.InitSchema(ctx, []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		s, err := internalrepo.NewClickHouseHandoffStore(ctx, client, cfg.ClickHouse.Database+"."+cfg.Handoff.Table, l)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return s, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown handoff backend %q", cfg.Handoff.Backend)
	}
}

// ProvideTransactionSource creates the upstream HTTP client.
func ProvideTransactionSource(cfg *config.Config, l *logger.Logger) repository.TransactionSource {
	return txsource.New(txsource.Config{
		BaseURL:          cfg.Source.BaseURL,
		LoginPath:        cfg.Source.LoginPath,
		TransactionsPath: cfg.Source.TransactionsPath,
		Sort:             cfg.Source.Sort,
		Timeout:          cfg.Source.Timeout,
		MaxBodyBytes:     cfg.Source.MaxBodyBytes,
	}, l)
}

// ProvideServiceCredential returns the credential for runs nobody is
// authenticated for (Kafka commands), or nil when none is configured.
func ProvideServiceCredential(cfg *config.Config) repository.Credential {
	if cfg.Source.ServiceToken == "" {
		return nil
	}
	return txsource.NewBearerToken(cfg.Source.ServiceToken)
}

func ProvideNormalizer(cfg *config.Config) (*normalize.Normalizer, error) {
	loc, err := cfg.Normalizer.Location()
	if err != nil {
		return nil, err
	}
	n := cfg.Normalizer
	return normalize.New(normalize.Fields{
		Entity:    n.EntityField,
		Type:      n.TypeField,
		Timestamp: n.TimestampField,
		Quantity:  n.QuantityField,
		Amount:    n.AmountField,
	}, loc), nil
}

func ProvideSeriesForecaster(cfg *config.Config, m repository.Metrics, l *logger.Logger) (domsvc.SeriesForecaster, error) {
	return usecase.NewEntityForecaster(cfg.Forecast, m, l)
}

// ProvideForecastPublisher publishes to Kafka when enabled, otherwise nil.
func ProvideForecastPublisher(cfg *config.Config) (repository.ForecastPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.ProducerOptions(cfg.Kafka)...)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.ForecastTopic)
	return pub, func() { _ = pub.Close() }, nil
}

func ProvideHub(l *logger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

// ProvideAppObserver streams run events to websocket clients and the log.
func ProvideAppObserver(hub *ws.Hub, l *logger.Logger) repository.RunObserver {
	return usecase.Observers{hub, usecase.LogObserver{L: l}}
}

// ProvidePipelineObserver logs run events; the CLI has no websocket clients.
func ProvidePipelineObserver(l *logger.Logger) repository.RunObserver {
	return usecase.LogObserver{L: l}
}

func ProvidePrepareService(
	cfg *config.Config,
	src repository.TransactionSource,
	n *normalize.Normalizer,
	store repository.HandoffStore,
	c cache.Service,
	obs repository.RunObserver,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.PrepareService {
	return usecase.NewPrepareService(src, n, store, c, cfg.Handoff.LockTTL, obs, m, l)
}

func ProvideForecastService(
	cfg *config.Config,
	store repository.HandoffStore,
	f domsvc.SeriesForecaster,
	pub repository.ForecastPublisher,
	obs repository.RunObserver,
	m repository.Metrics,
	l *logger.Logger,
) (*usecase.ForecastService, error) {
	weekEnd, err := cfg.Forecast.WeekEndDay()
	if err != nil {
		return nil, err
	}
	return usecase.NewForecastService(store, f, pub, obs, m, l, usecase.ForecastOptions{
		WeekEnd:  weekEnd,
		ZeroFill: cfg.Forecast.ZeroFillEnabled(),
		Workers:  cfg.Forecast.Workers,
	}), nil
}

// ProvideKafkaConsumer creates the run-command consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(pkgkafka.ConsumerOptions(cfg.Kafka, l)...)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

func ProvideKafkaRunsHandler(
	cfg *config.Config,
	prep *usecase.PrepareService,
	fc *usecase.ForecastService,
	cred repository.Credential,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.KafkaRunsHandler {
	return usecase.NewKafkaRunsHandler(cfg.Kafka.RunsTopic, prep, fc, cred, m, l)
}

func ProvideAPIHandler(cfg *config.Config, l *logger.Logger, prep *usecase.PrepareService, fc *usecase.ForecastService) *api.ForecastEchoHandler {
	var limiter *middleware.Limiter
	if cfg.Server.PrepareRate > 0 {
		limiter = middleware.NewLimiter(cfg.Server.PrepareBurst, cfg.Server.PrepareRate)
	}
	return api.NewForecastEchoHandler(l, prep, fc, limiter)
}

// ProvideHTTPServer mounts the API, the run stream and, when enabled, /metrics.
func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, h *api.ForecastEchoHandler, hub *ws.Hub) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, promhttp.Handler()))
	}
	return xhttp.NewServer(l, []xhttp.Handler{h, hub}, opts...)
}

func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	runs *usecase.KafkaRunsHandler,
) *server.App {
	return server.New(cfg, l, srv, hub, consumer, runs)
}

func ProvidePipeline(l *logger.Logger, prep *usecase.PrepareService, fc *usecase.ForecastService) *Pipeline {
	return &Pipeline{Log: l, Prepare: prep, Forecast: fc}
}
