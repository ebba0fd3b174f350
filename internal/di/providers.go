package di

import (
	"context"
	"fmt"
	"time"

	"AttackDash/internal/domain/repository"
	"AttackDash/internal/handler/api"
	"AttackDash/internal/handler/ws"
	"AttackDash/internal/scheduler"
	"AttackDash/internal/service/ratelimit"
	"AttackDash/internal/service/upstream"
	"AttackDash/internal/usecase"
	"AttackDash/pkg/cache"
	"AttackDash/pkg/config"
	xhttp "AttackDash/pkg/http"
	pkgkafka "AttackDash/pkg/kafka"
	"AttackDash/pkg/logger"
	"AttackDash/pkg/metrics"
	"AttackDash/pkg/server"
)

const rateLimitIdle = 10 * time.Minute

// Sources holds one upstream client per external service.
type Sources struct {
	Loki     *upstream.Source
	Quotes   *upstream.Source
	Forecast usecase.ForecastSources
}

// ProvideKafkaProducer creates the log collector's producer. It is nil when
// the collector is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Log.Collector.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(1),
		pkgkafka.WithBatch(100, time.Second),
		pkgkafka.WithAsync(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger and attaches the collector
// when a producer is available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideLocation resolves the configured wall-clock zone.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache builds the configured cache backend.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, error) {
	mem := cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.MaxSize),
		cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
	)
	if cfg.Cache.Backend != "layered" {
		return mem, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("layered cache enabled", logger.String("redis", cfg.Cache.Redis.Addr))
	return cache.NewLayeredCache(mem, rc), nil
}

// ProvideSources creates one breaker-guarded client per upstream.
func ProvideSources(cfg *config.Config, log *logger.Logger, m repository.Metrics) Sources {
	source := func(name, baseURL string, timeout time.Duration, headers map[string]string) *upstream.Source {
		return upstream.New(upstream.Settings{
			Name:             name,
			BaseURL:          baseURL,
			Timeout:          timeout,
			Headers:          headers,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
		}, log, m)
	}
	return Sources{
		Loki:   source("loki", cfg.Loki.BaseURL, cfg.Loki.Timeout, nil),
		Quotes: source("yahoo", cfg.Quotes.BaseURL, cfg.Quotes.Timeout, map[string]string{"User-Agent": cfg.Quotes.UserAgent}),
		Forecast: usecase.ForecastSources{
			Forecast:     source("smhi-forecast", cfg.Forecast.ForecastURL, cfg.Forecast.Timeout, nil),
			Sun:          source("sunrise-sunset", cfg.Forecast.SunURL, cfg.Forecast.Timeout, nil),
			Observations: source("smhi-observations", cfg.Forecast.ObservationsURL, cfg.Forecast.Timeout, nil),
		},
	}
}

func ProvideAttackTelemetry(cfg *config.Config, src Sources, loc *time.Location, m repository.Metrics, log *logger.Logger) *usecase.AttackTelemetry {
	return usecase.NewAttackTelemetry(src.Loki, cfg.Loki.Job, loc, m, log)
}

func ProvideQuoteProvider(cfg *config.Config, src Sources, c cache.Service, loc *time.Location, m repository.Metrics, log *logger.Logger) *usecase.QuoteProvider {
	return usecase.NewQuoteProvider(src.Quotes, c, cfg.Quotes.CacheTTL, cfg.Quotes.Indices, cfg.Quotes.Stocks, loc, m, log)
}

func ProvideForecastAggregator(cfg *config.Config, src Sources, c cache.Service, loc *time.Location, m repository.Metrics, log *logger.Logger) *usecase.ForecastAggregator {
	return usecase.NewForecastAggregator(src.Forecast, c, usecase.ForecastSettings{
		Latitude:    cfg.Forecast.Latitude,
		Longitude:   cfg.Forecast.Longitude,
		CacheTTL:    cfg.Forecast.CacheTTL,
		ExtremesTTL: cfg.Forecast.ExtremesTTL,
		Location:    loc,
	}, m, log)
}

func ProvideDashboard(cfg *config.Config, attacks *usecase.AttackTelemetry, quotes *usecase.QuoteProvider, forecast *usecase.ForecastAggregator) *usecase.Dashboard {
	return usecase.NewDashboard(attacks, quotes, forecast, cfg.Dashboard.RecentLimit)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
}

func ProvideHub(log *logger.Logger) *ws.Hub {
	return ws.NewHub(log)
}

// ProvideHTTPServer registers the JSON API and the websocket route.
func ProvideHTTPServer(
	cfg *config.Config,
	log *logger.Logger,
	attacks *usecase.AttackTelemetry,
	quotes *usecase.QuoteProvider,
	forecast *usecase.ForecastAggregator,
	dashboard *usecase.Dashboard,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
) *xhttp.Server {
	var opts []api.HandlerOption
	if limiter != nil {
		opts = append(opts, api.WithRateLimit(api.RateLimit(limiter, log)))
	}
	handlers := []xhttp.Handler{
		api.NewDashboardHandler(log, attacks, quotes, forecast, dashboard, opts...),
		ws.NewHandler(hub, log),
	}

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		serverOpts = append(serverOpts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(log, handlers, serverOpts...)
}

// ProvideScheduler refreshes the dashboard into the hub and prunes idle
// rate-limit buckets on each pass.
func ProvideScheduler(cfg *config.Config, dashboard *usecase.Dashboard, hub *ws.Hub, limiter *ratelimit.Limiter, log *logger.Logger) *scheduler.Scheduler {
	var opts []scheduler.Option
	if limiter != nil {
		opts = append(opts, scheduler.WithHousekeeping(func() { limiter.Prune(rateLimitIdle) }))
	}
	return scheduler.New(dashboard, hub, cfg.Dashboard.RefreshInterval, log, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	sched *scheduler.Scheduler,
	c cache.Service,
	producer *pkgkafka.Producer,
) *server.App {
	return server.New(cfg, log, httpServer, hub, sched, c, producer)
}
