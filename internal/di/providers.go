package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"SRZones/internal/domain/models"
	"SRZones/internal/domain/repository"
	"SRZones/internal/handler/api"
	internalrepo "SRZones/internal/repository"
	"SRZones/internal/services/cluster"
	"SRZones/internal/usecase"
	"SRZones/pkg/cache"
	pkgch "SRZones/pkg/clickhouse"
	"SRZones/pkg/config"
	xhttp "SRZones/pkg/http"
	pkgkafka "SRZones/pkg/kafka"
	applogger "SRZones/pkg/logger"
	"SRZones/pkg/metrics"
	"SRZones/pkg/postgres"
	"SRZones/pkg/queue"
	"SRZones/pkg/server"
)

const initTimeout = 10 * time.Second

// Batch is what a one-shot build run needs.
type Batch struct {
	Job     *usecase.BuildJob
	Metrics *metrics.Recorder
	Logger  *applogger.Logger
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideRegistry gives every component one registry so a batch run can
// push all of it.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.NewWithRegistry(reg, reg)
}

// ProvideClickHouseClient connects only when an input or store needs it.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.UsesClickHouse() {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvidePostgresPool connects only when the postgres store is enabled.
func ProvidePostgresPool(cfg *config.Config) (*postgres.Pool, func(), error) {
	if !cfg.HasStore("postgres") {
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	pcfg := postgres.DefaultPoolConfig()
	pcfg.MaxConns = cfg.Postgres.MaxConns
	pcfg.MinConns = cfg.Postgres.MinConns
	pcfg.MaxConnLifetime = cfg.Postgres.MaxConnLifetime
	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, pcfg)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Close, nil
}

// ProvideRedisCache connects when redis is enabled, otherwise returns nil.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddress(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideBarSource selects the configured bar input.
func ProvideBarSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.BarSource, error) {
	switch cfg.Input.Source {
	case "clickhouse":
		src, err := internalrepo.NewCHBarSource(ch, cfg.Input.Table, repository.NormalizeTimeframe(cfg.Input.Timeframe))
		if err != nil {
			return nil, err
		}
		src.SetLogger(l)
		return src, nil
	default:
		src := internalrepo.NewCSVBarSource(cfg.Input.CSVFile, cfg.Input.CloseColumn)
		src.SetLogger(l)
		return src, nil
	}
}

// ProvideClusterer builds the configured clustering primitive.
func ProvideClusterer(cfg *config.Config) (repository.Clusterer, error) {
	centering, err := cluster.ParseCentering(cfg.Params.Centering)
	if err != nil {
		return nil, err
	}
	return cluster.New(cfg.Params.Clustering, centering, cfg.Params.Seed)
}

// ProvideCalendarStore opens every configured store, in configured order.
func ProvideCalendarStore(
	cfg *config.Config,
	ch *pkgch.Client,
	pg *postgres.Pool,
	rc *cache.RedisCache,
	l *applogger.Logger,
) (repository.CalendarStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var stores []repository.CalendarStore
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}
	for _, name := range cfg.Output.Stores {
		switch name {
		case "file":
			stores = append(stores, internalrepo.NewFileCalendarStore(cfg.Output.Dir))
		case "sqlite":
			s, err := internalrepo.OpenSQLiteCalendarStore(ctx, cfg.SQLite.Path)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			closers = append(closers, s.Close)
			stores = append(stores, s)
		case "postgres":
			s, err := internalrepo.NewPostgresCalendarStore(ctx, pg)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			stores = append(stores, s)
		case "clickhouse":
			s, err := internalrepo.NewCHCalendarStore(ctx, ch)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			s.SetLogger(l)
			stores = append(stores, s)
		case "redis":
			stores = append(stores, internalrepo.NewCacheCalendarStore(rc, cfg.Redis.TTL))
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unknown calendar store %q", name)
		}
	}
	if len(stores) == 1 {
		return stores[0], cleanup, nil
	}
	return internalrepo.NewMultiStore(stores...), cleanup, nil
}

// ProvideKafkaProducer creates a Kafka producer when publishing is enabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideCalendarPublisher falls back to a no-op without a producer.
func ProvideCalendarPublisher(cfg *config.Config, producer *pkgkafka.Producer) (repository.CalendarPublisher, func()) {
	if producer == nil {
		return internalrepo.NoopPublisher{}, func() {}
	}
	pub := internalrepo.NewKafkaCalendarPublisher(producer, cfg.Kafka.Topic)
	return pub, func() { _ = pub.Close() }
}

// ProvideBuildJob assembles the pipeline.
func ProvideBuildJob(
	cfg *config.Config,
	bars repository.BarSource,
	clusterer repository.Clusterer,
	store repository.CalendarStore,
	pub repository.CalendarPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.BuildJob {
	return usecase.NewBuildJob(bars, clusterer, store, pub, m, BuildJobConfig(cfg), l)
}

// BuildJobConfig maps the params and output sections onto a job config.
func BuildJobConfig(cfg *config.Config) usecase.BuildJobConfig {
	p := cfg.Params
	return usecase.BuildJobConfig{
		Params: models.ZoneParams{
			Period:       p.Period,
			MinHeightPct: p.MinHeightPct,
			ZoneWidth:    p.ZoneWidth,
			MinTouches:   p.MinTouches,
			Clusters:     p.Clusters,
			MinExtrema:   p.MinExtrema,
		},
		JPYMultiplier: p.JPYMultiplier,
		LevelsCSV:     cfg.Output.LevelsCSV,
	}
}

func ProvideBatch(job *usecase.BuildJob, m *metrics.Recorder, l *applogger.Logger) *Batch {
	return &Batch{Job: job, Metrics: m, Logger: l}
}

// ProvideZonesQuery caches calendars in memory, fronting Redis when it is
// enabled. A rebuild on another instance reaches this instance's memory
// layer only when its entry expires, after at most cache.l1_ttl.
func ProvideZonesQuery(cfg *config.Config, store repository.CalendarStore, rc *cache.RedisCache) (*usecase.ZonesQuery, func()) {
	var c cache.Service
	if rc != nil {
		c = cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(cfg.Cache.L1TTL))
	} else {
		c = cache.NewMemoryCache(cache.WithMemoryCleanup(cfg.Cache.CleanupInterval))
	}
	return usecase.NewZonesQuery(store, c, cfg.Cache.TTL), func() { _ = c.Close() }
}

func ProvideHTTPHandler(l *applogger.Logger, q *usecase.ZonesQuery) xhttp.Handler {
	return api.NewZonesEchoHandler(l, q)
}

func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	if cfg.Server.RateLimit.PerSecond > 0 {
		opts = append(opts, xhttp.WithRateLimit(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst))
	}
	return xhttp.NewServer(h, l, opts...)
}

// ProvideRebuildQueue returns nil when the rebuild queue is disabled.
func ProvideRebuildQueue(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Queue.Prefix))
}

// ProvideRebuilder returns nil when nothing is scheduled and no queue
// workers run. With a queue the rebuilder both enqueues and consumes.
func ProvideRebuilder(cfg *config.Config, job *usecase.BuildJob, q *usecase.ZonesQuery, rq *queue.RedisQueue, l *applogger.Logger) (*usecase.Rebuilder, error) {
	if cfg.Schedule.RebuildCron == "" && rq == nil {
		return nil, nil
	}
	r, err := usecase.NewRebuilder(job, q, cfg.Schedule.Pairs, cfg.Schedule.HistoryDays, l)
	if err != nil {
		return nil, err
	}
	if rq != nil {
		rq.RegisterJob(r)
		r.UseQueue(rq)
	}
	return r, nil
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, r *usecase.Rebuilder, rq *queue.RedisQueue) (*server.App, error) {
	return server.New(cfg, l, srv, r, rq)
}
