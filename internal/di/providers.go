package di

import (
	"context"
	"fmt"
	"time"

	"Screener/internal/domain/repository"
	"Screener/internal/handler/api"
	internalrepo "Screener/internal/repository"
	icache "Screener/internal/service/cache"
	"Screener/internal/usecase"
	pkgcache "Screener/pkg/cache"
	pkgch "Screener/pkg/clickhouse"
	"Screener/pkg/config"
	xhttp "Screener/pkg/http"
	pkgkafka "Screener/pkg/kafka"
	"Screener/pkg/logger"
	"Screener/pkg/metrics"
	"Screener/pkg/queue"
	"Screener/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (date Date, asset String, open Float64, high Float64, low Float64, close Float64, volume Float64) ENGINE=MergeTree ORDER BY (date, asset)", cfg.ClickHouse.BarsTable),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (screen String, date Date, asset String, output String, value Nullable(Float64)) ENGINE=MergeTree ORDER BY (screen, date, asset, output)", cfg.ClickHouse.ResultsTable),
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideCache creates the shared cache layer: layered Redis when Redis is
// enabled, in-process memory cache otherwise.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(redisCache), nil
}

// ProvideColumnStore creates the bar column store with a cache decorator.
func ProvideColumnStore(
	chClient *pkgch.Client,
	c pkgcache.Service,
	m repository.Metrics,
	cfg *config.Config,
) repository.ColumnStore {
	store := internalrepo.NewClickHouseColumnStore(chClient.DB(), cfg.ClickHouse.BarsTable)
	return internalrepo.NewCachedColumnStore(store, c, cfg.Runs.CacheTTL, m)
}

// ProvideResultSink routes results to the configured backend.
func ProvideResultSink(
	cfg *config.Config,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) (repository.ResultSink, error) {
	switch cfg.Results.Backend {
	case "kafka":
		return internalrepo.NewKafkaResultSink(producer, cfg.Kafka.ResultsTopic), nil
	case "clickhouse":
		return internalrepo.NewClickHouseResultSink(chClient.DB(), cfg.ClickHouse.ResultsTable), nil
	default:
		return nil, fmt.Errorf("unknown results backend: %s", cfg.Results.Backend)
	}
}

// ProvideResultProcessor creates the result processor use case.
func ProvideResultProcessor(
	sink repository.ResultSink,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ResultProcessor {
	return usecase.NewResultProcessor(
		sink,
		m,
		cfg.Results.Backend,
		cfg.Results.BatchSize,
		cfg.Results.Timeout,
	)
}

// ProvideScreenService builds the screen registry.
func ProvideScreenService(
	cfg *config.Config,
	store repository.ColumnStore,
	processor *usecase.ResultProcessor,
	m repository.Metrics,
	log *logger.Logger,
) (*usecase.ScreenService, error) {
	return usecase.NewScreenService(cfg, store, processor, m, log)
}

// ProvideJobStore keeps async run state in the cache layer.
func ProvideJobStore(c pkgcache.Service) repository.JobStore {
	return internalrepo.NewCacheJobStore(c, 24*time.Hour)
}

// ProvideJobQueue creates the Redis-backed run queue when enabled.
func ProvideJobQueue(
	cfg *config.Config,
	log *logger.Logger,
	c pkgcache.Service,
	service *usecase.ScreenService,
	jobs repository.JobStore,
) *queue.RedisQueue {
	if !cfg.Redis.Enabled || !cfg.Redis.Queue.Enabled {
		return nil
	}
	layered, ok := c.(*pkgcache.LayeredCache)
	if !ok {
		return nil
	}
	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}, layered.Redis().Client(), queue.ModeProducerConsumer)
	q.RegisterJob(usecase.NewScreenRunJob(service, jobs, log))
	return q
}

// ProvideJobDispatcher creates the async run dispatcher.
func ProvideJobDispatcher(q *queue.RedisQueue, jobs repository.JobStore) *usecase.JobDispatcher {
	var qs queue.QueueService
	if q != nil {
		qs = q
	}
	return usecase.NewJobDispatcher(qs, jobs)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaRunsHandler registers the handler for the runs topic.
func ProvideKafkaRunsHandler(
	service *usecase.ScreenService,
	m repository.Metrics,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.KafkaRunsHandler {
	return usecase.NewKafkaRunsHandler(cfg.Kafka.RunsTopic, service, m, log)
}

// ProvideScreensHandler creates the HTTP handler with rate limiting and
// response caching.
func ProvideScreensHandler(
	log *logger.Logger,
	service *usecase.ScreenService,
	dispatcher *usecase.JobDispatcher,
	cfg *config.Config,
) xhttp.Handler {
	h := api.NewScreensHandler(log, service, dispatcher, cfg.Runs.RateLimitRPS)
	if cfg.Runs.CacheTTL > 0 {
		if cfg.Redis.Enabled {
			h.SetCache(icache.NewRedisCache(icache.RedisConfig{
				Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			}), cfg.Runs.CacheTTL)
		} else {
			h.SetCache(icache.NewTTLCache(), cfg.Runs.CacheTTL)
		}
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	runsHandler *usecase.KafkaRunsHandler,
	chClient *pkgch.Client,
	jobQueue *queue.RedisQueue,
	processor *usecase.ResultProcessor,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, log, handler, consumer, runsHandler, chClient, jobQueue)
	app.Processor = processor
	return app
}
