package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lblaseygg/minty/internal/domain/repository"
	"github.com/lblaseygg/minty/internal/handler/api"
	"github.com/lblaseygg/minty/internal/ledger"
	mid "github.com/lblaseygg/minty/internal/middleware"
	"github.com/lblaseygg/minty/internal/predictor"
	"github.com/lblaseygg/minty/internal/recommender"
	internalrepo "github.com/lblaseygg/minty/internal/repository"
	icache "github.com/lblaseygg/minty/internal/service/cache"
	"github.com/lblaseygg/minty/internal/service/finnhub"
	"github.com/lblaseygg/minty/internal/service/marketdata"
	"github.com/lblaseygg/minty/internal/service/modelregistry"
	"github.com/lblaseygg/minty/internal/usecase"
	pkgcache "github.com/lblaseygg/minty/pkg/cache"
	pkgch "github.com/lblaseygg/minty/pkg/clickhouse"
	"github.com/lblaseygg/minty/pkg/config"
	pkgkafka "github.com/lblaseygg/minty/pkg/kafka"
	applogger "github.com/lblaseygg/minty/pkg/logger"
	"github.com/lblaseygg/minty/pkg/metrics"
	"github.com/lblaseygg/minty/pkg/queue"
	"github.com/lblaseygg/minty/pkg/server"
)

// ProvideLogger builds the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStore opens the SQLite ledger store.
func ProvideStore(cfg *config.Config) (*internalrepo.SQLiteStore, error) {
	return internalrepo.NewSQLiteStore(cfg.Database.Path)
}

// ProvideCache builds the cache service: layered memory+Redis when Redis is
// enabled, plain in-process memory otherwise.
func ProvideCache(cfg *config.Config) (pkgcache.Service, *pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), rc, nil
}

// ProvideMarketData creates the chart API client.
func ProvideMarketData(cfg *config.Config) *marketdata.Client {
	return marketdata.New(cfg.MarketData.BaseURL, cfg.MarketData.Timeout)
}

// ProvideNews creates the headline source.
func ProvideNews(cfg *config.Config) *marketdata.NewsClient {
	return marketdata.NewNewsClient(cfg.Finnhub.RestURL, cfg.Finnhub.APIKey, cfg.MarketData.Timeout)
}

// ProvideRegistry builds the prediction engine and its per-symbol registry.
func ProvideRegistry(cfg *config.Config, lgr *applogger.Logger, m repository.Metrics, opts ...modelregistry.Option) *modelregistry.Registry {
	gcfg := predictor.DefaultGBRTConfig()
	if cfg.Model.Estimators > 0 {
		gcfg.NEstimators = cfg.Model.Estimators
	}
	if cfg.Model.MaxDepth > 0 {
		gcfg.MaxDepth = cfg.Model.MaxDepth
	}
	if cfg.Model.LearningRate > 0 {
		gcfg.LearningRate = cfg.Model.LearningRate
	}
	opts = append(opts, modelregistry.WithLogger(lgr), modelregistry.WithMetrics(m))
	return modelregistry.New(predictor.New(gcfg), cfg.Model.TTL, opts...)
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

// ProvideClickHouseClient creates a ClickHouse client and the fills schema.
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
	return client, nil
}

// ProvideFinnhubStream creates the Finnhub WebSocket stream.
func ProvideFinnhubStream(cfg *config.Config, lgr *applogger.Logger) repository.MarketStream {
	return finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		lgr,
	)
}

// ProvideTickCollector wires the stream through the realtime pipeline into
// the tick processor.
func ProvideTickCollector(
	stream repository.MarketStream,
	proc *usecase.TickProcessor,
	m repository.Metrics,
) *usecase.TickCollector {
	pipe := mid.NewRealtimePipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, proc, m, pipe)
}

// kafkaLogPublisher feeds aggregated log batches into the event stream.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	lgr, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	m := ProvideMetrics()

	store, err := ProvideStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	cacheSvc, redisCache, err := ProvideCache(cfg)
	if err != nil {
		return nil, err
	}

	market := ProvideMarketData(cfg)
	news := ProvideNews(cfg)

	// Background retrain queue rides on Redis when available.
	var (
		retrainQueue *queue.RedisQueue
		regOpts      []modelregistry.Option
	)
	if redisCache != nil {
		retrainQueue = queue.NewRedisQueue(lgr, &queue.QueueConfig{
			Workers:    cfg.Redis.Queue.Workers,
			QueueSize:  cfg.Redis.Queue.QueueSize,
			RetryLimit: cfg.Redis.Queue.RetryLimit,
			RetryDelay: cfg.Redis.Queue.RetryDelay,
		}, redisCache.Client(), queue.ModeProducerConsumer)
		regOpts = append(regOpts, modelregistry.WithRefresher(usecase.NewQueueRefresher(retrainQueue)))
	}

	registry := ProvideRegistry(cfg, lgr, m, regOpts...)

	// Fill events: Kafka publisher plus a ClickHouse audit consumer.
	var (
		producer     *pkgkafka.Producer
		consumer     *pkgkafka.Consumer
		fillsHandler *usecase.FillsHandler
		chClient     *pkgch.Client
		fillArchive  *internalrepo.ClickHouseFillArchive
		ledgerOpts   = []ledger.Option{ledger.WithMetrics(m), ledger.WithLogger(lgr)}
	)
	if cfg.Kafka.Enabled {
		producer, err = ProvideKafkaProducer(cfg)
		if err != nil {
			return nil, err
		}
		fillPub := internalrepo.NewKafkaFillPublisher(producer, cfg.Kafka.FillsTopic)
		ledgerOpts = append(ledgerOpts, ledger.WithFillPublisher(fillPub))

		if cfg.Kafka.LogsTopic != "" {
			lgr.AddCollector(&applogger.CollectionConfig{
				TimeInterval:   30 * time.Second,
				CountThreshold: 100,
				Topic:          cfg.Kafka.LogsTopic,
				Publisher:      kafkaLogPublisher{producer: producer},
			})
		}

		if cfg.ClickHouse.Enabled {
			chClient, err = ProvideClickHouseClient(cfg)
			if err != nil {
				return nil, err
			}
			fillArchive = internalrepo.NewClickHouseFillArchive(chClient.DB(), cfg.ClickHouse.FillsTable)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := fillArchive.Init(ctx); err != nil {
				cancel()
				return nil, fmt.Errorf("fills archive schema: %w", err)
			}
			cancel()

			consumer, err = ProvideKafkaConsumer(cfg)
			if err != nil {
				return nil, err
			}
			consumer.WithConsumerHook(pkgkafka.NoopHook{})
			fillsHandler = usecase.NewFillsHandler(cfg.Kafka.FillsTopic, fillArchive, m)
		}
	}

	ldg := ledger.New(store, market, ledgerOpts...)

	tickProc := usecase.NewTickProcessor(cacheSvc, m)
	var collector *usecase.TickCollector
	if cfg.Finnhub.StreamEnabled {
		collector = ProvideTickCollector(ProvideFinnhubStream(cfg, lgr), tickProc, m)
	}

	dashboard := usecase.NewDashboardUseCase(market, registry, recommender.New(), news, tickProc, cacheSvc, m, lgr)
	trading := usecase.NewTradingUseCase(ldg, store, market, lgr)

	if retrainQueue != nil {
		retrainQueue.RegisterJob(usecase.NewRetrainJob(dashboard))
	}

	dh := api.NewDashboardHandler(lgr, dashboard)
	var respCache icache.BytesCache = icache.NewTTLCache()
	if cfg.Redis.Enabled {
		respCache = icache.NewRedisCache(icache.RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	dh.SetCache(respCache)
	th := api.NewTradingHandler(lgr, trading)

	hh := api.NewHealthHandler()
	hh.AddCheck("store", store)
	if fillArchive != nil {
		hh.AddCheck("fills_archive", fillArchive)
	}

	opts := []server.Option{server.WithHandlers(dh, th, hh)}
	if collector != nil {
		opts = append(opts, server.WithCollector(collector))
	}
	if consumer != nil && fillsHandler != nil {
		opts = append(opts, server.WithConsumer(consumer, fillsHandler))
	}
	if retrainQueue != nil {
		opts = append(opts, server.WithQueue(retrainQueue))
	}
	closers := []io.Closer{store}
	if chClient != nil {
		closers = append(closers, chClient)
	}
	if producer != nil {
		closers = append(closers, producer)
	}
	opts = append(opts, server.WithClosers(closers...))

	return server.New(cfg, lgr, opts...), nil
}
