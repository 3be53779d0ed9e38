package di

import (
	"context"
	"fmt"
	"time"

	"MarketWatch/internal/anomaly"
	"MarketWatch/internal/consensus"
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/exchange"
	"MarketWatch/internal/exchange/binance"
	"MarketWatch/internal/indicator"
	internalrepo "MarketWatch/internal/repository"
	"MarketWatch/internal/saga"
	"MarketWatch/internal/strategy"
	"MarketWatch/internal/usecase"
	"MarketWatch/pkg/cache"
	pkgch "MarketWatch/pkg/clickhouse"
	"MarketWatch/pkg/config"
	pkgkafka "MarketWatch/pkg/kafka"
	applogger "MarketWatch/pkg/logger"
	"MarketWatch/pkg/metrics"
	"MarketWatch/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideCache creates the Redis-backed baseline cache.
func ProvideCache(cfg *config.Config) (*cache.RedisCache, error) {
	c, err := cache.NewRedisCache(
		cache.WithAddr(cfg.Redis.Addr),
		cache.WithPassword(cfg.Redis.Password),
		cache.WithDB(cfg.Redis.DB),
		cache.WithPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideCacheService exposes the Redis cache through the Service interface.
func ProvideCacheService(c *cache.RedisCache) cache.Service { return c }

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// backend is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideSignalStore persists results to ClickHouse when enabled, otherwise
// drops them.
func ProvideSignalStore(chClient *pkgch.Client, log *applogger.Logger) domrepo.SignalStore {
	if chClient == nil {
		return internalrepo.NopSignalStore{}
	}
	return internalrepo.NewCHSignalStore(chClient, log)
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher adapts the producer to the domain publisher contract.
func ProvidePublisher(producer *pkgkafka.Producer) domrepo.Publisher {
	return internalrepo.NewKafkaPublisher(producer)
}

// ProvideKafkaConsumer creates the consumer driving the strategy saga.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideExchangeRegistry connects every configured exchange.
func ProvideExchangeRegistry(cfg *config.Config, log *applogger.Logger) (*exchange.Registry, error) {
	registry := exchange.NewRegistry()
	for _, ec := range cfg.Exchanges {
		switch ec.Name {
		case binance.Name:
			registry.Register(binance.New(ec.APIKey, ec.APISecret, log))
		default:
			return nil, fmt.Errorf("%w: %s", exchange.ErrUnknownExchange, ec.Name)
		}
	}
	return registry, nil
}

// ProvideDetector creates the anomaly detector over the baseline cache.
func ProvideDetector(c cache.Service, cfg *config.Config, log *applogger.Logger) *anomaly.Detector {
	return anomaly.NewDetector(c, cfg, log)
}

// ProvideDownloadUseCase creates the symbol download stage.
func ProvideDownloadUseCase(pub domrepo.Publisher, m domrepo.Metrics, cfg *config.Config, log *applogger.Logger) *usecase.DownloadUseCase {
	return usecase.NewDownloadUseCase(pub, m, cfg, log)
}

// ProvideClassifyUseCase creates the classification stage.
func ProvideClassifyUseCase(
	detector *anomaly.Detector,
	pub domrepo.Publisher,
	c cache.Service,
	store domrepo.SignalStore,
	m domrepo.Metrics,
	cfg *config.Config,
	log *applogger.Logger,
) *usecase.ClassifyUseCase {
	return usecase.NewClassifyUseCase(detector, pub, c, store, m, cfg, log)
}

// ProvideHistoryUseCase creates the historical bar fetch stage.
func ProvideHistoryUseCase(registry *exchange.Registry, m domrepo.Metrics, cfg *config.Config, log *applogger.Logger) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(registry, m, cfg, log)
}

// ProvideStrategyRegistry registers the built-in strategies and, when
// configured, loads plugin strategies from disk.
func ProvideStrategyRegistry(cfg *config.Config, log *applogger.Logger) (*strategy.Registry, error) {
	var loader strategy.Loader
	if cfg.Strategies.LoadPlugins {
		loader = strategy.PluginLoader{}
	}
	registry := strategy.NewRegistry(loader, log)

	indicators := indicator.NewRegistry()
	builtins := []strategy.Strategy{
		strategy.NewStochRSICross(indicators),
		strategy.NewMomentumCross(indicators),
		strategy.NewVolumeSurge(),
	}
	for _, s := range builtins {
		if err := registry.Register(s); err != nil {
			return nil, fmt.Errorf("register strategy %s: %w", s.Name(), err)
		}
	}

	if cfg.Strategies.LoadPlugins && cfg.Strategies.Dir != "" {
		if err := registry.Reload(cfg.Strategies.Dir); err != nil {
			return nil, fmt.Errorf("load strategy plugins: %w", err)
		}
	}

	return registry, nil
}

// ProvideEvaluator creates the consensus evaluator.
func ProvideEvaluator(registry *strategy.Registry, m domrepo.Metrics, log *applogger.Logger) *consensus.Evaluator {
	return consensus.NewEvaluator(registry, m, log)
}

// ProvideStrategySaga creates the trade signal saga.
func ProvideStrategySaga(
	history *usecase.HistoryUseCase,
	evaluator *consensus.Evaluator,
	pub domrepo.Publisher,
	store domrepo.SignalStore,
	m domrepo.Metrics,
	cfg *config.Config,
	log *applogger.Logger,
) *saga.StrategySaga {
	return saga.NewStrategySaga(history, evaluator, pub, store, m, cfg, log)
}

// ProvideValidSymbolsHandler consumes valid symbols back into the strategy
// saga.
func ProvideValidSymbolsHandler(cfg *config.Config, s *saga.StrategySaga) pkgkafka.MessageHandler {
	return saga.NewValidSymbolsHandler(cfg, s)
}

// ProvideMarketWatchers creates one watcher saga per registered exchange.
func ProvideMarketWatchers(
	registry *exchange.Registry,
	download *usecase.DownloadUseCase,
	classify *usecase.ClassifyUseCase,
	strategySaga *saga.StrategySaga,
	m domrepo.Metrics,
	cfg *config.Config,
	log *applogger.Logger,
) (map[string]*saga.MarketWatcher, error) {
	watchers := make(map[string]*saga.MarketWatcher, len(registry.Names()))
	for _, name := range registry.Names() {
		client, err := registry.Get(name)
		if err != nil {
			return nil, err
		}
		watchers[name] = saga.NewMarketWatcher(client, download, classify, strategySaga, m, cfg, log)
	}
	return watchers, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	watchers map[string]*saga.MarketWatcher,
	strategies *strategy.Registry,
	classify *usecase.ClassifyUseCase,
	store domrepo.SignalStore,
	exchanges *exchange.Registry,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	redis *cache.RedisCache,
) *server.App {
	// The Nop store drops writes and serves no reads.
	consensus, _ := store.(domrepo.ConsensusReader)
	app := server.New(cfg, log, watchers, strategies, classify, consensus, exchanges, consumer, handler, producer, chClient)
	app.SetCacheCloser(redis)
	return app
}
