//go:build wireinject
// +build wireinject

package di

import (
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideCacheService,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSignalStore,
		ProvidePublisher,
		ProvideExchangeRegistry,

		// Pipeline stages
		ProvideDetector,
		ProvideDownloadUseCase,
		ProvideClassifyUseCase,
		ProvideHistoryUseCase,

		// Consensus
		ProvideStrategyRegistry,
		ProvideEvaluator,

		// Sagas
		ProvideStrategySaga,
		ProvideValidSymbolsHandler,
		ProvideMarketWatchers,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
