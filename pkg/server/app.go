package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/exchange"
	"MarketWatch/internal/handler/api"
	"MarketWatch/internal/saga"
	"MarketWatch/internal/strategy"
	"MarketWatch/internal/usecase"
	pkgch "MarketWatch/pkg/clickhouse"
	"MarketWatch/pkg/config"
	xhttp "MarketWatch/pkg/http"
	pkgkafka "MarketWatch/pkg/kafka"
	applogger "MarketWatch/pkg/logger"
)

// CacheCloser is the optional teardown of the cache backend. The in-memory
// cache has nothing to close, Redis does.
type CacheCloser interface {
	Close() error
}

// App encapsulates the entire application lifecycle: batch watchers, the
// streamed pipeline, the strategy consumer and the admin HTTP server.
type App struct {
	cfg   *config.Config
	log   *applogger.Logger
	sagas map[string]*saga.MarketWatcher

	strategies *strategy.Registry
	classify   *usecase.ClassifyUseCase
	consensus  domrepo.ConsensusReader
	exchanges  *exchange.Registry
	consumer   *pkgkafka.Consumer
	handler    pkgkafka.MessageHandler
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	cacheClose CacheCloser
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	sagas map[string]*saga.MarketWatcher,
	strategies *strategy.Registry,
	classify *usecase.ClassifyUseCase,
	consensus domrepo.ConsensusReader,
	exchanges *exchange.Registry,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log.With("app"),
		sagas:      sagas,
		strategies: strategies,
		classify:   classify,
		consensus:  consensus,
		exchanges:  exchanges,
		consumer:   consumer,
		handler:    handler,
		producer:   producer,
		chClient:   chClient,
	}
}

// SetCacheCloser registers the cache backend for shutdown.
func (a *App) SetCacheCloser(c CacheCloser) { a.cacheClose = c }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchers := make(map[string]api.WatcherStatus, len(a.sagas))
	for name, w := range a.sagas {
		watchers[name] = w
	}
	adminHandler := api.NewAdminHandler(a.strategies, a.classify, a.consensus, watchers, a.cfg.Strategies.Dir, a.cfg.Market.Period, a.log)

	a.httpServer = xhttp.NewServer(adminHandler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Per exchange: the periodic batch saga plus the live ticker stream.
	for name, w := range a.sagas {
		w := w
		go w.Run(ctx)
		go w.RunStream(ctx)
		a.log.Info("market watcher started", applogger.String("exchange", name))
	}

	if a.consumer != nil && a.handler != nil {
		a.consumer.RegisterHandler(a.handler)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.handler.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.exchanges != nil {
		if err := a.exchanges.Close(); err != nil {
			a.log.Warn("exchange close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.cacheClose != nil {
		if err := a.cacheClose.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
