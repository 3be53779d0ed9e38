package saga

import (
	"context"
	"time"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/middleware"
	"MarketWatch/internal/usecase"
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/logger"
)

// MarketWatcher drives the batch pipeline for one exchange: download,
// classify, sleep, repeat. A cycle that fails is logged and the loop sleeps
// as usual; cancellation waits for the in-flight cycle to finish.
type MarketWatcher struct {
	client   domrepo.ExchangeClient
	download *usecase.DownloadUseCase
	classify *usecase.ClassifyUseCase
	strategy *StrategySaga
	metrics  domrepo.Metrics
	throttle *middleware.StreamThrottle
	interval time.Duration
	state    stateMachine
	log      *logger.Logger
}

func NewMarketWatcher(client domrepo.ExchangeClient, download *usecase.DownloadUseCase, classify *usecase.ClassifyUseCase, strategy *StrategySaga, metrics domrepo.Metrics, cfg *config.Config, log *logger.Logger) *MarketWatcher {
	return &MarketWatcher{
		client:   client,
		download: download,
		classify: classify,
		strategy: strategy,
		metrics:  metrics,
		throttle: middleware.NewStreamThrottle(metrics),
		interval: cfg.Market.DownloadInterval,
		log:      log.With("market-watcher"),
	}
}

// State reports the watcher's current lifecycle position.
func (w *MarketWatcher) State() State {
	return w.state.get()
}

// Run verifies exchange reachability, then executes batch cycles until ctx
// is cancelled.
func (w *MarketWatcher) Run(ctx context.Context) {
	w.state.set(StateConnecting)
	w.log.Info("watcher starting", logger.String("exchange", w.client.Name()))

	if err := w.client.Ping(ctx); err != nil {
		w.metrics.TrackFailure("watch_connect", err)
		w.log.Warn("exchange unreachable at startup",
			logger.String("exchange", w.client.Name()),
			logger.Error(err))
	}

	for {
		w.state.set(StateRunning)
		w.cycle(ctx)

		w.state.set(StateSleeping)
		select {
		case <-ctx.Done():
			w.shutdown()
			return
		case <-time.After(w.interval):
		}
	}
}

func (w *MarketWatcher) cycle(ctx context.Context) {
	stop := w.metrics.StartTracking("watch_cycle")
	defer stop()

	snapshots, err := w.download.Download(ctx, w.client)
	if err != nil {
		w.metrics.TrackFailure("watch_cycle", err)
		w.log.Error("download stage failed",
			logger.String("exchange", w.client.Name()),
			logger.Error(err))
		return
	}

	if err := w.classify.ClassifyBatch(ctx, w.client, snapshots); err != nil {
		w.metrics.TrackFailure("watch_cycle", err)
		w.log.Error("classification stage failed",
			logger.String("exchange", w.client.Name()),
			logger.Error(err))
		return
	}

	w.metrics.TrackSuccess("watch_cycle")
}

// RunStream consumes the exchange's live ticker stream, classifies each
// event that matches a cached descriptor, and hands valid symbols to the
// strategy saga.
func (w *MarketWatcher) RunStream(ctx context.Context) {
	events, errs := w.client.SubscribePriceChanges(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				w.metrics.TrackFailure("stream_subscribe", err)
				w.log.Error("stream error", logger.Error(err))
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		}
	}
}

// handleEvent classifies one streamed price change. Events for symbols the
// last batch did not mark valid carry no descriptor and are dropped.
func (w *MarketWatcher) handleEvent(ctx context.Context, event models.PriceChange) {
	if !w.throttle.Allow(event.Symbol) {
		return
	}

	descriptor, err := w.classify.ResolveDescriptor(ctx, event.Symbol)
	if err != nil {
		w.metrics.TrackFailure("stream_resolve", err)
		w.log.Warn("descriptor lookup failed",
			logger.String("symbol", event.Symbol),
			logger.Error(err))
		return
	}
	if descriptor == nil {
		return
	}

	snap := event.Snapshot(descriptor)
	valid, err := w.classify.ClassifyStream(ctx, snap)
	if err != nil {
		w.log.Warn("stream classification failed",
			logger.String("symbol", event.Symbol),
			logger.Error(err))
		return
	}
	if !valid {
		return
	}

	if err := w.strategy.Process(ctx, snap); err != nil {
		w.log.Error("strategy saga failed",
			logger.String("symbol", event.Symbol),
			logger.Error(err))
	}
}

func (w *MarketWatcher) shutdown() {
	w.state.set(StateCancelling)
	w.log.Info("watcher stopping", logger.String("exchange", w.client.Name()))
	w.state.set(StateStopped)
}
