package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/exchange"
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/retry"
)

// HistoryUseCase fetches the historical bars a strategy evaluation needs and
// appends a synthetic live bar built from the current ticker, so strategies
// always see the in-flight interval.
type HistoryUseCase struct {
	registry *exchange.Registry
	metrics  domrepo.Metrics
	retry    retry.Policy
	period   string
	window   time.Duration
	log      *logger.Logger
}

func NewHistoryUseCase(registry *exchange.Registry, metrics domrepo.Metrics, cfg *config.Config, log *logger.Logger) *HistoryUseCase {
	return &HistoryUseCase{
		registry: registry,
		metrics:  metrics,
		retry:    retry.New(cfg.Market.MaxRetries, cfg.Market.RetryBackoffBase),
		period:   cfg.Market.Period,
		window:   time.Duration(cfg.Market.HistoryWindowMinutes) * time.Minute,
		log:      log.With("history"),
	}
}

// Fetch returns bars for the snapshot's symbol over the configured window,
// ascending by open time. An unregistered exchange name is a configuration
// fault and is returned immediately, without retrying.
func (uc *HistoryUseCase) Fetch(ctx context.Context, snap *models.SymbolTickerSnapshot) ([]models.Bar, error) {
	stop := uc.metrics.StartTracking("fetch_history")
	defer stop()

	client, err := uc.registry.Get(snap.Exchange)
	if err != nil {
		uc.metrics.TrackFailure("fetch_history", err)
		return nil, err
	}

	end := time.Now().UTC()
	start := end.Add(-uc.window)

	bars, err := retry.DoValue(ctx, uc.retry, func() ([]models.Bar, error) {
		return client.GetHistoricalBars(ctx, snap.Name(), uc.period, start, end)
	})
	if err != nil {
		uc.metrics.TrackFailure("fetch_history", err)
		return nil, fmt.Errorf("get bars %s/%s: %w", snap.Exchange, snap.Name(), err)
	}

	bars = append(bars, uc.liveBar(snap, end))
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].OpenTime.Before(bars[j].OpenTime)
	})

	uc.metrics.TrackSuccess("fetch_history")
	return bars, nil
}

// liveBar synthesizes the still-open interval from the 24h ticker: the close
// is the last trade, the open backs the price change out of it, and high/low
// come straight from the ticker.
func (uc *HistoryUseCase) liveBar(snap *models.SymbolTickerSnapshot, now time.Time) models.Bar {
	open := snap.Ticker.LastPrice.Sub(snap.Ticker.PriceChange)
	high := snap.Ticker.HighPrice
	low := snap.Ticker.LowPrice
	// sparse tickers can omit high/low; derive them from the endpoints
	if high.IsZero() {
		high = decimal.Max(open, snap.Ticker.LastPrice)
	}
	if low.IsZero() {
		low = decimal.Min(open, snap.Ticker.LastPrice)
	}
	return models.Bar{
		Symbol:    snap.Name(),
		OpenTime:  now,
		CloseTime: now,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     snap.Ticker.LastPrice,
		Volume:    snap.Volume,
	}
}
