package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/exchange"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/metrics"
)

func bar(symbol string, openTime time.Time, close int64) models.Bar {
	return models.Bar{
		Symbol:    symbol,
		OpenTime:  openTime,
		CloseTime: openTime.Add(15 * time.Minute),
		Open:      decimal.NewFromInt(close - 5),
		High:      decimal.NewFromInt(close + 10),
		Low:       decimal.NewFromInt(close - 10),
		Close:     decimal.NewFromInt(close),
		Volume:    decimal.NewFromInt(100),
	}
}

func TestFetchAppendsLiveBarAndSorts(t *testing.T) {
	now := time.Now().UTC()
	ex := &fakeExchange{bars: []models.Bar{
		bar("BTCUSDT", now.Add(-30*time.Minute), 49900),
		bar("BTCUSDT", now.Add(-45*time.Minute), 49800),
	}}
	reg := exchange.NewRegistry()
	reg.Register(ex)

	uc := NewHistoryUseCase(reg, metrics.Noop{}, testConfig(), logger.Nop())
	snap := snapshot("BTCUSDT", 50000, 1, 100)
	snap.Ticker.HighPrice = decimal.NewFromInt(52000)
	snap.Ticker.LowPrice = decimal.NewFromInt(48000)

	bars, err := uc.Fetch(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	for i := 1; i < len(bars); i++ {
		assert.False(t, bars[i].OpenTime.Before(bars[i-1].OpenTime), "bars must be ascending")
	}

	live := bars[len(bars)-1]
	assert.True(t, live.Close.Equal(decimal.NewFromInt(50000)))
	// open backs the 24h change out of the last price
	assert.True(t, live.Open.Equal(snap.Ticker.LastPrice.Sub(snap.Ticker.PriceChange)))
	// the live bar carries the ticker's own extremes
	assert.True(t, live.High.Equal(decimal.NewFromInt(52000)))
	assert.True(t, live.Low.Equal(decimal.NewFromInt(48000)))
}

func TestFetchLiveBarDerivesMissingExtremes(t *testing.T) {
	now := time.Now().UTC()
	ex := &fakeExchange{bars: []models.Bar{bar("BTCUSDT", now.Add(-30*time.Minute), 49900)}}
	reg := exchange.NewRegistry()
	reg.Register(ex)

	uc := NewHistoryUseCase(reg, metrics.Noop{}, testConfig(), logger.Nop())
	snap := snapshot("BTCUSDT", 50000, 1, 100)

	bars, err := uc.Fetch(context.Background(), snap)
	require.NoError(t, err)
	live := bars[len(bars)-1]
	assert.True(t, live.High.Equal(decimal.NewFromInt(50000)))
	assert.True(t, live.Low.Equal(snap.Ticker.LastPrice.Sub(snap.Ticker.PriceChange)))
}

func TestFetchUnknownExchangeIsFatal(t *testing.T) {
	reg := exchange.NewRegistry()
	uc := NewHistoryUseCase(reg, metrics.Noop{}, testConfig(), logger.Nop())

	snap := snapshot("BTCUSDT", 50000, 1, 100)
	snap.Exchange = "Kraken"

	_, err := uc.Fetch(context.Background(), snap)
	require.ErrorIs(t, err, exchange.ErrUnknownExchange)
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	ex := &fakeExchange{barsErr: assert.AnError}
	reg := exchange.NewRegistry()
	reg.Register(ex)

	uc := NewHistoryUseCase(reg, metrics.Noop{}, testConfig(), logger.Nop())
	_, err := uc.Fetch(context.Background(), snapshot("BTCUSDT", 50000, 1, 100))
	require.ErrorIs(t, err, assert.AnError)
}
