package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/logger"
)

func newTestDetector(t *testing.T) (*Detector, cache.Service) {
	t.Helper()
	c := cache.NewMemoryCache()
	cfg := &config.Config{}
	cfg.Anomaly.BaselineTTL = time.Hour
	cfg.Anomaly.Price = config.Band{Upper: 1.5, Lower: 0.5}
	cfg.Anomaly.Volume = config.Band{Upper: 1.5, Lower: 0.5}
	cfg.Anomaly.Spread = config.Band{Upper: 1.5, Lower: 0.5}
	return NewDetector(c, cfg, logger.Nop()), c
}

func TestCheckPriceColdStartSeedsBaseline(t *testing.T) {
	d, c := newTestDetector(t)
	ctx := context.Background()

	abnormal, err := d.CheckPrice(ctx, "BTCUSDT", decimal.NewFromInt(50000))
	require.NoError(t, err)
	assert.False(t, abnormal)

	var baseline decimal.Decimal
	require.NoError(t, c.Get(ctx, "PriceHistory_BTCUSDT", &baseline))
	assert.True(t, baseline.Equal(decimal.NewFromInt(50000)))
}

func TestCheckPriceWithinBandRefreshesBaseline(t *testing.T) {
	d, c := newTestDetector(t)
	ctx := context.Background()

	_, err := d.CheckPrice(ctx, "BTCUSDT", decimal.NewFromInt(50000))
	require.NoError(t, err)

	abnormal, err := d.CheckPrice(ctx, "BTCUSDT", decimal.NewFromInt(60000))
	require.NoError(t, err)
	assert.False(t, abnormal)

	var baseline decimal.Decimal
	require.NoError(t, c.Get(ctx, "PriceHistory_BTCUSDT", &baseline))
	assert.True(t, baseline.Equal(decimal.NewFromInt(60000)))
}

func TestCheckPriceSpikeKeepsBaseline(t *testing.T) {
	d, c := newTestDetector(t)
	ctx := context.Background()

	_, err := d.CheckPrice(ctx, "BTCUSDT", decimal.NewFromInt(50000))
	require.NoError(t, err)

	abnormal, err := d.CheckPrice(ctx, "BTCUSDT", decimal.NewFromInt(80000))
	require.NoError(t, err)
	assert.True(t, abnormal)

	var baseline decimal.Decimal
	require.NoError(t, c.Get(ctx, "PriceHistory_BTCUSDT", &baseline))
	assert.True(t, baseline.Equal(decimal.NewFromInt(50000)), "spike must not become the baseline")
}

func TestCheckPriceDropBelowBand(t *testing.T) {
	d, _ := newTestDetector(t)
	ctx := context.Background()

	_, err := d.CheckPrice(ctx, "ETHUSDT", decimal.NewFromInt(3000))
	require.NoError(t, err)

	abnormal, err := d.CheckPrice(ctx, "ETHUSDT", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, abnormal)
}

func TestCheckPriceBoundaryIsNormal(t *testing.T) {
	d, _ := newTestDetector(t)
	ctx := context.Background()

	_, err := d.CheckPrice(ctx, "BTCUSDT", decimal.NewFromInt(100))
	require.NoError(t, err)

	// exactly upper*baseline is inside the band
	abnormal, err := d.CheckPrice(ctx, "BTCUSDT", decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.False(t, abnormal)

	abnormal, err = d.CheckPrice(ctx, "BTCUSDT", decimal.NewFromInt(75))
	require.NoError(t, err)
	assert.False(t, abnormal)
}

func TestCheckVolumeUsesOwnBaseline(t *testing.T) {
	d, c := newTestDetector(t)
	ctx := context.Background()

	_, err := d.CheckVolume(ctx, "BTCUSDT", decimal.NewFromInt(1000))
	require.NoError(t, err)

	exists, err := c.Exists(ctx, "VolumeHistory_BTCUSDT")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.Exists(ctx, "PriceHistory_BTCUSDT")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCheckSpreadNonPositiveQuote(t *testing.T) {
	d, c := newTestDetector(t)
	ctx := context.Background()

	abnormal, err := d.CheckSpread(ctx, "BTCUSDT", models.BookPrice{
		Symbol:       "BTCUSDT",
		BestBidPrice: decimal.Zero,
		BestAskPrice: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.True(t, abnormal)

	// degenerate book must not seed a baseline
	exists, err := c.Exists(ctx, "SpreadHistory_BTCUSDT")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCheckSpreadBand(t *testing.T) {
	d, _ := newTestDetector(t)
	ctx := context.Background()

	book := func(bid, ask int64) models.BookPrice {
		return models.BookPrice{
			Symbol:       "BTCUSDT",
			BestBidPrice: decimal.NewFromInt(bid),
			BestAskPrice: decimal.NewFromInt(ask),
		}
	}

	abnormal, err := d.CheckSpread(ctx, "BTCUSDT", book(100, 102))
	require.NoError(t, err)
	assert.False(t, abnormal)

	abnormal, err = d.CheckSpread(ctx, "BTCUSDT", book(100, 110))
	require.NoError(t, err)
	assert.True(t, abnormal, "spread widened beyond the band")
}

type failingCache struct {
	cache.Service
	err error
}

func (f failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return f.err
}

func TestCheckPropagatesCacheErrors(t *testing.T) {
	d, _ := newTestDetector(t)
	boom := assert.AnError
	d.cache = failingCache{err: boom}

	_, err := d.CheckPrice(context.Background(), "BTCUSDT", decimal.NewFromInt(1))
	require.ErrorIs(t, err, boom)
}
