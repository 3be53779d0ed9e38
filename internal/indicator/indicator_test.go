package indicator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketWatch/internal/domain/models"
)

func barsFromCloses(closes ...int64) []models.Bar {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		out[i] = models.Bar{
			Symbol:   "BTCUSDT",
			OpenTime: base.Add(time.Duration(i) * 15 * time.Minute),
			Close:    decimal.NewFromInt(c),
		}
	}
	return out
}

func TestSMA(t *testing.T) {
	bars := barsFromCloses(1, 2, 3, 4, 5)

	out, err := SMA{}.Execute(bars, 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, out[0].Equal(decimal.NewFromInt(2)))
	assert.True(t, out[1].Equal(decimal.NewFromInt(3)))
	assert.True(t, out[2].Equal(decimal.NewFromInt(4)))
}

func TestSMANotEnoughBars(t *testing.T) {
	out, err := SMA{}.Execute(barsFromCloses(1, 2), 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSMARejectsBadPeriod(t *testing.T) {
	_, err := SMA{}.Execute(barsFromCloses(1, 2, 3), 0)
	require.Error(t, err)
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	bars := barsFromCloses(1, 2, 3, 4, 5, 6, 7, 8)

	out, err := RSI{}.Execute(bars, 5)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	for _, v := range out {
		assert.True(t, v.Equal(decimal.NewFromInt(100)))
	}
}

func TestRSIBalancedMovesNearFifty(t *testing.T) {
	bars := barsFromCloses(10, 12, 10, 12, 10, 12, 10, 12, 10, 12)

	out, err := RSI{}.Execute(bars, 4)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	last := out[len(out)-1]
	assert.True(t, last.GreaterThan(decimal.NewFromInt(40)))
	assert.True(t, last.LessThan(decimal.NewFromInt(60)))
}

func TestStochRSIBounds(t *testing.T) {
	bars := barsFromCloses(10, 14, 9, 15, 8, 16, 12, 11, 13, 10, 14, 9, 15, 12, 13, 11, 14, 10, 15, 12)

	out, err := StochRSI{}.Execute(bars, 5)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	for _, v := range out {
		assert.False(t, v.LessThan(decimal.Zero))
		assert.False(t, v.GreaterThan(decimal.NewFromInt(100)))
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"rsi", "sma", "stochrsi"}, r.Names())

	ind, err := r.Get("stochrsi")
	require.NoError(t, err)
	assert.Equal(t, "stochrsi", ind.Name())

	_, err = r.Get("macd")
	require.Error(t, err)
}
