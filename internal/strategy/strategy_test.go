package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/indicator"
)

func barSeries(closes ...int64) []models.Bar {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		out[i] = models.Bar{
			Symbol:   "BTCUSDT",
			OpenTime: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:     decimal.NewFromInt(c),
			Close:    decimal.NewFromInt(c),
			Volume:   decimal.NewFromInt(100),
		}
	}
	return out
}

func flatThen(last int64) []models.Bar {
	closes := make([]int64, 31)
	for i := range closes {
		closes[i] = 100
	}
	closes[30] = last
	bars := barSeries(closes...)
	// give the last bar a direction
	bars[30].Open = decimal.NewFromInt(100)
	return bars
}

func TestMomentumCrossLong(t *testing.T) {
	s := NewMomentumCross(indicator.NewRegistry())

	act, err := s.Execute(flatThen(200))
	require.NoError(t, err)
	assert.Equal(t, models.ActionLong, act)
}

func TestMomentumCrossShort(t *testing.T) {
	s := NewMomentumCross(indicator.NewRegistry())

	act, err := s.Execute(flatThen(10))
	require.NoError(t, err)
	assert.Equal(t, models.ActionShort, act)
}

func TestMomentumCrossHoldOnFlat(t *testing.T) {
	s := NewMomentumCross(indicator.NewRegistry())

	act, err := s.Execute(flatThen(100))
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, act)
}

func TestMomentumCrossHoldOnShortHistory(t *testing.T) {
	s := NewMomentumCross(indicator.NewRegistry())

	act, err := s.Execute(barSeries(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, act)
}

func TestVolumeSurgeLong(t *testing.T) {
	bars := barSeries(make([]int64, 25)...)
	for i := range bars {
		bars[i].Open = decimal.NewFromInt(100)
		bars[i].Close = decimal.NewFromInt(100)
		bars[i].Volume = decimal.NewFromInt(100)
	}
	last := len(bars) - 1
	bars[last].Volume = decimal.NewFromInt(1000)
	bars[last].Close = decimal.NewFromInt(110)

	act, err := NewVolumeSurge().Execute(bars)
	require.NoError(t, err)
	assert.Equal(t, models.ActionLong, act)

	bars[last].Close = decimal.NewFromInt(90)
	act, err = NewVolumeSurge().Execute(bars)
	require.NoError(t, err)
	assert.Equal(t, models.ActionShort, act)
}

func TestVolumeSurgeHoldWithoutSpike(t *testing.T) {
	bars := barSeries(make([]int64, 25)...)
	for i := range bars {
		bars[i].Volume = decimal.NewFromInt(100)
	}

	act, err := NewVolumeSurge().Execute(bars)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, act)
}

func TestStochRSICrossShortHistoryHolds(t *testing.T) {
	s := NewStochRSICross(indicator.NewRegistry())

	act, err := s.Execute(barSeries(1, 2, 3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, act)
}

func TestStochRSICrossReturnsValidAction(t *testing.T) {
	closes := make([]int64, 80)
	for i := range closes {
		closes[i] = 100 + int64((i%7)*3) - int64((i%5)*2)
	}
	s := NewStochRSICross(indicator.NewRegistry())

	act, err := s.Execute(barSeries(closes...))
	require.NoError(t, err)
	assert.Contains(t, []models.Action{models.ActionLong, models.ActionShort, models.ActionHold}, act)
}
