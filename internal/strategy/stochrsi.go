package strategy

import (
	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/indicator"
)

var (
	oversold   = decimal.NewFromInt(20)
	overbought = decimal.NewFromInt(80)
)

// StochRSICross signals on stochastic RSI %K/%D crossovers in the extreme
// zones: a bullish crossover while oversold goes long, a bearish crossover
// while overbought goes short.
type StochRSICross struct {
	indicators *indicator.Registry
	period     int
	smooth     int
}

func NewStochRSICross(indicators *indicator.Registry) *StochRSICross {
	return &StochRSICross{indicators: indicators, period: 14, smooth: 3}
}

func (s *StochRSICross) Name() string { return "stochrsi-cross" }

func (s *StochRSICross) Description() string {
	return "stochastic RSI %K/%D crossover in oversold/overbought zones"
}

func (s *StochRSICross) Type() Type { return TypeGeneral }

func (s *StochRSICross) Priority() int { return 10 }

func (s *StochRSICross) Execute(bars []models.Bar) (models.Action, error) {
	ind, err := s.indicators.Get("stochrsi")
	if err != nil {
		return models.ActionError, err
	}
	k, err := ind.Execute(bars, s.period)
	if err != nil {
		return models.ActionError, err
	}
	if len(k) < s.smooth+1 {
		return models.ActionHold, nil
	}

	d := smooth(k, s.smooth)
	// align: d[i] corresponds to k[i+smooth-1]
	kCur, kPrev := k[len(k)-1], k[len(k)-2]
	dCur, dPrev := d[len(d)-1], d[len(d)-2]

	crossedUp := kPrev.LessThanOrEqual(dPrev) && kCur.GreaterThan(dCur)
	crossedDown := kPrev.GreaterThanOrEqual(dPrev) && kCur.LessThan(dCur)

	switch {
	case crossedUp && kCur.LessThan(oversold):
		return models.ActionLong, nil
	case crossedDown && kCur.GreaterThan(overbought):
		return models.ActionShort, nil
	default:
		return models.ActionHold, nil
	}
}

// smooth is a simple moving average over the %K series.
func smooth(values []decimal.Decimal, period int) []decimal.Decimal {
	if len(values) < period {
		return nil
	}
	div := decimal.NewFromInt(int64(period))
	out := make([]decimal.Decimal, 0, len(values)-period+1)
	sum := decimal.Zero
	for i, v := range values {
		sum = sum.Add(v)
		if i >= period {
			sum = sum.Sub(values[i-period])
		}
		if i >= period-1 {
			out = append(out, sum.Div(div))
		}
	}
	return out
}

var _ Strategy = (*StochRSICross)(nil)
