package indicator

import (
	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
)

// StochRSI rescales the RSI against its own range over the lookback window,
// yielding values in [0, 100]. A flat RSI window yields 0.
type StochRSI struct{}

func (StochRSI) Name() string { return "stochrsi" }

func (StochRSI) Execute(bars []models.Bar, params ...int) ([]decimal.Decimal, error) {
	period, err := periodParam(params, 14)
	if err != nil {
		return nil, err
	}

	rsi := rsiSeries(closes(bars), period)
	if len(rsi) < period {
		return nil, nil
	}

	out := make([]decimal.Decimal, 0, len(rsi)-period+1)
	for i := period - 1; i < len(rsi); i++ {
		lo, hi := rsi[i-period+1], rsi[i-period+1]
		for _, v := range rsi[i-period+2 : i+1] {
			if v.LessThan(lo) {
				lo = v
			}
			if v.GreaterThan(hi) {
				hi = v
			}
		}
		span := hi.Sub(lo)
		if span.IsZero() {
			out = append(out, decimal.Zero)
			continue
		}
		out = append(out, rsi[i].Sub(lo).Div(span).Mul(hundred))
	}
	return out, nil
}
