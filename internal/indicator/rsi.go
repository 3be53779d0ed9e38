package indicator

import (
	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
)

var hundred = decimal.NewFromInt(100)

// RSI is Wilder's relative strength index over closes. The result has one
// value per bar after the seed window, length len(bars)-period.
type RSI struct{}

func (RSI) Name() string { return "rsi" }

func (RSI) Execute(bars []models.Bar, params ...int) ([]decimal.Decimal, error) {
	period, err := periodParam(params, 14)
	if err != nil {
		return nil, err
	}
	return rsiSeries(closes(bars), period), nil
}

func rsiSeries(values []decimal.Decimal, period int) []decimal.Decimal {
	if len(values) <= period {
		return nil
	}

	gains := make([]decimal.Decimal, len(values)-1)
	losses := make([]decimal.Decimal, len(values)-1)
	for i := 1; i < len(values); i++ {
		delta := values[i].Sub(values[i-1])
		if delta.IsPositive() {
			gains[i-1] = delta
			losses[i-1] = decimal.Zero
		} else {
			gains[i-1] = decimal.Zero
			losses[i-1] = delta.Neg()
		}
	}

	div := decimal.NewFromInt(int64(period))
	avgGain, avgLoss := decimal.Zero, decimal.Zero
	for i := 0; i < period; i++ {
		avgGain = avgGain.Add(gains[i])
		avgLoss = avgLoss.Add(losses[i])
	}
	avgGain = avgGain.Div(div)
	avgLoss = avgLoss.Div(div)

	smooth := decimal.NewFromInt(int64(period - 1))
	out := make([]decimal.Decimal, 0, len(values)-period)
	out = append(out, rsiValue(avgGain, avgLoss))
	for i := period; i < len(gains); i++ {
		avgGain = avgGain.Mul(smooth).Add(gains[i]).Div(div)
		avgLoss = avgLoss.Mul(smooth).Add(losses[i]).Div(div)
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss decimal.Decimal) decimal.Decimal {
	if avgLoss.IsZero() {
		return hundred
	}
	rs := avgGain.Div(avgLoss)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
}
