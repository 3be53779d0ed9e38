package indicator

import (
	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
)

// SMA is the simple moving average of closes. The result has one value per
// complete window, so its length is len(bars)-period+1.
type SMA struct{}

func (SMA) Name() string { return "sma" }

func (SMA) Execute(bars []models.Bar, params ...int) ([]decimal.Decimal, error) {
	period, err := periodParam(params, 14)
	if err != nil {
		return nil, err
	}
	return smaSeries(closes(bars), period), nil
}

func smaSeries(values []decimal.Decimal, period int) []decimal.Decimal {
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
