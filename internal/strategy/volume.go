package strategy

import (
	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
)

var surgeFactor = decimal.NewFromInt(3)

// VolumeSurge signals when the latest bar trades several times its recent
// average volume, in the direction the bar closed.
type VolumeSurge struct {
	lookback int
}

func NewVolumeSurge() *VolumeSurge {
	return &VolumeSurge{lookback: 20}
}

func (s *VolumeSurge) Name() string { return "volume-surge" }

func (s *VolumeSurge) Description() string {
	return "directional signal on a volume spike against the recent average"
}

func (s *VolumeSurge) Type() Type { return TypeGeneral }

func (s *VolumeSurge) Priority() int { return 1 }

func (s *VolumeSurge) Execute(bars []models.Bar) (models.Action, error) {
	if len(bars) < s.lookback+1 {
		return models.ActionHold, nil
	}

	last := bars[len(bars)-1]
	window := bars[len(bars)-1-s.lookback : len(bars)-1]

	sum := decimal.Zero
	for _, b := range window {
		sum = sum.Add(b.Volume)
	}
	avg := sum.Div(decimal.NewFromInt(int64(s.lookback)))
	if avg.IsZero() || last.Volume.LessThan(avg.Mul(surgeFactor)) {
		return models.ActionHold, nil
	}

	switch {
	case last.Close.GreaterThan(last.Open):
		return models.ActionLong, nil
	case last.Close.LessThan(last.Open):
		return models.ActionShort, nil
	default:
		return models.ActionHold, nil
	}
}

var _ Strategy = (*VolumeSurge)(nil)
