package strategy

import (
	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/indicator"
)

// MomentumCross signals on fast/slow moving average crossovers of the close.
type MomentumCross struct {
	indicators *indicator.Registry
	fast       int
	slow       int
}

func NewMomentumCross(indicators *indicator.Registry) *MomentumCross {
	return &MomentumCross{indicators: indicators, fast: 7, slow: 25}
}

func (s *MomentumCross) Name() string { return "momentum-cross" }

func (s *MomentumCross) Description() string {
	return "fast/slow simple moving average crossover"
}

func (s *MomentumCross) Type() Type { return TypeGeneral }

func (s *MomentumCross) Priority() int { return 5 }

func (s *MomentumCross) Execute(bars []models.Bar) (models.Action, error) {
	ind, err := s.indicators.Get("sma")
	if err != nil {
		return models.ActionError, err
	}
	fast, err := ind.Execute(bars, s.fast)
	if err != nil {
		return models.ActionError, err
	}
	slow, err := ind.Execute(bars, s.slow)
	if err != nil {
		return models.ActionError, err
	}
	if len(slow) < 2 {
		return models.ActionHold, nil
	}
	// both series end at the latest bar; compare the last two points
	fCur, fPrev := fast[len(fast)-1], fast[len(fast)-2]
	sCur, sPrev := slow[len(slow)-1], slow[len(slow)-2]

	switch {
	case fPrev.LessThanOrEqual(sPrev) && fCur.GreaterThan(sCur):
		return models.ActionLong, nil
	case fPrev.GreaterThanOrEqual(sPrev) && fCur.LessThan(sCur):
		return models.ActionShort, nil
	default:
		return models.ActionHold, nil
	}
}

var _ Strategy = (*MomentumCross)(nil)
