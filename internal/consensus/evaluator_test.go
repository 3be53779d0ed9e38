package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketWatch/internal/domain/models"
	"MarketWatch/internal/strategy"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/metrics"
)

type fixedStrategy struct {
	name     string
	typ      strategy.Type
	priority int
	action   models.Action
	err      error
	panics   bool
}

func (s fixedStrategy) Name() string           { return s.name }
func (s fixedStrategy) Description() string    { return "fixed" }
func (s fixedStrategy) Type() strategy.Type    { return s.typ }
func (s fixedStrategy) Priority() int          { return s.priority }
func (s fixedStrategy) Execute([]models.Bar) (models.Action, error) {
	if s.panics {
		panic("boom")
	}
	return s.action, s.err
}

func newEvaluator(t *testing.T, strategies ...strategy.Strategy) *Evaluator {
	t.Helper()
	reg := strategy.NewRegistry(nil, logger.Nop())
	for _, s := range strategies {
		require.NoError(t, reg.Register(s))
	}
	return NewEvaluator(reg, metrics.Noop{}, logger.Nop())
}

func snap() *models.SymbolTickerSnapshot {
	d := models.SymbolDescriptor{Name: "BTCUSDT"}
	return &models.SymbolTickerSnapshot{Exchange: "Binance", Symbol: &d}
}

func TestEvaluateEmptyRegistryIsError(t *testing.T) {
	e := newEvaluator(t)

	res := e.Evaluate(snap(), nil)
	assert.Equal(t, models.ActionError, res.Action)
	assert.Empty(t, res.Votes)
}

func TestEvaluateWeightedMajorityWins(t *testing.T) {
	e := newEvaluator(t,
		fixedStrategy{name: "a", typ: strategy.TypeGeneral, priority: 10, action: models.ActionLong},
		fixedStrategy{name: "b", typ: strategy.TypeGeneral, priority: 5, action: models.ActionLong},
		fixedStrategy{name: "c", typ: strategy.TypeCustomer, priority: 1, action: models.ActionShort},
	)

	res := e.Evaluate(snap(), nil)
	// short: 300+1=301 beats long: (100+10)+(100+5)=215
	assert.Equal(t, models.ActionShort, res.Action)
	assert.Equal(t, 301, res.Score)
	assert.Len(t, res.Votes, 3)
}

func TestEvaluateTieBreaksByRegistrationOrder(t *testing.T) {
	e := newEvaluator(t,
		fixedStrategy{name: "first", typ: strategy.TypeGeneral, priority: 1, action: models.ActionShort},
		fixedStrategy{name: "second", typ: strategy.TypeGeneral, priority: 1, action: models.ActionLong},
	)

	res := e.Evaluate(snap(), nil)
	assert.Equal(t, models.ActionShort, res.Action)
	assert.Equal(t, 101, res.Score)
}

func TestEvaluateErrorVoteDoesNotScore(t *testing.T) {
	e := newEvaluator(t,
		fixedStrategy{name: "broken", typ: strategy.TypeCustomer, priority: 99, err: assert.AnError},
		fixedStrategy{name: "ok", typ: strategy.TypeGeneral, priority: 1, action: models.ActionHold},
	)

	res := e.Evaluate(snap(), nil)
	assert.Equal(t, models.ActionHold, res.Action)
	assert.Equal(t, 101, res.Score)

	// the broken strategy still appears in the vote record
	require.Len(t, res.Votes, 2)
	assert.Equal(t, models.ActionError, res.Votes[0].Action)
}

func TestEvaluatePanicIsIsolated(t *testing.T) {
	e := newEvaluator(t,
		fixedStrategy{name: "panicky", typ: strategy.TypeServer, priority: 50, panics: true},
		fixedStrategy{name: "calm", typ: strategy.TypeGeneral, priority: 1, action: models.ActionLong},
	)

	res := e.Evaluate(snap(), nil)
	assert.Equal(t, models.ActionLong, res.Action)
}

func TestEvaluateAllErrorsIsError(t *testing.T) {
	e := newEvaluator(t,
		fixedStrategy{name: "a", typ: strategy.TypeGeneral, err: assert.AnError},
		fixedStrategy{name: "b", typ: strategy.TypeGeneral, panics: true},
	)

	res := e.Evaluate(snap(), nil)
	assert.Equal(t, models.ActionError, res.Action)
	assert.Zero(t, res.Score)
}
