package consensus

import (
	"fmt"
	"sync"
	"time"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/strategy"
	"MarketWatch/pkg/logger"
)

// Evaluator runs every registered strategy over the same bars and picks the
// action whose votes carry the most weight. A strategy that errors or panics
// contributes an error vote instead of taking the evaluation down.
type Evaluator struct {
	registry *strategy.Registry
	metrics  domrepo.Metrics
	log      *logger.Logger
}

func NewEvaluator(registry *strategy.Registry, metrics domrepo.Metrics, log *logger.Logger) *Evaluator {
	return &Evaluator{
		registry: registry,
		metrics:  metrics,
		log:      log.With("consensus"),
	}
}

// Evaluate fans all strategies out over bars and aggregates their votes.
// The winning action is the one with the highest summed score; a tie goes to
// the action first voted for in registration order. An empty registry, or a
// registry whose every vote errored, yields an error verdict.
func (e *Evaluator) Evaluate(snap *models.SymbolTickerSnapshot, bars []models.Bar) models.ConsensusResult {
	stop := e.metrics.StartTracking("consensus_evaluate")
	defer stop()

	result := models.ConsensusResult{
		Exchange:    snap.Exchange,
		Symbol:      snap.Name(),
		Action:      models.ActionError,
		EvaluatedAt: time.Now().UTC(),
	}

	strategies := e.registry.All()
	if len(strategies) == 0 {
		e.log.Warn("no strategies registered", logger.String("symbol", result.Symbol))
		return result
	}

	votes := make([]models.StrategyVote, len(strategies))
	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s strategy.Strategy) {
			defer wg.Done()
			votes[i] = e.vote(s, bars)
		}(i, s)
	}
	wg.Wait()
	result.Votes = votes

	// aggregate scores per action, keeping first-vote position for ties
	totals := make(map[models.Action]int, 4)
	firstSeen := make(map[models.Action]int, 4)
	for i, v := range votes {
		if v.Action == models.ActionError {
			continue
		}
		if _, ok := firstSeen[v.Action]; !ok {
			firstSeen[v.Action] = i
		}
		totals[v.Action] += v.Score()
	}
	if len(totals) == 0 {
		return result
	}

	for action, total := range totals {
		better := total > result.Score
		sameButEarlier := total == result.Score &&
			result.Action != models.ActionError &&
			firstSeen[action] < firstSeen[result.Action]
		if result.Action == models.ActionError || better || sameButEarlier {
			result.Action = action
			result.Score = total
		}
	}

	e.metrics.RecordConsensus(result.Symbol, string(result.Action), result.Score)
	e.log.Debug("consensus reached",
		logger.String("symbol", result.Symbol),
		logger.String("action", string(result.Action)),
		logger.Int("score", result.Score))
	return result
}

func (e *Evaluator) vote(s strategy.Strategy, bars []models.Bar) (v models.StrategyVote) {
	v = models.StrategyVote{
		Strategy: s.Name(),
		Priority: s.Priority(),
		Weight:   int(s.Type()),
		Action:   models.ActionError,
	}
	defer func() {
		if r := recover(); r != nil {
			e.metrics.TrackFailure("strategy_execute", fmt.Errorf("panic: %v", r))
			e.log.Error("strategy panicked",
				logger.String("strategy", s.Name()),
				logger.Any("panic", r))
			v.Action = models.ActionError
		}
	}()

	action, err := s.Execute(bars)
	if err != nil {
		e.metrics.TrackFailure("strategy_execute", err)
		e.log.Warn("strategy failed",
			logger.String("strategy", s.Name()),
			logger.Error(err))
		return v
	}
	v.Action = action
	return v
}
