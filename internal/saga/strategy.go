package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"MarketWatch/internal/consensus"
	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/usecase"
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/logger"
)

// StrategySaga turns one valid symbol into at most one trade signal: it
// fetches history, runs the consensus, persists the result and publishes the
// signal when the verdict is long or short. Hold and error verdicts stop
// here.
type StrategySaga struct {
	history   *usecase.HistoryUseCase
	evaluator *consensus.Evaluator
	publisher domrepo.Publisher
	store     domrepo.SignalStore
	metrics   domrepo.Metrics
	topic     string
	log       *logger.Logger
}

func NewStrategySaga(history *usecase.HistoryUseCase, evaluator *consensus.Evaluator, publisher domrepo.Publisher, store domrepo.SignalStore, metrics domrepo.Metrics, cfg *config.Config, log *logger.Logger) *StrategySaga {
	return &StrategySaga{
		history:   history,
		evaluator: evaluator,
		publisher: publisher,
		store:     store,
		metrics:   metrics,
		topic:     cfg.Kafka.Topics.TradeSignals,
		log:       log.With("strategy-saga"),
	}
}

// Process evaluates one snapshot end to end.
func (s *StrategySaga) Process(ctx context.Context, snap *models.SymbolTickerSnapshot) error {
	stop := s.metrics.StartTracking("strategy_saga")
	defer stop()

	bars, err := s.history.Fetch(ctx, snap)
	if err != nil {
		s.metrics.TrackFailure("strategy_saga", err)
		return fmt.Errorf("fetch history for %s: %w", snap.Name(), err)
	}

	result := s.evaluator.Evaluate(snap, bars)

	if s.store != nil {
		if err := s.store.SaveConsensus(ctx, result); err != nil {
			// persistence is best-effort; the signal still goes out
			s.log.Warn("persist consensus",
				logger.String("symbol", result.Symbol),
				logger.Error(err))
		}
	}

	var signal models.TradeSignal
	switch result.Action {
	case models.ActionLong:
		signal = models.NewLongSignal(snap, result.Score)
	case models.ActionShort:
		signal = models.NewShortSignal(snap, result.Score)
	default:
		s.metrics.TrackSuccess("strategy_saga")
		return nil
	}

	if err := s.publisher.Publish(ctx, s.topic, []byte(signal.Symbol), signal); err != nil {
		s.metrics.TrackFailure("strategy_saga", err)
		return fmt.Errorf("publish %s signal for %s: %w", signal.Direction, signal.Symbol, err)
	}

	s.metrics.TrackSuccess("strategy_saga")
	s.log.Info("trade signal published",
		logger.String("symbol", signal.Symbol),
		logger.String("direction", string(signal.Direction)),
		logger.Int("score", signal.Score))
	return nil
}

// ValidSymbolsHandler feeds snapshots from the valid-symbols topic into the
// strategy saga. It satisfies the Kafka consumer's handler contract. One
// message carries a whole partition; a snapshot that fails stops only its
// own evaluation.
type ValidSymbolsHandler struct {
	topic string
	saga  *StrategySaga
}

func NewValidSymbolsHandler(cfg *config.Config, saga *StrategySaga) *ValidSymbolsHandler {
	return &ValidSymbolsHandler{topic: cfg.Kafka.Topics.ValidSymbols, saga: saga}
}

func (h *ValidSymbolsHandler) Topic() string { return h.topic }

func (h *ValidSymbolsHandler) Handle(ctx context.Context, payload []byte) error {
	var snaps []*models.SymbolTickerSnapshot
	if err := json.Unmarshal(payload, &snaps); err != nil {
		return fmt.Errorf("unmarshal valid symbols: %w", err)
	}
	var errs []error
	for _, snap := range snaps {
		if err := h.saga.Process(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", snap.Name(), err))
		}
	}
	return errors.Join(errs...)
}
