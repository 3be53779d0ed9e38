package repository

import (
	"context"
	"time"

	"MarketWatch/internal/domain/models"
)

// ExchangeClient is the connectivity contract one exchange adapter fulfils.
// All calls are fallible and retried by callers, never internally.
type ExchangeClient interface {
	Name() string
	// Ping checks reachability without moving data.
	Ping(ctx context.Context) error
	GetSymbols(ctx context.Context) ([]models.SymbolDescriptor, error)
	GetCurrentTickers(ctx context.Context) ([]models.TickerSnapshot, error)
	GetBookPrices(ctx context.Context, symbols []string) ([]models.BookPrice, error)
	GetHistoricalBars(ctx context.Context, symbol, period string, start, end time.Time) ([]models.Bar, error)
	SubscribePriceChanges(ctx context.Context) (<-chan models.PriceChange, <-chan error)
	Close() error
}

// Publisher is the group-based message hub contract. Payloads are marshalled
// by the implementation; delivery is at-least-once from the caller's view.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
	Close() error
}

// SignalStore persists consensus results and anomaly events for later
// inspection. Failures here are logged, never fatal to the pipeline.
type SignalStore interface {
	SaveConsensus(ctx context.Context, result models.ConsensusResult) error
	SaveAnomalies(ctx context.Context, events []models.AnomalyEvent) error
	Close() error
}

// ConsensusQuery filters stored consensus results.
type ConsensusQuery struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

// ConsensusReader serves stored consensus results to the operational API.
type ConsensusReader interface {
	QueryConsensus(ctx context.Context, q ConsensusQuery) ([]models.ConsensusResult, error)
}

// Metrics records per-operation outcomes and durations so failures stay
// observable without crashing the host process.
type Metrics interface {
	// StartTracking begins a duration measurement; the returned func stops it.
	StartTracking(operation string) func()
	TrackSuccess(operation string)
	TrackFailure(operation string, err error)
	RecordConsensus(symbol, action string, score int)
}
