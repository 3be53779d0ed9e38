package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the verdict of one strategy (or of the whole consensus) over a
// bar sequence.
type Action string

const (
	ActionLong  Action = "long"
	ActionShort Action = "short"
	ActionHold  Action = "hold"
	ActionError Action = "error"
)

// StrategyVote is one strategy's verdict plus its influence metadata.
type StrategyVote struct {
	Strategy string `json:"strategy"`
	Action   Action `json:"action"`
	Priority int    `json:"priority"`
	Weight   int    `json:"weight"`
}

// Score is the vote's contribution to its action group.
func (v StrategyVote) Score() int {
	return v.Priority + v.Weight
}

// ConsensusResult is the aggregated outcome of one evaluation pass.
type ConsensusResult struct {
	Exchange    string         `json:"exchange"`
	Symbol      string         `json:"symbol"`
	Action      Action         `json:"action"`
	Score       int            `json:"score"`
	Votes       []StrategyVote `json:"votes"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
}

// Direction tags a trade signal. Only long and short exist: hold and error
// verdicts never leave the evaluator.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// TradeSignal is the downstream event published for a long or short
// consensus. It is constructed through NewLongSignal/NewShortSignal rather
// than converted from other event types.
type TradeSignal struct {
	Direction   Direction       `json:"direction"`
	Exchange    string          `json:"exchange"`
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	HighPrice   decimal.Decimal `json:"high_price"`
	LowPrice    decimal.Decimal `json:"low_price"`
	Volume      decimal.Decimal `json:"volume"`
	Score       int             `json:"score"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func NewLongSignal(snapshot *SymbolTickerSnapshot, score int) TradeSignal {
	return newSignal(DirectionLong, snapshot, score)
}

func NewShortSignal(snapshot *SymbolTickerSnapshot, score int) TradeSignal {
	return newSignal(DirectionShort, snapshot, score)
}

func newSignal(d Direction, snapshot *SymbolTickerSnapshot, score int) TradeSignal {
	return TradeSignal{
		Direction:   d,
		Exchange:    snapshot.Exchange,
		Symbol:      snapshot.Name(),
		Price:       snapshot.Ticker.LastPrice,
		HighPrice:   snapshot.Ticker.HighPrice,
		LowPrice:    snapshot.Ticker.LowPrice,
		Volume:      snapshot.Ticker.Volume,
		Score:       score,
		GeneratedAt: time.Now().UTC(),
	}
}

// AnomalyEvent is the persisted record of one abnormal classification.
type AnomalyEvent struct {
	Exchange   string          `json:"exchange"`
	Symbol     string          `json:"symbol"`
	Metric     string          `json:"metric"` // price, volume or spread
	LastPrice  decimal.Decimal `json:"last_price"`
	Volume     decimal.Decimal `json:"volume"`
	DetectedAt time.Time       `json:"detected_at"`
}
