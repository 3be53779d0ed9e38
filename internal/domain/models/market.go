package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SymbolDescriptor carries the exchange-specific identity and trading
// constraints of one symbol. It is immutable once downloaded and refreshed
// wholesale on the next download cycle.
type SymbolDescriptor struct {
	Name                string          `json:"name"`
	BaseAsset           string          `json:"base_asset"`
	QuoteAsset          string          `json:"quote_asset"`
	BaseAssetPrecision  int             `json:"base_asset_precision"`
	QuoteAssetPrecision int             `json:"quote_asset_precision"`
	Status              string          `json:"status"`
	MinQuantity         decimal.Decimal `json:"min_quantity"`
	MaxQuantity         decimal.Decimal `json:"max_quantity"`
	StepSize            decimal.Decimal `json:"step_size"`
	MinNotional         decimal.Decimal `json:"min_notional"`
	TickSize            decimal.Decimal `json:"tick_size"`
	MinTrailingDelta    int             `json:"min_trailing_delta"`
	MaxTrailingDelta    int             `json:"max_trailing_delta"`
}

// TickerSnapshot is the 24h rolling view of one symbol. A newer snapshot for
// the same symbol supersedes the previous one.
type TickerSnapshot struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"last_price"`
	HighPrice          decimal.Decimal `json:"high_price"`
	LowPrice           decimal.Decimal `json:"low_price"`
	Volume             decimal.Decimal `json:"volume"`
	PriceChange        decimal.Decimal `json:"price_change"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent"`
	Bid                decimal.Decimal `json:"bid"`
	Ask                decimal.Decimal `json:"ask"`
}

// BookPrice is the best bid/ask of one symbol at classification time.
type BookPrice struct {
	Symbol          string          `json:"symbol"`
	BestBidPrice    decimal.Decimal `json:"best_bid_price"`
	BestAskPrice    decimal.Decimal `json:"best_ask_price"`
	BestBidQuantity decimal.Decimal `json:"best_bid_quantity"`
	BestAskQuantity decimal.Decimal `json:"best_ask_quantity"`
}

// Spread returns |ask - bid|.
func (b BookPrice) Spread() decimal.Decimal {
	return b.BestAskPrice.Sub(b.BestBidPrice).Abs()
}

// SymbolTickerSnapshot joins a descriptor with its ticker (and, on the batch
// path, its book price). This is the unit the pipeline carries between
// stages; only the stage currently holding it may mutate it.
type SymbolTickerSnapshot struct {
	Exchange           string            `json:"exchange"`
	Symbol             *SymbolDescriptor `json:"symbol"`
	Ticker             TickerSnapshot    `json:"ticker"`
	BookPrice          *BookPrice        `json:"book_price,omitempty"`
	PublishedAt        time.Time         `json:"published_at"`
	PriceChangePercent decimal.Decimal   `json:"price_change_percent"`
	Volume             decimal.Decimal   `json:"volume"`
}

// Name returns the symbol name, tolerating a missing descriptor.
func (s *SymbolTickerSnapshot) Name() string {
	if s.Symbol == nil {
		return s.Ticker.Symbol
	}
	return s.Symbol.Name
}

// Bar is one OHLCV interval of historical price data. Bars are immutable and
// produced in ascending-time order.
type Bar struct {
	Symbol    string          `json:"symbol"`
	OpenTime  time.Time       `json:"open_time"`
	CloseTime time.Time       `json:"close_time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// AnomalyFlags is the result of one classification pass over one symbol.
// Derived, never persisted.
type AnomalyFlags struct {
	Price  bool `json:"abnormal_price"`
	Volume bool `json:"abnormal_volume"`
	Spread bool `json:"abnormal_spread"`
}

// Valid reports whether no check flagged the symbol.
func (f AnomalyFlags) Valid() bool {
	return !f.Price && !f.Volume && !f.Spread
}

// PriceChange is one streamed price-update event from an exchange. It carries
// enough of the ticker and book to classify the symbol without a fresh
// book-price fetch.
type PriceChange struct {
	Exchange           string          `json:"exchange"`
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"last_price"`
	HighPrice          decimal.Decimal `json:"high_price"`
	LowPrice           decimal.Decimal `json:"low_price"`
	PrevClosePrice     decimal.Decimal `json:"prev_close_price"`
	Volume             decimal.Decimal `json:"volume"`
	PriceChange        decimal.Decimal `json:"price_change"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent"`
	BestBidPrice       decimal.Decimal `json:"best_bid_price"`
	BestAskPrice       decimal.Decimal `json:"best_ask_price"`
	BestBidQuantity    decimal.Decimal `json:"best_bid_quantity"`
	BestAskQuantity    decimal.Decimal `json:"best_ask_quantity"`
	CloseTime          time.Time       `json:"close_time"`
}

// Snapshot expands the streamed event into a full pipeline snapshot using the
// descriptor cached by the last batch pass.
func (p *PriceChange) Snapshot(descriptor *SymbolDescriptor) *SymbolTickerSnapshot {
	return &SymbolTickerSnapshot{
		Exchange: p.Exchange,
		Symbol:   descriptor,
		Ticker: TickerSnapshot{
			Symbol:             p.Symbol,
			LastPrice:          p.LastPrice,
			HighPrice:          p.HighPrice,
			LowPrice:           p.LowPrice,
			Volume:             p.Volume,
			PriceChange:        p.PriceChange,
			PriceChangePercent: p.PriceChangePercent,
			Bid:                p.BestBidPrice,
			Ask:                p.BestAskPrice,
		},
		BookPrice: &BookPrice{
			Symbol:          p.Symbol,
			BestBidPrice:    p.BestBidPrice,
			BestAskPrice:    p.BestAskPrice,
			BestBidQuantity: p.BestBidQuantity,
			BestAskQuantity: p.BestAskQuantity,
		},
		PublishedAt:        p.CloseTime,
		PriceChangePercent: p.PriceChangePercent,
		Volume:             p.Volume,
	}
}

func (p *PriceChange) String() string {
	return fmt.Sprintf("%s/%s last=%s vol=%s", p.Exchange, p.Symbol, p.LastPrice, p.Volume)
}
