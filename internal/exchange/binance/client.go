package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/logger"
)

// Name is the registry key for this exchange.
const Name = "Binance"

// Client implements the exchange port against the Binance spot API.
type Client struct {
	cli    *binance.Client
	stream *tickerStream
	log    *logger.Logger
}

// New creates a Binance client. API credentials may be empty; all the
// endpoints used here are public market data.
func New(apiKey, apiSecret string, log *logger.Logger) *Client {
	return &Client{
		cli:    binance.NewClient(apiKey, apiSecret),
		stream: newTickerStream(log),
		log:    log.With("binance"),
	}
}

func (c *Client) Name() string {
	return Name
}

// Ping checks REST connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.cli.NewPingService().Do(ctx); err != nil {
		return fmt.Errorf("binance ping: %w", err)
	}
	return nil
}

// GetSymbols downloads all symbol descriptors with their trading filters.
func (c *Client) GetSymbols(ctx context.Context) ([]models.SymbolDescriptor, error) {
	info, err := c.cli.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance exchange info: %w", err)
	}

	out := make([]models.SymbolDescriptor, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		d := models.SymbolDescriptor{
			Name:                s.Symbol,
			BaseAsset:           s.BaseAsset,
			QuoteAsset:          s.QuoteAsset,
			BaseAssetPrecision:  s.BaseAssetPrecision,
			QuoteAssetPrecision: s.QuotePrecision,
			Status:              s.Status,
		}
		if f := s.LotSizeFilter(); f != nil {
			d.MinQuantity = c.dec(f.MinQuantity)
			d.MaxQuantity = c.dec(f.MaxQuantity)
			d.StepSize = c.dec(f.StepSize)
		}
		if f := s.PriceFilter(); f != nil {
			d.TickSize = c.dec(f.TickSize)
		}
		c.applyRawFilters(&d, s.Filters)
		out = append(out, d)
	}
	return out, nil
}

// applyRawFilters reads the filters the typed accessors do not cover. The
// notional filter was renamed server-side, so both spellings are accepted.
func (c *Client) applyRawFilters(d *models.SymbolDescriptor, filters []map[string]interface{}) {
	for _, f := range filters {
		switch f["filterType"] {
		case "MIN_NOTIONAL", "NOTIONAL":
			if v, ok := f["minNotional"].(string); ok {
				d.MinNotional = c.dec(v)
			}
		case "TRAILING_DELTA":
			if v, ok := f["minTrailingAboveDelta"].(float64); ok {
				d.MinTrailingDelta = int(v)
			}
			if v, ok := f["maxTrailingAboveDelta"].(float64); ok {
				d.MaxTrailingDelta = int(v)
			}
		}
	}
}

// GetCurrentTickers downloads the 24h rolling stats for every symbol.
func (c *Client) GetCurrentTickers(ctx context.Context) ([]models.TickerSnapshot, error) {
	stats, err := c.cli.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance ticker stats: %w", err)
	}

	return lo.Map(stats, func(s *binance.PriceChangeStats, _ int) models.TickerSnapshot {
		return models.TickerSnapshot{
			Symbol:             s.Symbol,
			LastPrice:          c.dec(s.LastPrice),
			HighPrice:          c.dec(s.HighPrice),
			LowPrice:           c.dec(s.LowPrice),
			Volume:             c.dec(s.Volume),
			PriceChange:        c.dec(s.PriceChange),
			PriceChangePercent: c.dec(s.PriceChangePercent),
			Bid:                c.dec(s.BidPrice),
			Ask:                c.dec(s.AskPrice),
		}
	}), nil
}

// GetBookPrices downloads best bid/ask for the given symbols. Binance only
// serves book tickers per symbol or for the whole market, so the full set is
// fetched once and filtered.
func (c *Client) GetBookPrices(ctx context.Context, symbols []string) ([]models.BookPrice, error) {
	books, err := c.cli.NewListBookTickersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance book tickers: %w", err)
	}

	wanted := lo.SliceToMap(symbols, func(s string) (string, struct{}) {
		return s, struct{}{}
	})

	out := make([]models.BookPrice, 0, len(symbols))
	for _, b := range books {
		if _, ok := wanted[b.Symbol]; !ok {
			continue
		}
		out = append(out, models.BookPrice{
			Symbol:          b.Symbol,
			BestBidPrice:    c.dec(b.BidPrice),
			BestAskPrice:    c.dec(b.AskPrice),
			BestBidQuantity: c.dec(b.BidQuantity),
			BestAskQuantity: c.dec(b.AskQuantity),
		})
	}
	return out, nil
}

// GetHistoricalBars downloads klines for one symbol over [start, end).
func (c *Client) GetHistoricalBars(ctx context.Context, symbol, period string, start, end time.Time) ([]models.Bar, error) {
	svc := c.cli.NewKlinesService().Symbol(symbol).Interval(period)
	if !start.IsZero() {
		svc.StartTime(start.UnixMilli())
	}
	if !end.IsZero() {
		svc.EndTime(end.UnixMilli())
	}
	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
	}

	bars := make([]models.Bar, len(klines))
	for i, k := range klines {
		bars[i] = models.Bar{
			Symbol:    symbol,
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
			Open:      c.dec(k.Open),
			High:      c.dec(k.High),
			Low:       c.dec(k.Low),
			Close:     c.dec(k.Close),
			Volume:    c.dec(k.Volume),
		}
	}
	return bars, nil
}

// SubscribePriceChanges streams ticker updates for the whole market.
func (c *Client) SubscribePriceChanges(ctx context.Context) (<-chan models.PriceChange, <-chan error) {
	return c.stream.run(ctx)
}

// Close shuts the stream down. REST calls hold no connection state.
func (c *Client) Close() error {
	return c.stream.close()
}

func (c *Client) dec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		c.log.Warn("unparseable decimal", logger.String("value", s), logger.Error(err))
		return decimal.Zero
	}
	return d
}
