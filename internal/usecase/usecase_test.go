package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Kafka.Topics.DownloadedSymbols = "symbols.downloaded"
	cfg.Kafka.Topics.ValidSymbols = "symbols.valid"
	cfg.Kafka.Topics.AbnormalPrice = "symbols.abnormal-price"
	cfg.Kafka.Topics.AbnormalVolume = "symbols.abnormal-volume"
	cfg.Kafka.Topics.AbnormalSpread = "symbols.abnormal-spread"
	cfg.Market.LimitSymbols = 40
	cfg.Market.Period = "15m"
	cfg.Market.HistoryWindowMinutes = 480
	cfg.Market.MaxRetries = 1
	cfg.Market.RetryBackoffBase = time.Millisecond
	cfg.Anomaly.BaselineTTL = time.Hour
	cfg.Anomaly.Price = config.Band{Upper: 1.5, Lower: 0.5}
	cfg.Anomaly.Volume = config.Band{Upper: 1.5, Lower: 0.5}
	cfg.Anomaly.Spread = config.Band{Upper: 1.5, Lower: 0.5}
	return cfg
}

type published struct {
	Topic string
	Key   string
	Value any
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key []byte, value any) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{Topic: topic, Key: string(key), Value: value})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.Topic
	}
	return out
}

type fakeExchange struct {
	name       string
	symbols    []models.SymbolDescriptor
	tickers    []models.TickerSnapshot
	books      []models.BookPrice
	bars       []models.Bar
	symbolsErr error
	tickersErr error
	booksErr   error
	barsErr    error

	symbolCalls int
}

func (f *fakeExchange) Name() string {
	if f.name == "" {
		return "Binance"
	}
	return f.name
}

func (f *fakeExchange) Ping(context.Context) error { return nil }

func (f *fakeExchange) GetSymbols(context.Context) ([]models.SymbolDescriptor, error) {
	f.symbolCalls++
	if f.symbolsErr != nil {
		return nil, f.symbolsErr
	}
	return f.symbols, nil
}

func (f *fakeExchange) GetCurrentTickers(context.Context) ([]models.TickerSnapshot, error) {
	if f.tickersErr != nil {
		return nil, f.tickersErr
	}
	return f.tickers, nil
}

func (f *fakeExchange) GetBookPrices(context.Context, []string) ([]models.BookPrice, error) {
	if f.booksErr != nil {
		return nil, f.booksErr
	}
	return f.books, nil
}

func (f *fakeExchange) GetHistoricalBars(_ context.Context, symbol, _ string, _, _ time.Time) ([]models.Bar, error) {
	if f.barsErr != nil {
		return nil, f.barsErr
	}
	return f.bars, nil
}

func (f *fakeExchange) SubscribePriceChanges(context.Context) (<-chan models.PriceChange, <-chan error) {
	events := make(chan models.PriceChange)
	errs := make(chan error)
	close(events)
	close(errs)
	return events, errs
}

func (f *fakeExchange) Close() error { return nil }

func descriptor(name string) models.SymbolDescriptor {
	return models.SymbolDescriptor{
		Name:       name,
		BaseAsset:  name[:3],
		QuoteAsset: "USDT",
		Status:     "TRADING",
	}
}

func ticker(symbol string, last, changePct, volume int64) models.TickerSnapshot {
	return models.TickerSnapshot{
		Symbol:             symbol,
		LastPrice:          decimal.NewFromInt(last),
		Volume:             decimal.NewFromInt(volume),
		PriceChange:        decimal.NewFromInt(last / 100),
		PriceChangePercent: decimal.NewFromInt(changePct),
		Bid:                decimal.NewFromInt(last - 1),
		Ask:                decimal.NewFromInt(last + 1),
	}
}

func snapshot(name string, last, changePct, volume int64) *models.SymbolTickerSnapshot {
	d := descriptor(name)
	t := ticker(name, last, changePct, volume)
	return &models.SymbolTickerSnapshot{
		Exchange:           "Binance",
		Symbol:             &d,
		Ticker:             t,
		PublishedAt:        time.Now().UTC(),
		PriceChangePercent: t.PriceChangePercent,
		Volume:             t.Volume,
	}
}
