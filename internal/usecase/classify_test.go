package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketWatch/internal/anomaly"
	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/metrics"
)

func newClassify(t *testing.T, pub *fakePublisher) (*ClassifyUseCase, cache.Service) {
	t.Helper()
	c := cache.NewMemoryCache()
	cfg := testConfig()
	det := anomaly.NewDetector(c, cfg, logger.Nop())
	return NewClassifyUseCase(det, pub, c, nil, metrics.Noop{}, cfg, logger.Nop()), c
}

func partition(t *testing.T, m published) []string {
	t.Helper()
	snaps, ok := m.Value.([]*models.SymbolTickerSnapshot)
	require.True(t, ok, "partition payload must be a snapshot slice")
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Name()
	}
	return out
}

func seedBaselines(t *testing.T, c cache.Service, symbol string, price, volume, spread int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "PriceHistory_"+symbol, decimal.NewFromInt(price), time.Hour))
	require.NoError(t, c.Set(ctx, "VolumeHistory_"+symbol, decimal.NewFromInt(volume), time.Hour))
	require.NoError(t, c.Set(ctx, "SpreadHistory_"+symbol, decimal.NewFromInt(spread), time.Hour))
}

func TestClassifyBatchColdStartAllValid(t *testing.T) {
	pub := &fakePublisher{}
	uc, c := newClassify(t, pub)

	snaps := []*models.SymbolTickerSnapshot{
		snapshot("BTCUSDT", 50000, 3, 100),
		snapshot("ETHUSDT", 3000, 5, 200),
	}
	ex := &fakeExchange{books: []models.BookPrice{
		{Symbol: "BTCUSDT", BestBidPrice: decimal.NewFromInt(49999), BestAskPrice: decimal.NewFromInt(50001)},
		{Symbol: "ETHUSDT", BestBidPrice: decimal.NewFromInt(2999), BestAskPrice: decimal.NewFromInt(3001)},
	}}

	require.NoError(t, uc.ClassifyBatch(context.Background(), ex, snaps))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "symbols.valid", pub.messages[0].Topic)
	assert.Len(t, partition(t, pub.messages[0]), 2)

	var descriptors []models.SymbolDescriptor
	require.NoError(t, c.Get(context.Background(), SymbolsCacheKey, &descriptors))
	assert.Len(t, descriptors, 2)
}

func TestClassifyBatchPartitionsAndPublishOrder(t *testing.T) {
	pub := &fakePublisher{}
	uc, c := newClassify(t, pub)
	ctx := context.Background()

	// PRICE: last=50000 vs baseline 10 -> abnormal price only
	seedBaselines(t, c, "PRICEUSDT", 10, 100, 2)
	// VOLU: volume far above baseline
	seedBaselines(t, c, "VOLUUSDT", 50000, 1, 2)
	// OKAY: everything near baseline
	seedBaselines(t, c, "OKAYUSDT", 50000, 100, 2)

	snaps := []*models.SymbolTickerSnapshot{
		snapshot("PRICEUSDT", 50000, 1, 100),
		snapshot("VOLUUSDT", 50000, 1, 100),
		snapshot("OKAYUSDT", 50000, 1, 100),
	}
	book := func(sym string) models.BookPrice {
		return models.BookPrice{
			Symbol:       sym,
			BestBidPrice: decimal.NewFromInt(49999),
			BestAskPrice: decimal.NewFromInt(50001),
		}
	}
	ex := &fakeExchange{books: []models.BookPrice{
		book("PRICEUSDT"), book("VOLUUSDT"), book("OKAYUSDT"),
	}}

	require.NoError(t, uc.ClassifyBatch(ctx, ex, snaps))

	// one publish per non-empty partition, in volume, spread, price, valid
	// order; the spread partition is empty and skipped
	require.Equal(t, []string{
		"symbols.abnormal-volume",
		"symbols.abnormal-price",
		"symbols.valid",
	}, pub.topics())
	assert.Equal(t, []string{"VOLUUSDT"}, partition(t, pub.messages[0]))
	assert.Equal(t, []string{"PRICEUSDT"}, partition(t, pub.messages[1]))
	assert.Equal(t, []string{"OKAYUSDT"}, partition(t, pub.messages[2]))

	// abnormal symbols never reach the descriptor cache
	var descriptors []models.SymbolDescriptor
	require.NoError(t, c.Get(ctx, SymbolsCacheKey, &descriptors))
	require.Len(t, descriptors, 1)
	assert.Equal(t, "OKAYUSDT", descriptors[0].Name)
}

func TestClassifyBatchMissingBookIsAbnormalSpread(t *testing.T) {
	pub := &fakePublisher{}
	uc, c := newClassify(t, pub)
	seedBaselines(t, c, "BTCUSDT", 50000, 100, 2)

	ex := &fakeExchange{} // no book prices returned
	snaps := []*models.SymbolTickerSnapshot{snapshot("BTCUSDT", 50000, 1, 100)}

	require.NoError(t, uc.ClassifyBatch(context.Background(), ex, snaps))
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "symbols.abnormal-spread", pub.messages[0].Topic)
}

func TestClassifyBatchSymbolJoinsEveryFiringPartition(t *testing.T) {
	pub := &fakePublisher{}
	uc, c := newClassify(t, pub)
	// both price and volume abnormal
	seedBaselines(t, c, "BTCUSDT", 10, 1, 2)

	ex := &fakeExchange{books: []models.BookPrice{{
		Symbol:       "BTCUSDT",
		BestBidPrice: decimal.NewFromInt(49999),
		BestAskPrice: decimal.NewFromInt(50001),
	}}}
	snaps := []*models.SymbolTickerSnapshot{snapshot("BTCUSDT", 50000, 1, 100)}

	require.NoError(t, uc.ClassifyBatch(context.Background(), ex, snaps))

	topics := pub.topics()
	require.Contains(t, topics, "symbols.abnormal-volume")
	require.Contains(t, topics, "symbols.abnormal-price")
	assert.NotContains(t, topics, "symbols.valid")
	for _, m := range pub.messages {
		assert.Equal(t, []string{"BTCUSDT"}, partition(t, m))
	}
}

type capturingStore struct {
	events []models.AnomalyEvent
}

func (s *capturingStore) SaveConsensus(context.Context, models.ConsensusResult) error { return nil }
func (s *capturingStore) Close() error                                               { return nil }

func (s *capturingStore) SaveAnomalies(_ context.Context, events []models.AnomalyEvent) error {
	s.events = append(s.events, events...)
	return nil
}

func TestClassifyBatchPersistsOneEventPerFiringMetric(t *testing.T) {
	pub := &fakePublisher{}
	mem := cache.NewMemoryCache()
	cfg := testConfig()
	det := anomaly.NewDetector(mem, cfg, logger.Nop())
	store := &capturingStore{}
	uc := NewClassifyUseCase(det, pub, mem, store, metrics.Noop{}, cfg, logger.Nop())

	seedBaselines(t, mem, "BTCUSDT", 10, 1, 2)
	ex := &fakeExchange{books: []models.BookPrice{{
		Symbol:       "BTCUSDT",
		BestBidPrice: decimal.NewFromInt(49999),
		BestAskPrice: decimal.NewFromInt(50001),
	}}}

	require.NoError(t, uc.ClassifyBatch(context.Background(), ex,
		[]*models.SymbolTickerSnapshot{snapshot("BTCUSDT", 50000, 1, 100)}))

	require.Len(t, store.events, 2)
	metricsSeen := []string{store.events[0].Metric, store.events[1].Metric}
	assert.ElementsMatch(t, []string{"price", "volume"}, metricsSeen)
}

type keyFailingCache struct {
	cache.Service
	key string
}

func (f keyFailingCache) Get(ctx context.Context, key string, dest interface{}) error {
	if key == f.key {
		return assert.AnError
	}
	return f.Service.Get(ctx, key, dest)
}

func TestClassifyBatchIsolatesFailingSymbol(t *testing.T) {
	pub := &fakePublisher{}
	mem := cache.NewMemoryCache()
	cfg := testConfig()
	wrapped := keyFailingCache{Service: mem, key: "PriceHistory_BADUSDT"}
	det := anomaly.NewDetector(wrapped, cfg, logger.Nop())
	uc := NewClassifyUseCase(det, pub, mem, nil, metrics.Noop{}, cfg, logger.Nop())

	ex := &fakeExchange{books: []models.BookPrice{
		{Symbol: "BADUSDT", BestBidPrice: decimal.NewFromInt(9), BestAskPrice: decimal.NewFromInt(11)},
		{Symbol: "GOODUSDT", BestBidPrice: decimal.NewFromInt(9), BestAskPrice: decimal.NewFromInt(11)},
	}}
	snaps := []*models.SymbolTickerSnapshot{
		snapshot("BADUSDT", 10, 1, 100),
		snapshot("GOODUSDT", 10, 1, 100),
	}

	require.NoError(t, uc.ClassifyBatch(context.Background(), ex, snaps))

	// only the healthy symbol was published
	require.Len(t, pub.messages, 1)
	assert.Equal(t, []string{"GOODUSDT"}, partition(t, pub.messages[0]))
}

func TestClassifyStreamPublishesSingleTopic(t *testing.T) {
	pub := &fakePublisher{}
	uc, c := newClassify(t, pub)
	seedBaselines(t, c, "BTCUSDT", 50000, 100, 2)

	snap := snapshot("BTCUSDT", 50000, 1, 100)
	book := models.BookPrice{
		Symbol:       "BTCUSDT",
		BestBidPrice: decimal.NewFromInt(49999),
		BestAskPrice: decimal.NewFromInt(50001),
	}
	snap.BookPrice = &book

	valid, err := uc.ClassifyStream(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, valid)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "symbols.valid", pub.messages[0].Topic)
	assert.Equal(t, []string{"BTCUSDT"}, partition(t, pub.messages[0]))
}

func TestClassifyStreamMultipleAbnormalPicksOneTopic(t *testing.T) {
	pub := &fakePublisher{}
	uc, c := newClassify(t, pub)
	// price and volume both abnormal; the stream routes to one topic only
	seedBaselines(t, c, "BTCUSDT", 10, 1, 2)

	snap := snapshot("BTCUSDT", 50000, 1, 100)
	book := models.BookPrice{
		Symbol:       "BTCUSDT",
		BestBidPrice: decimal.NewFromInt(49999),
		BestAskPrice: decimal.NewFromInt(50001),
	}
	snap.BookPrice = &book

	valid, err := uc.ClassifyStream(context.Background(), snap)
	require.NoError(t, err)
	assert.False(t, valid)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "symbols.abnormal-volume", pub.messages[0].Topic)
}

func TestResolveDescriptor(t *testing.T) {
	pub := &fakePublisher{}
	uc, c := newClassify(t, pub)
	ctx := context.Background()

	// nothing cached yet
	d, err := uc.ResolveDescriptor(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, d)

	require.NoError(t, c.Set(ctx, SymbolsCacheKey, []models.SymbolDescriptor{descriptor("BTCUSDT")}, 0))

	d, err = uc.ResolveDescriptor(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "BTCUSDT", d.Name)

	d, err = uc.ResolveDescriptor(ctx, "NOPEUSDT")
	require.NoError(t, err)
	assert.Nil(t, d)
}
