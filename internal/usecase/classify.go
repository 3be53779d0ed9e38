package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketWatch/internal/anomaly"
	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	svccache "MarketWatch/internal/service/cache"
	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/retry"
)

// SymbolsCacheKey holds the descriptors of the last valid batch. The streamed
// path reads it to expand bare price events into full snapshots.
const SymbolsCacheKey = "symbols"

// localDescriptorTTL bounds how stale the in-process descriptor memo may be
// relative to the shared cache.
const localDescriptorTTL = 5 * time.Second

// ClassifyUseCase runs the anomaly checks over a batch of snapshots and
// partitions the results. A symbol lands in every abnormal partition whose
// check fired, and in valid only when none did. A symbol whose checks error
// is skipped; it never blocks the rest of the batch.
type ClassifyUseCase struct {
	detector  *anomaly.Detector
	publisher domrepo.Publisher
	cache     cache.Service
	local     *svccache.TTLCache
	store     domrepo.SignalStore
	metrics   domrepo.Metrics
	retry     retry.Policy
	topics    Topics
	log       *logger.Logger
}

// Topics names the destination topic per classification outcome.
type Topics struct {
	Valid          string
	AbnormalPrice  string
	AbnormalVolume string
	AbnormalSpread string
}

func NewClassifyUseCase(detector *anomaly.Detector, publisher domrepo.Publisher, c cache.Service, store domrepo.SignalStore, metrics domrepo.Metrics, cfg *config.Config, log *logger.Logger) *ClassifyUseCase {
	return &ClassifyUseCase{
		detector:  detector,
		publisher: publisher,
		cache:     c,
		local:     svccache.NewTTLCache(),
		store:     store,
		metrics:   metrics,
		retry:     retry.New(cfg.Market.MaxRetries, cfg.Market.RetryBackoffBase),
		topics: Topics{
			Valid:          cfg.Kafka.Topics.ValidSymbols,
			AbnormalPrice:  cfg.Kafka.Topics.AbnormalPrice,
			AbnormalVolume: cfg.Kafka.Topics.AbnormalVolume,
			AbnormalSpread: cfg.Kafka.Topics.AbnormalSpread,
		},
		log: log.With("classify"),
	}
}

type classified struct {
	snap  *models.SymbolTickerSnapshot
	flags models.AnomalyFlags
	err   error
}

// ClassifyBatch attaches fresh book prices to the snapshots, checks every
// symbol concurrently, and emits one publish per non-empty partition. Valid
// symbols are published last and their descriptors cached for the streamed
// path.
func (uc *ClassifyUseCase) ClassifyBatch(ctx context.Context, client domrepo.ExchangeClient, snapshots []*models.SymbolTickerSnapshot) error {
	stop := uc.metrics.StartTracking("classify_batch")
	defer stop()

	if len(snapshots) == 0 {
		return nil
	}

	names := make([]string, len(snapshots))
	for i, s := range snapshots {
		names[i] = s.Name()
	}

	books, err := retry.DoValue(ctx, uc.retry, func() ([]models.BookPrice, error) {
		return client.GetBookPrices(ctx, names)
	})
	if err != nil {
		uc.metrics.TrackFailure("classify_batch", err)
		return fmt.Errorf("get book prices from %s: %w", client.Name(), err)
	}
	byName := make(map[string]models.BookPrice, len(books))
	for _, b := range books {
		byName[b.Symbol] = b
	}
	for _, s := range snapshots {
		if b, ok := byName[s.Name()]; ok {
			book := b
			s.BookPrice = &book
		}
	}

	results := make([]classified, len(snapshots))
	var wg sync.WaitGroup
	for i, snap := range snapshots {
		wg.Add(1)
		go func(i int, snap *models.SymbolTickerSnapshot) {
			defer wg.Done()
			flags, err := uc.classifyOne(ctx, snap)
			results[i] = classified{snap: snap, flags: flags, err: err}
		}(i, snap)
	}
	wg.Wait()

	var valid, price, volume, spread []*models.SymbolTickerSnapshot
	for _, r := range results {
		if r.err != nil {
			uc.metrics.TrackFailure("classify_symbol", r.err)
			uc.log.Warn("symbol skipped",
				logger.String("symbol", r.snap.Name()),
				logger.Error(r.err))
			continue
		}
		// a symbol joins every abnormal partition that fired; valid only
		// when none did
		if r.flags.Volume {
			volume = append(volume, r.snap)
		}
		if r.flags.Spread {
			spread = append(spread, r.snap)
		}
		if r.flags.Price {
			price = append(price, r.snap)
		}
		if r.flags.Valid() {
			valid = append(valid, r.snap)
		}
	}

	for _, part := range []struct {
		topic string
		snaps []*models.SymbolTickerSnapshot
	}{
		{uc.topics.AbnormalVolume, volume},
		{uc.topics.AbnormalSpread, spread},
		{uc.topics.AbnormalPrice, price},
		{uc.topics.Valid, valid},
	} {
		if len(part.snaps) == 0 {
			continue
		}
		if err := uc.publisher.Publish(ctx, part.topic, []byte(client.Name()), part.snaps); err != nil {
			uc.metrics.TrackFailure("classify_publish", err)
			return fmt.Errorf("publish to %s: %w", part.topic, err)
		}
	}

	if err := uc.cacheValidDescriptors(ctx, valid); err != nil {
		uc.metrics.TrackFailure("classify_cache_symbols", err)
		return err
	}

	uc.persistAnomalies(ctx, price, volume, spread)

	uc.metrics.TrackSuccess("classify_batch")
	uc.log.Info("batch classified",
		logger.Int("valid", len(valid)),
		logger.Int("abnormal_price", len(price)),
		logger.Int("abnormal_volume", len(volume)),
		logger.Int("abnormal_spread", len(spread)))
	return nil
}

// ClassifyStream classifies one streamed snapshot and publishes it to its
// single destination topic. It reports whether the symbol came out valid.
func (uc *ClassifyUseCase) ClassifyStream(ctx context.Context, snap *models.SymbolTickerSnapshot) (bool, error) {
	stop := uc.metrics.StartTracking("classify_stream")
	defer stop()

	flags, err := uc.classifyOne(ctx, snap)
	if err != nil {
		uc.metrics.TrackFailure("classify_stream", err)
		return false, err
	}

	topic := uc.topics.Valid
	switch {
	case flags.Volume:
		topic = uc.topics.AbnormalVolume
	case flags.Spread:
		topic = uc.topics.AbnormalSpread
	case flags.Price:
		topic = uc.topics.AbnormalPrice
	}

	// payload shape matches the batch partitions, so topic consumers see
	// one contract
	if err := uc.publisher.Publish(ctx, topic, []byte(snap.Name()), []*models.SymbolTickerSnapshot{snap}); err != nil {
		uc.metrics.TrackFailure("classify_stream", err)
		return false, fmt.Errorf("publish to %s: %w", topic, err)
	}

	uc.metrics.TrackSuccess("classify_stream")
	return flags.Valid(), nil
}

// classifyOne runs the three checks for one symbol, retrying each check
// independently. The first check that still fails after retries poisons only
// this symbol.
func (uc *ClassifyUseCase) classifyOne(ctx context.Context, snap *models.SymbolTickerSnapshot) (models.AnomalyFlags, error) {
	var flags models.AnomalyFlags

	abnormal, err := retry.DoValue(ctx, uc.retry, func() (bool, error) {
		return uc.detector.CheckPrice(ctx, snap.Name(), snap.Ticker.LastPrice)
	})
	if err != nil {
		return flags, fmt.Errorf("price check %s: %w", snap.Name(), err)
	}
	flags.Price = abnormal

	abnormal, err = retry.DoValue(ctx, uc.retry, func() (bool, error) {
		return uc.detector.CheckVolume(ctx, snap.Name(), snap.Volume)
	})
	if err != nil {
		return flags, fmt.Errorf("volume check %s: %w", snap.Name(), err)
	}
	flags.Volume = abnormal

	book := models.BookPrice{Symbol: snap.Name()}
	if snap.BookPrice != nil {
		book = *snap.BookPrice
	}
	abnormal, err = retry.DoValue(ctx, uc.retry, func() (bool, error) {
		return uc.detector.CheckSpread(ctx, snap.Name(), book)
	})
	if err != nil {
		return flags, fmt.Errorf("spread check %s: %w", snap.Name(), err)
	}
	flags.Spread = abnormal

	return flags, nil
}

func (uc *ClassifyUseCase) cacheValidDescriptors(ctx context.Context, valid []*models.SymbolTickerSnapshot) error {
	if len(valid) == 0 {
		return nil
	}
	descriptors := make([]models.SymbolDescriptor, 0, len(valid))
	for _, snap := range valid {
		if snap.Symbol != nil {
			descriptors = append(descriptors, *snap.Symbol)
		}
	}
	if err := uc.cache.Set(ctx, SymbolsCacheKey, descriptors, 0); err != nil {
		return fmt.Errorf("cache valid descriptors: %w", err)
	}
	uc.local.Set(SymbolsCacheKey, descriptors, localDescriptorTTL)
	return nil
}

// persistAnomalies records the abnormal observations. Persistence never
// fails the batch.
func (uc *ClassifyUseCase) persistAnomalies(ctx context.Context, price, volume, spread []*models.SymbolTickerSnapshot) {
	if uc.store == nil {
		return
	}
	var events []models.AnomalyEvent
	add := func(metric string, snaps []*models.SymbolTickerSnapshot) {
		for _, snap := range snaps {
			events = append(events, models.AnomalyEvent{
				Exchange:   snap.Exchange,
				Symbol:     snap.Name(),
				Metric:     metric,
				LastPrice:  snap.Ticker.LastPrice,
				Volume:     snap.Volume,
				DetectedAt: time.Now().UTC(),
			})
		}
	}
	add("price", price)
	add("volume", volume)
	add("spread", spread)
	if len(events) == 0 {
		return
	}
	if err := uc.store.SaveAnomalies(ctx, events); err != nil {
		uc.metrics.TrackFailure("persist_anomalies", err)
		uc.log.Warn("persist anomalies", logger.Error(err))
	}
}

// ResolveDescriptor finds the cached descriptor for a streamed symbol name.
// A symbol outside the last valid batch resolves to nil without error. The
// stream fires many times per second, so the shared cache read is memoized
// in-process for a few seconds.
func (uc *ClassifyUseCase) ResolveDescriptor(ctx context.Context, symbol string) (*models.SymbolDescriptor, error) {
	if v, ok := uc.local.Get(SymbolsCacheKey); ok {
		if descriptors, ok := v.([]models.SymbolDescriptor); ok {
			return findDescriptor(descriptors, symbol), nil
		}
	}

	var descriptors []models.SymbolDescriptor
	err := uc.cache.Get(ctx, SymbolsCacheKey, &descriptors)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached descriptors: %w", err)
	}
	uc.local.Set(SymbolsCacheKey, descriptors, localDescriptorTTL)
	return findDescriptor(descriptors, symbol), nil
}

func findDescriptor(descriptors []models.SymbolDescriptor, symbol string) *models.SymbolDescriptor {
	for i := range descriptors {
		if descriptors[i].Name == symbol {
			return &descriptors[i]
		}
	}
	return nil
}
