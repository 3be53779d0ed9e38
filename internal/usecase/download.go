package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"MarketWatch/internal/domain/models"
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/logger"
	"MarketWatch/pkg/retry"
)

// DownloadUseCase pulls the full symbol and ticker sets from one exchange,
// joins them, ranks them, and publishes the shortlist the rest of the
// pipeline works on.
type DownloadUseCase struct {
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	retry     retry.Policy
	limit     int
	topic     string
	log       *logger.Logger
}

func NewDownloadUseCase(publisher domrepo.Publisher, metrics domrepo.Metrics, cfg *config.Config, log *logger.Logger) *DownloadUseCase {
	return &DownloadUseCase{
		publisher: publisher,
		metrics:   metrics,
		retry:     retry.New(cfg.Market.MaxRetries, cfg.Market.RetryBackoffBase),
		limit:     cfg.Market.LimitSymbols,
		topic:     cfg.Kafka.Topics.DownloadedSymbols,
		log:       log.With("download"),
	}
}

// Download fetches symbols and tickers, joins them by name, and returns the
// top movers. Each exchange call is retried before the stage as a whole
// fails; a symbol without a matching ticker (or vice versa) is dropped, not
// an error.
func (uc *DownloadUseCase) Download(ctx context.Context, client domrepo.ExchangeClient) ([]*models.SymbolTickerSnapshot, error) {
	stop := uc.metrics.StartTracking("download_symbols")
	defer stop()

	symbols, err := retry.DoValue(ctx, uc.retry, func() ([]models.SymbolDescriptor, error) {
		return client.GetSymbols(ctx)
	})
	if err != nil {
		uc.metrics.TrackFailure("download_symbols", err)
		return nil, fmt.Errorf("get symbols from %s: %w", client.Name(), err)
	}

	tickers, err := retry.DoValue(ctx, uc.retry, func() ([]models.TickerSnapshot, error) {
		return client.GetCurrentTickers(ctx)
	})
	if err != nil {
		uc.metrics.TrackFailure("download_symbols", err)
		return nil, fmt.Errorf("get tickers from %s: %w", client.Name(), err)
	}

	byName := lo.SliceToMap(symbols, func(s models.SymbolDescriptor) (string, models.SymbolDescriptor) {
		return s.Name, s
	})

	now := time.Now().UTC()
	snapshots := make([]*models.SymbolTickerSnapshot, 0, len(tickers))
	for _, t := range tickers {
		desc, ok := byName[t.Symbol]
		if !ok {
			continue
		}
		d := desc
		snapshots = append(snapshots, &models.SymbolTickerSnapshot{
			Exchange:           client.Name(),
			Symbol:             &d,
			Ticker:             t,
			PublishedAt:        now,
			PriceChangePercent: t.PriceChangePercent,
			Volume:             t.Volume,
		})
	}

	// biggest movers first; among equal movers prefer the thinner book
	sort.SliceStable(snapshots, func(i, j int) bool {
		pi, pj := snapshots[i].PriceChangePercent, snapshots[j].PriceChangePercent
		if !pi.Equal(pj) {
			return pi.GreaterThan(pj)
		}
		return snapshots[i].Volume.LessThan(snapshots[j].Volume)
	})

	if uc.limit > 0 && len(snapshots) > uc.limit {
		snapshots = snapshots[:uc.limit]
	}

	if len(snapshots) > 0 {
		if err := uc.publisher.Publish(ctx, uc.topic, []byte(client.Name()), snapshots); err != nil {
			uc.metrics.TrackFailure("download_publish", err)
			return nil, fmt.Errorf("publish downloaded batch from %s: %w", client.Name(), err)
		}
	}

	uc.metrics.TrackSuccess("download_symbols")
	uc.log.Info("download complete",
		logger.String("exchange", client.Name()),
		logger.Int("symbols", len(symbols)),
		logger.Int("selected", len(snapshots)))
	return snapshots, nil
}
