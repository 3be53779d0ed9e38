package anomaly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/cache"
	"MarketWatch/pkg/config"
	"MarketWatch/pkg/logger"
)

const (
	priceKeyPrefix  = "PriceHistory_"
	volumeKeyPrefix = "VolumeHistory_"
	spreadKeyPrefix = "SpreadHistory_"
)

// Detector compares current market metrics against per-symbol baselines kept
// in the cache. The first observation of a symbol seeds the baseline and is
// never abnormal; an abnormal observation leaves the baseline untouched so
// one spike cannot become the new normal.
type Detector struct {
	cache cache.Service
	ttl   time.Duration

	price  config.Band
	volume config.Band
	spread config.Band

	log *logger.Logger
}

// NewDetector creates a detector using the anomaly section of cfg.
func NewDetector(c cache.Service, cfg *config.Config, log *logger.Logger) *Detector {
	return &Detector{
		cache:  c,
		ttl:    cfg.Anomaly.BaselineTTL,
		price:  cfg.Anomaly.Price,
		volume: cfg.Anomaly.Volume,
		spread: cfg.Anomaly.Spread,
		log:    log.With("anomaly"),
	}
}

// CheckPrice reports whether the symbol's current price deviates from its
// baseline.
func (d *Detector) CheckPrice(ctx context.Context, symbol string, price decimal.Decimal) (bool, error) {
	return d.check(ctx, priceKeyPrefix+symbol, price, d.price)
}

// CheckVolume reports whether the symbol's current volume deviates from its
// baseline.
func (d *Detector) CheckVolume(ctx context.Context, symbol string, volume decimal.Decimal) (bool, error) {
	return d.check(ctx, volumeKeyPrefix+symbol, volume, d.volume)
}

// CheckSpread reports whether the symbol's bid/ask spread deviates from its
// baseline. A non-positive bid or ask is abnormal outright; no baseline is
// consulted or written for it.
func (d *Detector) CheckSpread(ctx context.Context, symbol string, book models.BookPrice) (bool, error) {
	if !book.BestBidPrice.IsPositive() || !book.BestAskPrice.IsPositive() {
		return true, nil
	}
	return d.check(ctx, spreadKeyPrefix+symbol, book.Spread(), d.spread)
}

func (d *Detector) check(ctx context.Context, key string, current decimal.Decimal, band config.Band) (bool, error) {
	var baseline decimal.Decimal
	err := d.cache.Get(ctx, key, &baseline)
	if errors.Is(err, cache.ErrCacheMiss) {
		if err := d.cache.Set(ctx, key, current, d.ttl); err != nil {
			return false, fmt.Errorf("seed baseline %s: %w", key, err)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read baseline %s: %w", key, err)
	}

	upper := baseline.Mul(decimal.NewFromFloat(band.Upper))
	lower := baseline.Mul(decimal.NewFromFloat(band.Lower))
	if current.GreaterThan(upper) || current.LessThan(lower) {
		d.log.Debug("abnormal metric",
			logger.String("key", key),
			logger.Decimal("current", current),
			logger.Decimal("baseline", baseline))
		return true, nil
	}

	if err := d.cache.Set(ctx, key, current, d.ttl); err != nil {
		return false, fmt.Errorf("refresh baseline %s: %w", key, err)
	}
	return false, nil
}
