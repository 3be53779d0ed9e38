package middleware

import (
	domrepo "MarketWatch/internal/domain/repository"
	"MarketWatch/internal/service/ratelimit"
)

// StreamThrottle sits between the exchange WebSocket and classification. The
// market-wide ticker stream repeats hot symbols many times per second;
// classifying each repeat would hammer the baseline cache for no new
// information. Throttled events are dropped, the next update carries the
// same rolling stats.
type StreamThrottle struct {
	limiter *ratelimit.Limiter
	metrics domrepo.Metrics
	rate    float64
	burst   float64
}

// ThrottleOption configures StreamThrottle.
type ThrottleOption func(*StreamThrottle)

// WithRate sets the sustained events per second allowed per symbol.
func WithRate(perSecond float64) ThrottleOption {
	return func(t *StreamThrottle) {
		if perSecond > 0 {
			t.rate = perSecond
		}
	}
}

// WithBurst sets how many events a symbol may burst above the sustained rate.
func WithBurst(n float64) ThrottleOption {
	return func(t *StreamThrottle) {
		if n > 0 {
			t.burst = n
		}
	}
}

// NewStreamThrottle creates a throttle with one token bucket per symbol.
func NewStreamThrottle(metrics domrepo.Metrics, opts ...ThrottleOption) *StreamThrottle {
	t := &StreamThrottle{
		limiter: ratelimit.New(),
		metrics: metrics,
		rate:    1,
		burst:   5,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Allow reports whether an event for symbol may proceed. A false return
// counts against the stream_throttled metric.
func (t *StreamThrottle) Allow(symbol string) bool {
	if t.limiter.Allow(symbol, t.burst, t.rate) {
		return true
	}
	t.metrics.TrackFailure("stream_throttled", nil)
	return false
}
