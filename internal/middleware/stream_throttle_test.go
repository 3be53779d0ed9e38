package middleware

import (
	"testing"

	"MarketWatch/pkg/metrics"

	"github.com/stretchr/testify/assert"
)

func TestThrottleAllowsWithinBurst(t *testing.T) {
	throttle := NewStreamThrottle(metrics.Noop{}, WithRate(1), WithBurst(3))

	assert.True(t, throttle.Allow("BTCUSDT"))
	assert.True(t, throttle.Allow("BTCUSDT"))
	assert.True(t, throttle.Allow("BTCUSDT"))
	assert.False(t, throttle.Allow("BTCUSDT"))
}

func TestThrottlePerSymbolBuckets(t *testing.T) {
	throttle := NewStreamThrottle(metrics.Noop{}, WithRate(1), WithBurst(1))

	assert.True(t, throttle.Allow("BTCUSDT"))
	assert.False(t, throttle.Allow("BTCUSDT"))
	assert.True(t, throttle.Allow("ETHUSDT"))
}
