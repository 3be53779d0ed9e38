package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss reports an absent key. Absence means "no baseline yet", it is
// never folded into a zero value.
var ErrCacheMiss = errors.New("cache: key not found")

// Service defines the key/value store the pipeline keeps its baselines in.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
}
