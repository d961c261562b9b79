package cache

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/zatekoja/sewa/internal/domain/providers"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

// BreakerSettings tunes the cache circuit breaker
type BreakerSettings struct {
	// FailureThreshold consecutive failures open the breaker
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// BreakerCache stops calling a failing cache for a while. While the breaker
// is open reads behave as misses and writes fail fast with ErrCacheUnavailable.
type BreakerCache struct {
	next providers.CacheProvider
	cb   *gobreaker.CircuitBreaker[any]
}

// ErrCacheUnavailable is returned by writes while the breaker is open
var ErrCacheUnavailable = errors.New("cache unavailable")

// NewBreakerCache wraps next with a circuit breaker
func NewBreakerCache(next providers.CacheProvider, settings BreakerSettings) *BreakerCache {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.GetLogger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("cache circuit breaker changed state")
		},
	})
	return &BreakerCache{next: next, cb: cb}
}

// State reports closed, half-open or open
func (b *BreakerCache) State() string {
	return b.cb.State().String()
}

func rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (b *BreakerCache) write(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if rejected(err) {
		return ErrCacheUnavailable
	}
	return err
}

// Get retrieves a value; an open breaker reports a miss
func (b *BreakerCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := b.cb.Execute(func() (any, error) {
		return b.next.Get(ctx, key)
	})
	if rejected(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	data, _ := value.([]byte)
	return data, nil
}

// GetMulti retrieves several values; an open breaker reports all misses
func (b *BreakerCache) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	value, err := b.cb.Execute(func() (any, error) {
		return b.next.GetMulti(ctx, keys)
	})
	if rejected(err) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	found, _ := value.(map[string][]byte)
	if found == nil {
		found = map[string][]byte{}
	}
	return found, nil
}

// Set stores a value
func (b *BreakerCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return b.write(func() error { return b.next.Set(ctx, key, value, expirationSeconds) })
}

// SetMulti stores several values
func (b *BreakerCache) SetMulti(ctx context.Context, items map[string][]byte, expirationSeconds int) error {
	return b.write(func() error { return b.next.SetMulti(ctx, items, expirationSeconds) })
}

// Delete removes a value
func (b *BreakerCache) Delete(ctx context.Context, key string) error {
	return b.write(func() error { return b.next.Delete(ctx, key) })
}

// DeletePattern removes every key matching pattern
func (b *BreakerCache) DeletePattern(ctx context.Context, pattern string) error {
	return b.write(func() error { return b.next.DeletePattern(ctx, pattern) })
}

// Exists checks for a key; an open breaker reports false
func (b *BreakerCache) Exists(ctx context.Context, key string) (bool, error) {
	value, err := b.cb.Execute(func() (any, error) {
		return b.next.Exists(ctx, key)
	})
	if rejected(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ok, _ := value.(bool)
	return ok, nil
}
