package ratelimit

import (
	"context"
	"sync"
	"time"

	"stockscreener/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls will wait until the interval has elapsed since the last call,
// or return early if the context is canceled. Search and candle calls share
// the same gate since the upstream quota is per key.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) SearchSymbols(ctx context.Context, query string) ([]provider.SymbolRecord, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	defer m.touch()
	return m.P.SearchSymbols(ctx, query)
}

func (m *MinInterval) Candles(ctx context.Context, q provider.CandleQuery) (*provider.CandleResponse, error) {
	if err := m.gate(ctx); err != nil {
		return nil, err
	}
	defer m.touch()
	return m.P.Candles(ctx, q)
}

func (m *MinInterval) gate(ctx context.Context) error {
	if m.Interval <= 0 {
		return nil
	}
	m.mu.Lock()
	wait := time.Until(m.last.Add(m.Interval))
	m.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MinInterval) touch() {
	if m.Interval <= 0 {
		return
	}
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}

// Wrap applies the configured limiter to p: a token bucket when rpm > 0,
// otherwise a minimum interval when interval > 0, otherwise p unchanged.
func Wrap(p provider.Provider, rpm, burst int, interval time.Duration) provider.Provider {
	if rpm > 0 {
		if burst <= 0 {
			burst = 1
		}
		return &TokenBucketProvider{P: p, TB: NewTokenBucket(float64(rpm)/60.0, burst)}
	}
	if interval > 0 {
		return &MinInterval{P: p, Interval: interval}
	}
	return p
}
