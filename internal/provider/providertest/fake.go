// Package providertest has an in-memory provider.Provider for tests.
package providertest

import (
	"context"
	"sync"

	"stockscreener/internal/provider"
)

// Fake answers from fixed tables and records every call.
// Candle responses are keyed by resolution; a missing key yields {"s":"no_data"}.
// Candles fails with ctx.Err() once ctx is done, like a real HTTP round trip.
type Fake struct {
	Records    map[string][]provider.SymbolRecord
	Bars       map[string]*provider.CandleResponse
	SearchErr  error
	CandlesErr error

	// SearchHook, when set, runs before SearchSymbols answers.
	SearchHook func(ctx context.Context, query string)
	// CandlesHook, when set, runs before Candles answers.
	CandlesHook func(ctx context.Context, q provider.CandleQuery)

	mu          sync.Mutex
	searchCalls []string
	candleCalls []provider.CandleQuery
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) SearchSymbols(ctx context.Context, query string) ([]provider.SymbolRecord, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, query)
	f.mu.Unlock()
	if f.SearchHook != nil {
		f.SearchHook(ctx, query)
	}
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	return f.Records[query], nil
}

func (f *Fake) Candles(ctx context.Context, q provider.CandleQuery) (*provider.CandleResponse, error) {
	f.mu.Lock()
	f.candleCalls = append(f.candleCalls, q)
	f.mu.Unlock()
	if f.CandlesHook != nil {
		f.CandlesHook(ctx, q)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.CandlesErr != nil {
		return nil, f.CandlesErr
	}
	if res, ok := f.Bars[q.Resolution]; ok {
		return res, nil
	}
	return &provider.CandleResponse{Status: "no_data"}, nil
}

// SearchCalls returns the queries seen so far.
func (f *Fake) SearchCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searchCalls...)
}

// CandleCalls returns the candle queries seen so far.
func (f *Fake) CandleCalls() []provider.CandleQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.CandleQuery(nil), f.candleCalls...)
}
