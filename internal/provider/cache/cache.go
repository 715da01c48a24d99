package cache

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"stockscreener/internal/provider"
)

// Store keeps search results keyed by normalized query.
type Store interface {
	Get(ctx context.Context, key string) ([]provider.SymbolRecord, bool, error)
	Set(ctx context.Context, key string, records []provider.SymbolRecord, ttl time.Duration) error
}

// Provider caches SearchSymbols results for a TTL and coalesces concurrent
// lookups of the same query. Candles always go to the underlying provider.
type Provider struct {
	P     provider.Provider
	Store Store
	TTL   time.Duration

	sf singleflight.Group
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) Candles(ctx context.Context, q provider.CandleQuery) (*provider.CandleResponse, error) {
	return c.P.Candles(ctx, q)
}

// SearchSymbols returns cached records when present. Failed lookups are not cached.
func (c *Provider) SearchSymbols(ctx context.Context, query string) ([]provider.SymbolRecord, error) {
	if c.Store == nil || c.TTL <= 0 {
		return c.P.SearchSymbols(ctx, query)
	}

	key := Key(query)
	if recs, ok, err := c.Store.Get(ctx, key); err != nil {
		log.Printf("search cache get %q: %v", key, err)
	} else if ok {
		return recs, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		recs, err := c.P.SearchSymbols(ctx, query)
		if err != nil {
			return nil, err
		}
		if err := c.Store.Set(ctx, key, recs, c.TTL); err != nil {
			log.Printf("search cache set %q: %v", key, err)
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]provider.SymbolRecord), nil
}

// Key normalizes a query so "aapl " and "AAPL" share an entry.
func Key(query string) string {
	return strings.ToUpper(strings.TrimSpace(query))
}
