package finnhub

import (
	"context"
	"net/url"

	"stockscreener/internal/provider"
)

type searchResponse struct {
	Count  int                     `json:"count"`
	Result []provider.SymbolRecord `json:"result"`
}

// SearchSymbols calls /search. Records are returned unfiltered.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]provider.SymbolRecord, error) {
	var body searchResponse
	if err := c.get(ctx, "/search", url.Values{"q": []string{query}}, &body); err != nil {
		return nil, err
	}
	if body.Result == nil {
		return []provider.SymbolRecord{}, nil
	}
	return body.Result, nil
}
