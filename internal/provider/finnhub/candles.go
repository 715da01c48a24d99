package finnhub

import (
	"context"
	"net/url"
	"strconv"

	"stockscreener/internal/provider"
)

// Candles calls /stock/candle. The payload is returned as decoded; status
// and array-shape checks are left to the caller.
//
//	{"s":"ok","t":[1723469400],"o":[216.07],"h":[219.51],"l":[215.6],"c":[217.53],"v":[38028092]}
//	{"s":"no_data"}
func (c *Client) Candles(ctx context.Context, q provider.CandleQuery) (*provider.CandleResponse, error) {
	query := url.Values{}
	query.Set("symbol", q.Symbol)
	query.Set("resolution", q.Resolution)
	query.Set("from", strconv.FormatInt(q.From.Unix(), 10))
	query.Set("to", strconv.FormatInt(q.To.Unix(), 10))

	var body provider.CandleResponse
	if err := c.get(ctx, "/stock/candle", query, &body); err != nil {
		return nil, err
	}
	return &body, nil
}
