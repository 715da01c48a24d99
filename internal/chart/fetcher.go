package chart

import (
	"context"
	"log"
	"time"

	"stockscreener/internal/market"
	"stockscreener/internal/provider"
	"stockscreener/internal/telemetry"
)

// Fetcher requests bars and validates the response shape.
// It never returns an error: every failure is an empty result plus a reason.
type Fetcher struct {
	P        provider.Provider
	Recorder telemetry.Recorder
}

func NewFetcher(p provider.Provider, rec telemetry.Recorder) *Fetcher {
	if rec == nil {
		rec = telemetry.NewNoopRecorder()
	}
	return &Fetcher{P: p, Recorder: rec}
}

// Fetch returns the bars for symbol within w, in provider order.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, w market.Window) ([]market.PriceBar, telemetry.Reason) {
	start := time.Now()
	q := provider.CandleQuery{
		Symbol:     symbol,
		Resolution: w.Granularity.Resolution(),
		From:       w.From,
		To:         w.To,
	}

	var bars []market.PriceBar
	res, err := f.P.Candles(ctx, q)
	reason := telemetry.Classify(err)
	if err != nil {
		log.Printf("candles %s res=%s: %v", symbol, q.Resolution, err)
	} else {
		bars, reason = BarsFromResponse(res)
		if reason != telemetry.ReasonOK {
			log.Printf("candles %s res=%s: %s", symbol, q.Resolution, reason)
		}
	}

	evt := &telemetry.FetchEvent{
		Symbol:     symbol,
		Resolution: q.Resolution,
		From:       q.From,
		To:         q.To,
		Bars:       len(bars),
		Reason:     reason,
		Elapsed:    time.Since(start),
	}
	if err := f.Recorder.RecordFetch(evt); err != nil {
		log.Printf("record fetch: %v", err)
	}
	if bars == nil {
		bars = []market.PriceBar{}
	}
	return bars, reason
}

// BarsFromResponse pairs same-index values of the six arrays.
// The status must be exactly "ok" and every array present with equal length;
// otherwise no bars are returned. Source order is kept as is.
func BarsFromResponse(res *provider.CandleResponse) ([]market.PriceBar, telemetry.Reason) {
	if res == nil {
		return nil, telemetry.ReasonMalformed
	}
	if res.Status != "ok" {
		return nil, telemetry.ReasonNoData
	}
	if res.T == nil || res.O == nil || res.H == nil || res.L == nil || res.C == nil || res.V == nil {
		return nil, telemetry.ReasonMalformed
	}
	n := len(res.T)
	if len(res.O) != n || len(res.H) != n || len(res.L) != n || len(res.C) != n || len(res.V) != n {
		return nil, telemetry.ReasonMalformed
	}
	if n == 0 {
		return nil, telemetry.ReasonNoData
	}

	bars := make([]market.PriceBar, n)
	for i, ts := range res.T {
		bars[i] = market.PriceBar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   res.O[i],
			High:   res.H[i],
			Low:    res.L[i],
			Close:  res.C[i],
			Volume: res.V[i],
		}
	}
	return bars, telemetry.ReasonOK
}
