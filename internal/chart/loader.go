package chart

import (
	"context"
	"log"
	"time"

	"stockscreener/internal/market"
	"stockscreener/internal/telemetry"
)

// NoDataMessage is shown when neither the requested window nor the
// fallback produced bars.
const NoDataMessage = "No data for this range."

// Result is what the presentation side renders for one load.
// Displayed differs from Requested when the quarterly fallback was used.
type Result struct {
	Symbol    string           `json:"symbol"`
	Requested market.Timeframe `json:"requested"`
	Displayed market.Timeframe `json:"displayed"`
	Series    market.Series    `json:"series"`
	NoData    bool             `json:"no_data"`
	Message   string           `json:"message,omitempty"`
	// Reason is the outcome of the last fetch attempt, for logs only.
	Reason telemetry.Reason `json:"-"`
}

// Loader runs fetch, session trim and the quarterly fallback.
type Loader struct {
	Fetcher  *Fetcher
	Location *time.Location
	Now      func() time.Time
}

func NewLoader(f *Fetcher, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{Fetcher: f, Location: loc, Now: time.Now}
}

// LoadSeries loads symbol at tf. When that comes back empty and tf is
// Intraday, Weekly or Monthly, it retries once at Quarterly.
func (l *Loader) LoadSeries(ctx context.Context, symbol string, tf market.Timeframe) Result {
	now := l.Now().In(l.Location)

	series, reason := l.load(ctx, symbol, tf, now)
	if !series.Empty() {
		return Result{Symbol: symbol, Requested: tf, Displayed: tf, Series: series, Reason: reason}
	}

	if tf.FallsBackToQuarterly() && ctx.Err() == nil {
		log.Printf("chart %s %s: empty, falling back to %s", symbol, tf, market.Quarterly)
		series, reason = l.load(ctx, symbol, market.Quarterly, now)
		if !series.Empty() {
			return Result{Symbol: symbol, Requested: tf, Displayed: market.Quarterly, Series: series, Reason: reason}
		}
	}

	return Result{
		Symbol:    symbol,
		Requested: tf,
		Displayed: tf,
		Series:    market.EmptySeries(symbol, tf),
		NoData:    true,
		Message:   NoDataMessage,
		Reason:    reason,
	}
}

func (l *Loader) load(ctx context.Context, symbol string, tf market.Timeframe, now time.Time) (market.Series, telemetry.Reason) {
	bars, reason := l.Fetcher.Fetch(ctx, symbol, market.Resolve(tf, now))
	s := market.Series{Symbol: symbol, Timeframe: tf, Bars: bars}
	if tf == market.Intraday {
		s = RestrictToLatestSession(s, l.Location)
	}
	return s, reason
}
