package chart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockscreener/internal/market"
	"stockscreener/internal/provider"
	"stockscreener/internal/provider/providertest"
	"stockscreener/internal/telemetry"
)

var newYork = time.FixedZone("EDT", -4*60*60)

// session builds n 5-minute bars starting at open.
func session(open time.Time, n int, base float64) *provider.CandleResponse {
	res := &provider.CandleResponse{Status: "ok"}
	for i := 0; i < n; i++ {
		p := base + float64(i)*0.1
		res.T = append(res.T, open.Add(time.Duration(i)*5*time.Minute).Unix())
		res.O = append(res.O, p)
		res.H = append(res.H, p+0.5)
		res.L = append(res.L, p-0.5)
		res.C = append(res.C, p+0.2)
		res.V = append(res.V, float64(1000+i))
	}
	return res
}

func concat(a, b *provider.CandleResponse) *provider.CandleResponse {
	return &provider.CandleResponse{
		Status: "ok",
		T:      append(append([]int64{}, a.T...), b.T...),
		O:      append(append([]float64{}, a.O...), b.O...),
		H:      append(append([]float64{}, a.H...), b.H...),
		L:      append(append([]float64{}, a.L...), b.L...),
		C:      append(append([]float64{}, a.C...), b.C...),
		V:      append(append([]float64{}, a.V...), b.V...),
	}
}

func TestBarsFromResponse_PairsByIndex(t *testing.T) {
	t.Parallel()

	res := &provider.CandleResponse{
		Status: "ok",
		T:      []int64{1755005700, 1755005400, 1755006000},
		O:      []float64{1, 2, 3},
		H:      []float64{4, 5, 6},
		L:      []float64{7, 8, 9},
		C:      []float64{10, 11, 12},
		V:      []float64{13, 14, 15},
	}

	bars, reason := BarsFromResponse(res)

	require.Equal(t, telemetry.ReasonOK, reason)
	require.Len(t, bars, 3)
	for i, b := range bars {
		require.Equal(t, time.Unix(res.T[i], 0).UTC(), b.Time, "source order is kept")
		require.Equal(t, time.UTC, b.Time.Location())
		require.Equal(t, res.O[i], b.Open)
		require.Equal(t, res.H[i], b.High)
		require.Equal(t, res.L[i], b.Low)
		require.Equal(t, res.C[i], b.Close)
		require.Equal(t, res.V[i], b.Volume)
	}
}

func TestBarsFromResponse_Rejects(t *testing.T) {
	t.Parallel()

	good := func() *provider.CandleResponse {
		return &provider.CandleResponse{
			Status: "ok",
			T:      []int64{1, 2}, O: []float64{1, 2}, H: []float64{1, 2},
			L: []float64{1, 2}, C: []float64{1, 2}, V: []float64{1, 2},
		}
	}

	cases := map[string]struct {
		res    *provider.CandleResponse
		reason telemetry.Reason
	}{
		"nil response":     {nil, telemetry.ReasonMalformed},
		"no_data status":   {&provider.CandleResponse{Status: "no_data"}, telemetry.ReasonNoData},
		"missing status":   {func() *provider.CandleResponse { r := good(); r.Status = ""; return r }(), telemetry.ReasonNoData},
		"other status":     {func() *provider.CandleResponse { r := good(); r.Status = "OK "; return r }(), telemetry.ReasonNoData},
		"missing volume":   {func() *provider.CandleResponse { r := good(); r.V = nil; return r }(), telemetry.ReasonMalformed},
		"missing times":    {func() *provider.CandleResponse { r := good(); r.T = nil; return r }(), telemetry.ReasonMalformed},
		"short close":      {func() *provider.CandleResponse { r := good(); r.C = r.C[:1]; return r }(), telemetry.ReasonMalformed},
		"long open":        {func() *provider.CandleResponse { r := good(); r.O = append(r.O, 3); return r }(), telemetry.ReasonMalformed},
		"ok but no rows":   {&provider.CandleResponse{Status: "ok", T: []int64{}, O: []float64{}, H: []float64{}, L: []float64{}, C: []float64{}, V: []float64{}}, telemetry.ReasonNoData},
	}
	for name, tc := range cases {
		bars, reason := BarsFromResponse(tc.res)
		require.Emptyf(t, bars, "case %s", name)
		require.Equalf(t, tc.reason, reason, "case %s", name)
	}
}

func TestFetcher_ErrorsDegradeToEmpty(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		err    error
		reason telemetry.Reason
	}{
		{provider.ErrRateLimited, telemetry.ReasonRateLimited},
		{provider.ErrMissingCredential, telemetry.ReasonCredential},
		{errors.New("dial tcp: no route to host"), telemetry.ReasonTransport},
	} {
		fake := &providertest.Fake{CandlesErr: tc.err}
		f := NewFetcher(fake, nil)

		bars, reason := f.Fetch(t.Context(), "AAPL", market.Resolve(market.Yearly, time.Now()))

		require.NotNil(t, bars)
		require.Empty(t, bars)
		require.Equal(t, tc.reason, reason)
	}
}

func TestFetcher_RequestShapeAndTelemetry(t *testing.T) {
	t.Parallel()

	// Arrange
	now := time.Date(2025, 8, 14, 15, 0, 0, 0, time.UTC)
	fake := &providertest.Fake{Bars: map[string]*provider.CandleResponse{"60": session(now.Add(-time.Hour), 3, 100)}}
	rec := &memRecorder{}
	f := NewFetcher(fake, rec)
	w := market.Resolve(market.Monthly, now)

	// Act
	bars, reason := f.Fetch(t.Context(), "MSFT", w)

	// Assert
	require.Equal(t, telemetry.ReasonOK, reason)
	require.Len(t, bars, 3)
	calls := fake.CandleCalls()
	require.Len(t, calls, 1)
	require.Equal(t, provider.CandleQuery{Symbol: "MSFT", Resolution: "60", From: w.From, To: w.To}, calls[0])
	require.Len(t, rec.fetches, 1)
	require.Equal(t, 3, rec.fetches[0].Bars)
	require.Equal(t, "60", rec.fetches[0].Resolution)
}

func TestRestrictToLatestSession_TwoDays(t *testing.T) {
	t.Parallel()

	// Arrange: 20 bars on Aug 12 and 30 on Aug 13, New York time
	day1 := time.Date(2025, 8, 12, 9, 30, 0, 0, newYork)
	day2 := time.Date(2025, 8, 13, 9, 30, 0, 0, newYork)
	bars, _ := BarsFromResponse(concat(session(day1, 20, 100), session(day2, 30, 110)))
	s := market.Series{Symbol: "AAPL", Timeframe: market.Intraday, Bars: bars}

	// Act
	out := RestrictToLatestSession(s, newYork)

	// Assert
	require.Len(t, out.Bars, 30)
	require.Equal(t, bars[20:], out.Bars)
	require.Len(t, s.Bars, 50, "input is not modified")
}

func TestRestrictToLatestSession_UsesLocalCalendar(t *testing.T) {
	t.Parallel()

	// Arrange: evening bars in New York straddle midnight UTC
	ts := []time.Time{
		time.Date(2025, 8, 13, 19, 0, 0, 0, newYork), // Aug 13 23:00 UTC
		time.Date(2025, 8, 13, 20, 0, 0, 0, newYork), // Aug 14 00:00 UTC
		time.Date(2025, 8, 13, 22, 0, 0, 0, newYork), // Aug 14 02:00 UTC
	}
	var bars []market.PriceBar
	for _, tt := range ts {
		bars = append(bars, market.PriceBar{Time: tt.UTC(), Close: 1})
	}
	s := market.Series{Bars: bars}

	// Act + Assert
	require.Len(t, RestrictToLatestSession(s, newYork).Bars, 3)
	require.Len(t, RestrictToLatestSession(s, time.UTC).Bars, 2)
}

func TestRestrictToLatestSession_Empty(t *testing.T) {
	t.Parallel()

	s := market.EmptySeries("AAPL", market.Intraday)
	out := RestrictToLatestSession(s, newYork)

	require.Equal(t, s, out)
	require.True(t, out.Empty())
}

func TestLoadSeries_IntradayTrimsToLatestSession(t *testing.T) {
	t.Parallel()

	// Arrange: the provider returns 50 bars across two trading days
	day1 := time.Date(2025, 8, 12, 9, 30, 0, 0, newYork)
	day2 := time.Date(2025, 8, 13, 9, 30, 0, 0, newYork)
	fake := &providertest.Fake{Bars: map[string]*provider.CandleResponse{
		"5": concat(session(day1, 20, 100), session(day2, 30, 110)),
	}}
	l := newTestLoader(fake, time.Date(2025, 8, 13, 16, 0, 0, 0, newYork))

	// Act
	res := l.LoadSeries(t.Context(), "AAPL", market.Intraday)

	// Assert
	require.False(t, res.NoData)
	require.Equal(t, market.Intraday, res.Requested)
	require.Equal(t, market.Intraday, res.Displayed)
	require.Equal(t, 30, res.Series.Len())
	require.Equal(t, market.Intraday, res.Series.Timeframe)
	require.Len(t, fake.CandleCalls(), 1)
}

func TestLoadSeries_FallsBackToQuarterly(t *testing.T) {
	t.Parallel()

	for _, tf := range []market.Timeframe{market.Intraday, market.Weekly, market.Monthly} {
		// Arrange: only daily bars exist
		now := time.Date(2025, 8, 13, 16, 0, 0, 0, newYork)
		daily := session(now.AddDate(0, 0, -3), 3, 50)
		fake := &providertest.Fake{Bars: map[string]*provider.CandleResponse{"D": daily}}
		l := newTestLoader(fake, now)

		// Act
		res := l.LoadSeries(t.Context(), "SPY", tf)

		// Assert
		require.False(t, res.NoData)
		require.Equal(t, tf, res.Requested)
		require.Equal(t, market.Quarterly, res.Displayed)
		require.Equal(t, market.Quarterly, res.Series.Timeframe)
		require.Equal(t, 3, res.Series.Len(), "fallback result is not session-trimmed")

		calls := fake.CandleCalls()
		require.Len(t, calls, 2)
		require.Equal(t, tf.Granularity().Resolution(), calls[0].Resolution)
		require.Equal(t, "D", calls[1].Resolution)
		require.Equal(t, market.Resolve(market.Quarterly, now).From.Unix(), calls[1].From.Unix())
	}
}

func TestLoadSeries_NoFallbackForQuarterlyAndYearly(t *testing.T) {
	t.Parallel()

	for _, tf := range []market.Timeframe{market.Quarterly, market.Yearly} {
		fake := &providertest.Fake{}
		l := newTestLoader(fake, time.Date(2025, 8, 13, 16, 0, 0, 0, newYork))

		res := l.LoadSeries(t.Context(), "ZZZZ", tf)

		require.True(t, res.NoData)
		require.Equal(t, NoDataMessage, res.Message)
		require.Equal(t, tf, res.Displayed)
		require.True(t, res.Series.Empty())
		require.Len(t, fake.CandleCalls(), 1, "no retry")
	}
}

func TestLoadSeries_NothingAnywhere(t *testing.T) {
	t.Parallel()

	// Arrange: zero bars at every granularity
	fake := &providertest.Fake{}
	l := newTestLoader(fake, time.Date(2025, 8, 13, 16, 0, 0, 0, newYork))

	// Act
	res := l.LoadSeries(t.Context(), "ZZZZ", market.Intraday)

	// Assert
	require.True(t, res.NoData)
	require.Equal(t, "No data for this range.", res.Message)
	require.Equal(t, market.Intraday, res.Displayed)
	require.True(t, res.Series.Empty())
	require.NotNil(t, res.Series.Bars)
	require.Len(t, fake.CandleCalls(), 2, "exactly one quarterly retry")
}

func TestLoadSeries_FailureTreatedAsNoData(t *testing.T) {
	t.Parallel()

	fake := &providertest.Fake{CandlesErr: provider.ErrRateLimited}
	l := newTestLoader(fake, time.Now())

	res := l.LoadSeries(t.Context(), "AAPL", market.Weekly)

	require.True(t, res.NoData)
	require.Equal(t, market.Weekly, res.Displayed)
	require.Equal(t, telemetry.ReasonRateLimited, res.Reason)
	require.Len(t, fake.CandleCalls(), 2)
}

func TestLoadSeries_CanceledSkipsFallback(t *testing.T) {
	t.Parallel()

	fake := &providertest.Fake{}
	l := newTestLoader(fake, time.Now())
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	res := l.LoadSeries(ctx, "AAPL", market.Intraday)

	require.True(t, res.NoData)
	require.Len(t, fake.CandleCalls(), 1)
}

func newTestLoader(p provider.Provider, now time.Time) *Loader {
	l := NewLoader(NewFetcher(p, nil), newYork)
	l.Now = func() time.Time { return now }
	return l
}

type memRecorder struct {
	fetches  []telemetry.FetchEvent
	searches []telemetry.SearchEvent
}

func (m *memRecorder) RecordFetch(evt *telemetry.FetchEvent) error {
	m.fetches = append(m.fetches, *evt)
	return nil
}

func (m *memRecorder) RecordSearch(evt *telemetry.SearchEvent) error {
	m.searches = append(m.searches, *evt)
	return nil
}

func (m *memRecorder) Close() error { return nil }
