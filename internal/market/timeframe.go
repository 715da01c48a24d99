package market

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timeframe is one of the chart windows a user can pick.
type Timeframe int

const (
	Intraday Timeframe = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

// Timeframes lists every window in UI order.
var Timeframes = []Timeframe{Intraday, Weekly, Monthly, Quarterly, Yearly}

// Granularity is the sampling interval of a bar request.
type Granularity int

const (
	FiveMinute Granularity = iota
	FifteenMinute
	SixtyMinute
	Daily
)

// lookback is subtracted from "now" with calendar arithmetic.
type lookback struct {
	Years, Months, Days int
}

type timeframeSpec struct {
	label       string
	name        string
	granularity Granularity
	lookback    lookback
}

// Lookbacks are wider than the label so weekends and holidays near the
// window edge still leave at least one full session in range.
var timeframeTable = map[Timeframe]timeframeSpec{
	Intraday:  {label: "1D", name: "intraday", granularity: FiveMinute, lookback: lookback{Days: 3}},
	Weekly:    {label: "1W", name: "weekly", granularity: FifteenMinute, lookback: lookback{Days: 12}},
	Monthly:   {label: "1M", name: "monthly", granularity: SixtyMinute, lookback: lookback{Days: 45}},
	Quarterly: {label: "3M", name: "quarterly", granularity: Daily, lookback: lookback{Months: 3}},
	Yearly:    {label: "1Y", name: "yearly", granularity: Daily, lookback: lookback{Years: 1}},
}

var granularityTable = map[Granularity]struct {
	resolution string
	cadence    time.Duration
}{
	FiveMinute:    {"5", 5 * time.Minute},
	FifteenMinute: {"15", 15 * time.Minute},
	SixtyMinute:   {"60", time.Hour},
	Daily:         {"D", 24 * time.Hour},
}

func (tf Timeframe) Valid() bool {
	_, ok := timeframeTable[tf]
	return ok
}

// String returns the segmented-control label, e.g. "1D".
func (tf Timeframe) String() string {
	if s, ok := timeframeTable[tf]; ok {
		return s.label
	}
	return fmt.Sprintf("Timeframe(%d)", int(tf))
}

func (tf Timeframe) Granularity() Granularity { return timeframeTable[tf].granularity }

// FallsBackToQuarterly reports whether an empty result for tf should be
// retried at Quarterly.
func (tf Timeframe) FallsBackToQuarterly() bool {
	return tf == Intraday || tf == Weekly || tf == Monthly
}

func (tf Timeframe) MarshalJSON() ([]byte, error) {
	return json.Marshal(tf.String())
}

func (tf *Timeframe) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeframe(s)
	if err != nil {
		return err
	}
	*tf = v
	return nil
}

// ParseTimeframe accepts labels ("1D", "3M") and names ("intraday"),
// case-insensitively.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	for _, tf := range Timeframes {
		spec := timeframeTable[tf]
		if strings.EqualFold(s, spec.label) || strings.EqualFold(s, spec.name) {
			return tf, nil
		}
	}
	return 0, fmt.Errorf("unknown timeframe %q", s)
}

// Resolution is the provider token for the granularity ("5", "15", "60", "D").
func (g Granularity) Resolution() string { return granularityTable[g].resolution }

// Duration is the nominal spacing between consecutive bars.
func (g Granularity) Duration() time.Duration { return granularityTable[g].cadence }

func (g Granularity) String() string {
	if r := g.Resolution(); r != "" {
		return r
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// Window is a resolved bar query range.
type Window struct {
	Granularity Granularity
	From        time.Time
	To          time.Time
}

// Resolve maps tf to its granularity and [now-lookback, now] range.
func Resolve(tf Timeframe, now time.Time) Window {
	spec, ok := timeframeTable[tf]
	if !ok {
		spec = timeframeTable[Yearly]
	}
	lb := spec.lookback
	return Window{
		Granularity: spec.granularity,
		From:        backMonths(now, lb.Years*12+lb.Months).AddDate(0, 0, -lb.Days),
		To:          now,
	}
}

// backMonths moves t back n calendar months, clamping the day to the end of
// the target month (May 31 minus 3 months is Feb 28, not Mar 3).
func backMonths(t time.Time, n int) time.Time {
	if n == 0 {
		return t
	}
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, -n, 0)
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	return first.AddDate(0, 0, min(d, last)-1)
}
