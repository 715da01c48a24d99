// Package aggregate derives chart header figures from a series.
package aggregate

import (
	"sort"
	"time"

	"stockscreener/internal/market"
)

// Summary is the chart header for one series.
type Summary struct {
	Symbol    string    `json:"symbol"`
	Bars      int       `json:"bars"`
	First     float64   `json:"first"`
	Last      float64   `json:"last"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Volume    float64   `json:"volume"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

// Summarize computes open-to-close change, range and total volume.
// First is the open of the first bar, Last the close of the last.
// An empty series yields a zero Summary carrying only the symbol.
func Summarize(s market.Series) Summary {
	sum := Summary{Symbol: s.Symbol, Bars: len(s.Bars)}
	if s.Empty() {
		return sum
	}

	first, last := s.Bars[0], s.Bars[len(s.Bars)-1]
	sum.First = first.Open
	sum.Last = last.Close
	sum.From = first.Time
	sum.To = last.Time
	sum.High = first.High
	sum.Low = first.Low
	for _, b := range s.Bars {
		if b.High > sum.High {
			sum.High = b.High
		}
		if b.Low < sum.Low {
			sum.Low = b.Low
		}
		sum.Volume += b.Volume
	}
	sum.Change = sum.Last - sum.First
	if sum.First != 0 {
		sum.ChangePct = sum.Change / sum.First * 100
	}
	return sum
}

// DayClose is the last bar of one calendar day.
type DayClose struct {
	Day    string    `json:"day"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	At     time.Time `json:"at"`
}

// ClosesByDay collapses bars by calendar day in loc, keeping the newest bar's
// close and summing volume. For equal timestamps, later input wins. Output is
// sorted by day.
func ClosesByDay(s market.Series, loc *time.Location) []DayClose {
	if loc == nil {
		loc = time.Local
	}
	latest := make(map[string]DayClose)
	for _, b := range s.Bars {
		day := b.Time.In(loc).Format(time.DateOnly)
		cur, ok := latest[day]
		if !ok {
			latest[day] = DayClose{Day: day, Close: b.Close, Volume: b.Volume, At: b.Time}
			continue
		}
		cur.Volume += b.Volume
		if !b.Time.Before(cur.At) {
			cur.Close = b.Close
			cur.At = b.Time
		}
		latest[day] = cur
	}

	out := make([]DayClose, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
