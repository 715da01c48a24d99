package chart

import (
	"time"

	"stockscreener/internal/market"
)

// RestrictToLatestSession keeps only the bars that fall on the calendar day
// (in loc) of the last bar. An empty series is returned unchanged.
func RestrictToLatestSession(s market.Series, loc *time.Location) market.Series {
	last, ok := s.Last()
	if !ok {
		return s
	}
	if loc == nil {
		loc = time.Local
	}

	y, m, d := last.Time.In(loc).Date()
	kept := make([]market.PriceBar, 0, len(s.Bars))
	for _, b := range s.Bars {
		by, bm, bd := b.Time.In(loc).Date()
		if by == y && bm == m && bd == d {
			kept = append(kept, b)
		}
	}
	s.Bars = kept
	return s
}
