package market

import "time"

// Symbol is a tradable equity as returned by symbol search.
type Symbol struct {
	Ticker string `json:"symbol"`
	Name   string `json:"name"`
}

// PriceBar is a single OHLCV bar. Time is always UTC.
type PriceBar struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

// Series is an ordered run of bars for one symbol and one resolved timeframe.
// Bars are ascending by time; an empty Series means "no data".
type Series struct {
	Symbol    string     `json:"symbol"`
	Timeframe Timeframe  `json:"timeframe"`
	Bars      []PriceBar `json:"bars"`
}

func (s Series) Empty() bool { return len(s.Bars) == 0 }

func (s Series) Len() int { return len(s.Bars) }

// Last returns the most recent bar. ok is false for an empty series.
func (s Series) Last() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// EmptySeries returns a series with no bars for the given key.
func EmptySeries(symbol string, tf Timeframe) Series {
	return Series{Symbol: symbol, Timeframe: tf, Bars: []PriceBar{}}
}
