// Package session holds the live ticker/timeframe selection and drives
// chart and search updates onto a single presenter goroutine.
package session

import (
	"sync"

	"stockscreener/internal/market"
)

// Tag identifies one load. A result is applied only while its tag is
// still the newest one issued and its key matches the live selection.
type Tag struct {
	ID        uint64
	Symbol    string
	Timeframe market.Timeframe
}

// Selection is the process-wide "currently selected ticker" slot plus the
// active timeframe. Last write wins.
type Selection struct {
	mu       sync.Mutex
	symbol   market.Symbol
	selected bool
	tf       market.Timeframe
	seq      uint64
}

func NewSelection() *Selection {
	return &Selection{tf: market.Intraday}
}

func (s *Selection) SetSymbol(sym market.Symbol) {
	s.mu.Lock()
	s.symbol = sym
	s.selected = sym.Ticker != ""
	s.mu.Unlock()
}

// Symbol returns the selected ticker and whether one was picked.
func (s *Selection) Symbol() (market.Symbol, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol, s.selected
}

func (s *Selection) Timeframe() market.Timeframe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tf
}

func (s *Selection) SetTimeframe(tf market.Timeframe) {
	s.mu.Lock()
	s.tf = tf
	s.mu.Unlock()
}

// Begin issues a tag for a load of symbol at tf. Any earlier tag stops
// being current.
func (s *Selection) Begin(symbol string, tf market.Timeframe) Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return Tag{ID: s.seq, Symbol: symbol, Timeframe: tf}
}

// Current reports whether tag is the newest load and still matches the
// selected ticker and timeframe.
func (s *Selection) Current(tag Tag) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tag.ID == s.seq && s.selected && tag.Symbol == s.symbol.Ticker && tag.Timeframe == s.tf
}
