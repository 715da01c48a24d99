package search

import (
	"context"
	"sync"
	"time"

	"stockscreener/internal/market"
)

// DefaultDebounce is the quiet period before a search is issued.
const DefaultDebounce = 350 * time.Millisecond

// SearchFunc runs one lookup.
type SearchFunc func(ctx context.Context, query string) []market.Symbol

// DeliverFunc receives results for the latest text. It is called with an
// empty query and no results when the text is cleared. It must not call
// back into the Debouncer.
type DeliverFunc func(query string, results []market.Symbol)

// Debouncer turns a stream of text changes into at most one search per
// quiet interval. Every change bumps a generation; results that come back
// for an older generation are dropped.
type Debouncer struct {
	interval time.Duration
	search   SearchFunc
	deliver  DeliverFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool
}

func NewDebouncer(interval time.Duration, search SearchFunc, deliver DeliverFunc) *Debouncer {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{interval: interval, search: search, deliver: deliver, ctx: ctx, cancel: cancel}
}

// OnTextChanged reschedules the pending search for text. Empty text clears
// the results right away without a lookup.
func (d *Debouncer) OnTextChanged(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++

	if text == "" {
		d.deliver("", []market.Symbol{})
		return
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen, text) })
}

func (d *Debouncer) fire(gen uint64, text string) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	results := d.search(d.ctx, text)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.gen {
		return
	}
	d.deliver(text, results)
}

// Close stops the pending timer and cancels an in-flight lookup.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.cancel()
}
