package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"stockscreener/internal/chart"
	"stockscreener/internal/market"
	"stockscreener/internal/search"
)

// PickTickerMessage is shown when a chart is opened with nothing selected.
const PickTickerMessage = "Pick a ticker from Search first."

var ErrNoSelection = errors.New("session: no ticker selected")

// Presenter renders controller output. Every call happens on the
// controller's loop goroutine.
type Presenter interface {
	ShowSeries(res chart.Result)
	ShowNoData(reason string)
	ShowSymbols(symbols []market.Symbol)
	SelectTimeframe(tf market.Timeframe)
}

// Controller connects the selection slot, the chart loader and the search
// debouncer to a Presenter.
type Controller struct {
	Loader    *chart.Loader
	Selection *Selection

	presenter Presenter
	loop      *Loop
	debouncer *search.Debouncer
	wg        sync.WaitGroup

	// loads outlive the request that started them; cancel ends them on Close.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewController(loader *chart.Loader, svc *search.Service, p Presenter, debounce time.Duration) *Controller {
	c := &Controller{
		Loader:    loader,
		Selection: NewSelection(),
		presenter: p,
		loop:      NewLoop(),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.debouncer = search.NewDebouncer(debounce, svc.Search, c.deliverSymbols)
	return c
}

func (c *Controller) deliverSymbols(_ string, syms []market.Symbol) {
	c.loop.Post(func() { c.presenter.ShowSymbols(syms) })
}

// TextChanged feeds the search field.
func (c *Controller) TextChanged(text string) {
	c.debouncer.OnTextChanged(text)
}

// SelectSymbol writes the selection slot.
func (c *Controller) SelectSymbol(sym market.Symbol) {
	c.Selection.SetSymbol(sym)
}

// OpenChart loads the selected ticker at the active timeframe.
func (c *Controller) OpenChart(ctx context.Context) {
	sym, ok := c.Selection.Symbol()
	if !ok {
		c.loop.Post(func() { c.presenter.ShowNoData(PickTickerMessage) })
		return
	}
	c.start(ctx, sym.Ticker, c.Selection.Timeframe())
}

// ChangeTimeframe switches the active timeframe and reloads.
func (c *Controller) ChangeTimeframe(ctx context.Context, tf market.Timeframe) {
	c.Selection.SetTimeframe(tf)
	c.OpenChart(ctx)
}

// Reload refreshes the chart if a ticker is selected. It is silent otherwise.
func (c *Controller) Reload(ctx context.Context) {
	sym, ok := c.Selection.Symbol()
	if !ok {
		return
	}
	c.start(ctx, sym.Ticker, c.Selection.Timeframe())
}

// start loads on the controller's context. The caller's ctx only decides
// whether the load starts; a client that goes away mid-load must not blank
// the chart other clients are watching.
func (c *Controller) start(ctx context.Context, symbol string, tf market.Timeframe) {
	if ctx.Err() != nil || c.ctx.Err() != nil {
		return
	}
	tag := c.Selection.Begin(symbol, tf)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := c.Loader.LoadSeries(c.ctx, symbol, tf)
		c.loop.Post(func() { c.apply(tag, res) })
	}()
}

func (c *Controller) apply(tag Tag, res chart.Result) {
	if !c.Selection.Current(tag) {
		log.Printf("chart %s %s: stale result dropped (id=%d)", tag.Symbol, tag.Timeframe, tag.ID)
		return
	}
	if c.ctx.Err() != nil {
		return
	}
	if res.NoData {
		c.presenter.ShowNoData(res.Message)
		return
	}
	if res.Displayed != res.Requested {
		c.Selection.SetTimeframe(res.Displayed)
		c.presenter.SelectTimeframe(res.Displayed)
	}
	c.presenter.ShowSeries(res)
}

// Chart loads the selected ticker at tf and returns the result directly,
// without going through the presenter.
func (c *Controller) Chart(ctx context.Context, tf market.Timeframe) (chart.Result, error) {
	sym, ok := c.Selection.Symbol()
	if !ok {
		return chart.Result{}, ErrNoSelection
	}
	return c.Loader.LoadSeries(ctx, sym.Ticker, tf), nil
}

// Close stops the debouncer, cancels in-flight loads and drains the loop.
func (c *Controller) Close() {
	c.debouncer.Close()
	c.cancel()
	c.wg.Wait()
	c.loop.Close()
}
