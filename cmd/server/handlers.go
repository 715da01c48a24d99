package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"stockscreener/internal/aggregate"
	"stockscreener/internal/chart"
	"stockscreener/internal/market"
	"stockscreener/internal/search"
	"stockscreener/internal/session"
)

type api struct {
	search *search.Service
	loader *chart.Loader
	ctrl   *session.Controller
}

type searchResponse struct {
	Query   string          `json:"query"`
	Symbols []market.Symbol `json:"symbols"`
}

type seriesResponse struct {
	chart.Result
	Summary aggregate.Summary `json:"summary"`
}

type selectBody struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (a *api) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /api/search", a.handleSearch)
	mux.HandleFunc("GET /api/series", a.handleSeries)
	mux.HandleFunc("POST /api/select", a.handleSelect)
	mux.HandleFunc("GET /api/chart", a.handleChart)
	return mux
}

func (a *api) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, searchResponse{Query: strings.TrimSpace(q), Symbols: a.search.Search(r.Context(), q)})
}

func (a *api) handleSeries(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		http.Error(w, "missing symbol query param", http.StatusBadRequest)
		return
	}
	tf, ok := parseTimeframe(w, r.URL.Query().Get("timeframe"), market.Intraday)
	if !ok {
		return
	}
	res := a.loader.LoadSeries(r.Context(), symbol, tf)
	writeJSON(w, http.StatusOK, seriesResponse{Result: res, Summary: aggregate.Summarize(res.Series)})
}

func (a *api) handleSelect(w http.ResponseWriter, r *http.Request) {
	var b selectBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	b.Symbol = strings.TrimSpace(b.Symbol)
	if b.Symbol == "" || strings.Contains(b.Symbol, ".") {
		http.Error(w, "symbol must be a primary-listing ticker", http.StatusBadRequest)
		return
	}
	sym := market.Symbol{Ticker: b.Symbol, Name: strings.TrimSpace(b.Name)}
	a.ctrl.SelectSymbol(sym)
	writeJSON(w, http.StatusOK, sym)
}

func (a *api) handleChart(w http.ResponseWriter, r *http.Request) {
	tf, ok := parseTimeframe(w, r.URL.Query().Get("timeframe"), a.ctrl.Selection.Timeframe())
	if !ok {
		return
	}
	a.ctrl.Selection.SetTimeframe(tf)

	res, err := a.ctrl.Chart(r.Context(), tf)
	if errors.Is(err, session.ErrNoSelection) {
		writeJSON(w, http.StatusOK, seriesResponse{Result: chart.Result{
			Requested: tf,
			Displayed: tf,
			Series:    market.EmptySeries("", tf),
			NoData:    true,
			Message:   session.PickTickerMessage,
		}})
		return
	}
	if res.Displayed != tf {
		a.ctrl.Selection.SetTimeframe(res.Displayed)
	}
	writeJSON(w, http.StatusOK, seriesResponse{Result: res, Summary: aggregate.Summarize(res.Series)})
}

func parseTimeframe(w http.ResponseWriter, s string, def market.Timeframe) (market.Timeframe, bool) {
	if strings.TrimSpace(s) == "" {
		return def, true
	}
	tf, err := market.ParseTimeframe(s)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return tf, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
