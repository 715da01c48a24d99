package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"stockscreener/internal/aggregate"
	"stockscreener/internal/chart"
	"stockscreener/internal/config"
	"stockscreener/internal/httpx"
	"stockscreener/internal/market"
	"stockscreener/internal/provider"
	"stockscreener/internal/provider/finnhub"
	"stockscreener/internal/provider/ratelimit"
	"stockscreener/internal/search"
	"stockscreener/internal/telemetry"
)

type output struct {
	Query   string               `json:"query,omitempty"`
	Symbols []market.Symbol      `json:"symbols,omitempty"`
	Chart   *chart.Result        `json:"chart,omitempty"`
	Summary *aggregate.Summary   `json:"summary,omitempty"`
	Days    []aggregate.DayClose `json:"days,omitempty"`
}

func main() {
	var (
		symbol     string
		timeframe  string
		query      string
		configPath string
		timeout    int
		days       bool
	)
	flag.StringVar(&symbol, "symbol", "", "ticker to chart, e.g. AAPL")
	flag.StringVar(&timeframe, "timeframe", "1D", "1D, 1W, 1M, 3M or 1Y")
	flag.StringVar(&query, "search", "", "symbol search text")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config file (optional)")
	flag.IntVar(&timeout, "timeout", 15, "overall timeout seconds")
	flag.BoolVar(&days, "days", false, "include per-day closes")
	flag.Parse()

	if symbol == "" && query == "" {
		flag.Usage()
		os.Exit(2)
	}
	tf, err := market.ParseTimeframe(timeframe)
	if err != nil {
		log.Fatalf("timeframe: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Finnhub.APIKey == "" {
		log.Println("warning: FINNHUB_API_KEY not set; results will be empty")
	}
	loc, err := cfg.Chart.Location()
	if err != nil {
		log.Fatalf("chart timezone: %v", err)
	}

	httpClient := httpx.New(cfg.Server.RequestTimeout())
	var p provider.Provider = finnhub.NewClient(
		cfg.Finnhub.APIKey,
		finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
		finnhub.WithHTTPClient(httpClient),
	)
	p = ratelimit.Wrap(p, cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst, cfg.Finnhub.MinInterval())

	rec := telemetry.NewNoopRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	var out output
	if query != "" {
		out.Query = query
		out.Symbols = search.NewService(p, rec).Search(ctx, query)
	}
	if symbol != "" {
		res := chart.NewLoader(chart.NewFetcher(p, rec), loc).LoadSeries(ctx, symbol, tf)
		sum := aggregate.Summarize(res.Series)
		out.Chart = &res
		out.Summary = &sum
		if days {
			out.Days = aggregate.ClosesByDay(res.Series, loc)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
