package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"stockscreener/internal/config"
	"stockscreener/internal/market"
)

type httpStatusErr struct {
	code int
	body string
}

func (e *httpStatusErr) Error() string { return fmt.Sprintf("http %d: %s", e.code, e.body) }

type job struct {
	symbol string
	tf     market.Timeframe
}

func main() {
	var (
		symbolsCSV  string
		outPath     string
		cfgPath     string
		concurrency int
		timeoutSec  int
		maxRetries  int
		rpm         int
	)
	flag.StringVar(&symbolsCSV, "symbols", "AAPL", "comma-separated tickers")
	flag.StringVar(&outPath, "out", "candles.json", "output JSON file path")
	flag.StringVar(&cfgPath, "config", "", "path to config file (optional)")
	flag.IntVar(&concurrency, "concurrency", 2, "number of parallel requests")
	flag.IntVar(&timeoutSec, "timeout", 20, "HTTP timeout seconds")
	flag.IntVar(&maxRetries, "retries", 3, "max retries on 429/5xx")
	flag.IntVar(&rpm, "rpm", 30, "max requests per minute (0 = unlimited)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Finnhub.APIKey == "" {
		log.Fatal("FINNHUB_API_KEY missing (set in config file or env)")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal("no symbols given")
	}

	hc := &http.Client{Timeout: time.Duration(timeoutSec) * time.Second}
	now := time.Now()

	var tokenCh <-chan time.Time
	if rpm > 0 {
		t := time.NewTicker(time.Minute / time.Duration(rpm))
		defer t.Stop()
		tokenCh = t.C
	}

	doReq := func(ctx context.Context, j job) (json.RawMessage, error) {
		w := market.Resolve(j.tf, now)
		v := url.Values{}
		v.Set("symbol", j.symbol)
		v.Set("resolution", w.Granularity.Resolution())
		v.Set("from", strconv.FormatInt(w.From.Unix(), 10))
		v.Set("to", strconv.FormatInt(w.To.Unix(), 10))
		v.Set("token", cfg.Finnhub.APIKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Finnhub.BaseURL+"/stock/candle?"+v.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if tokenCh != nil {
			<-tokenCh
		}
		resp, err := hc.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if len(b) > 2<<10 {
				b = b[:2<<10]
			}
			return nil, &httpStatusErr{code: resp.StatusCode, body: string(b)}
		}
		if !json.Valid(b) {
			return nil, errors.New("response is not JSON")
		}
		return b, nil
	}

	fetch := func(ctx context.Context, j job) (json.RawMessage, error) {
		for attempt := 0; ; attempt++ {
			data, err := doReq(ctx, j)
			if err == nil {
				return data, nil
			}
			var hs *httpStatusErr
			if errors.As(err, &hs) && (hs.code == http.StatusTooManyRequests || hs.code >= 500) && attempt < maxRetries {
				time.Sleep(time.Duration(250*(1<<attempt)) * time.Millisecond)
				continue
			}
			return nil, err
		}
	}

	out := make(map[string]map[string]json.RawMessage, len(symbols))
	for _, s := range symbols {
		out[s] = make(map[string]json.RawMessage, len(market.Timeframes))
	}
	var mu sync.Mutex
	jobs := make(chan job, concurrency*2)
	wg := sync.WaitGroup{}

	worker := func() {
		defer wg.Done()
		for j := range jobs {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
			data, err := fetch(ctx, j)
			cancel()
			if err != nil {
				log.Printf("%s %s: %v", j.symbol, j.tf, err)
				continue
			}
			mu.Lock()
			out[j.symbol][j.tf.String()] = data
			mu.Unlock()
		}
	}
	for range concurrency {
		wg.Add(1)
		go worker()
	}
	for _, s := range symbols {
		for _, tf := range market.Timeframes {
			jobs <- job{symbol: s, tf: tf}
		}
	}
	close(jobs)
	wg.Wait()

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		log.Fatalf("write out: %v", err)
	}
	log.Printf("done: wrote %s (%d symbols)", outPath, len(symbols))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
