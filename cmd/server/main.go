package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockscreener/internal/chart"
	"stockscreener/internal/config"
	"stockscreener/internal/httpx"
	"stockscreener/internal/provider"
	"stockscreener/internal/provider/cache"
	"stockscreener/internal/provider/finnhub"
	"stockscreener/internal/provider/ratelimit"
	"stockscreener/internal/refresh"
	"stockscreener/internal/search"
	"stockscreener/internal/session"
	"stockscreener/internal/stream"
	"stockscreener/internal/telemetry"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Finnhub.APIKey == "" {
		log.Println("warning: FINNHUB_API_KEY not set; every search and chart will come back empty")
	}
	loc, err := cfg.Chart.Location()
	if err != nil {
		log.Fatalf("chart timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := telemetry.Recorder(telemetry.NewNoopRecorder())
	if cfg.Telemetry.SQLitePath != "" {
		sq, err := telemetry.NewSQLiteRecorder(cfg.Telemetry.SQLitePath)
		if err != nil {
			log.Fatalf("telemetry: %v", err)
		}
		rec = sq
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Printf("telemetry close: %v", err)
		}
	}()

	store, closeStore := searchStore(ctx, cfg)
	defer closeStore()
	p := buildProvider(cfg, store)

	loader := chart.NewLoader(chart.NewFetcher(p, rec), loc)
	svc := search.NewService(p, rec)
	hub := stream.NewHub()
	ctrl := session.NewController(loader, svc, hub, cfg.Search.Debounce())
	hub.Commands = ctrl
	go hub.Run(ctx)

	var sched *refresh.Scheduler
	if cfg.Refresh.Cron != "" {
		sched = refresh.NewScheduler(ctx, ctrl, loc)
		if err := sched.Register(cfg.Refresh.Cron); err != nil {
			log.Fatalf("refresh: %v", err)
		}
		sched.Start()
	}

	a := &api{search: svc, loader: loader, ctrl: ctrl}
	root := http.NewServeMux()
	root.HandleFunc("GET /ws", hub.HandleWebSocket)
	root.Handle("/", withAPIHeaders(withGzip(recoverPanic(limitBody(cfg.Server.MaxBodyBytes, a.routes())))))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * cfg.Server.RequestTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop()
	}
	_ = srv.Shutdown(shutdownCtx)
	ctrl.Close()
}

// buildProvider stacks finnhub -> rate limit -> search cache.
func buildProvider(cfg config.Config, store cache.Store) provider.Provider {
	httpClient := httpx.New(cfg.Server.RequestTimeout())
	httpClient.Headers = map[string]string{"Accept": "application/json"}

	var p provider.Provider = finnhub.NewClient(
		cfg.Finnhub.APIKey,
		finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
		finnhub.WithHTTPClient(httpClient),
	)
	p = ratelimit.Wrap(p, cfg.Finnhub.MaxRequestsPerMinute, cfg.Finnhub.Burst, cfg.Finnhub.MinInterval())
	if cfg.Search.CacheTTLSeconds > 0 {
		p = &cache.Provider{P: p, Store: store, TTL: cfg.Search.CacheTTL()}
	}
	return p
}

// searchStore prefers Redis when configured and reachable, else memory.
func searchStore(ctx context.Context, cfg config.Config) (cache.Store, func()) {
	if cfg.Redis.Addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		rs, err := cache.NewRedisStore(pingCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err == nil {
			log.Printf("search cache: redis %s", cfg.Redis.Addr)
			return rs, func() { _ = rs.Close() }
		}
		log.Printf("search cache: %v; using memory", err)
	}
	return cache.NewMemoryStore(cfg.Search.CacheMaxItems), func() {}
}
