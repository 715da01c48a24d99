package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
	MaxBodyBytes      int64  `json:"max_body_bytes" yaml:"max_body_bytes"`
}

type Finnhub struct {
	APIKey                string `json:"api_key" yaml:"api_key"`
	BaseURL               string `json:"base_url" yaml:"base_url"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
	Burst                 int    `json:"burst" yaml:"burst"`
}

type Search struct {
	DebounceMS      int `json:"debounce_ms" yaml:"debounce_ms"`
	CacheTTLSeconds int `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	CacheMaxItems   int `json:"cache_max_items" yaml:"cache_max_items"`
}

type Chart struct {
	// Timezone names the calendar used to cut intraday sessions.
	// Empty means the process local zone.
	Timezone string `json:"timezone" yaml:"timezone"`
}

type Refresh struct {
	// Cron is a seconds-enabled cron spec. Empty disables refresh.
	Cron string `json:"cron" yaml:"cron"`
}

type Redis struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

type Telemetry struct {
	// SQLitePath enables the outcome history when set.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`
}

type Config struct {
	Server    Server    `json:"server" yaml:"server"`
	Finnhub   Finnhub   `json:"finnhub" yaml:"finnhub"`
	Search    Search    `json:"search" yaml:"search"`
	Chart     Chart     `json:"chart" yaml:"chart"`
	Refresh   Refresh   `json:"refresh" yaml:"refresh"`
	Redis     Redis     `json:"redis" yaml:"redis"`
	Telemetry Telemetry `json:"telemetry" yaml:"telemetry"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10, MaxBodyBytes: 1 << 16},
		Finnhub: Finnhub{
			BaseURL:              "https://finnhub.io/api/v1",
			MaxRequestsPerMinute: 60,
			Burst:                5,
		},
		Search: Search{
			DebounceMS:      350,
			CacheTTLSeconds: 300,
			CacheMaxItems:   5000,
		},
	}
}

// Load reads config from path: YAML for .yaml/.yml, JSON otherwise. If path
// is empty it tries config.json in the working directory; a missing file
// yields defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := unmarshal(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func unmarshal(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("config: server.port is empty")
	}
	if c.Server.RequestTimeoutSec <= 0 {
		return fmt.Errorf("config: server.request_timeout_sec must be positive, got %d", c.Server.RequestTimeoutSec)
	}
	if c.Finnhub.MaxRequestsPerMinute < 0 || c.Finnhub.MinRequestIntervalSec < 0 || c.Finnhub.Burst < 0 {
		return errors.New("config: finnhub limits must not be negative")
	}
	if c.Search.DebounceMS < 0 || c.Search.CacheTTLSeconds < 0 || c.Search.CacheMaxItems < 0 {
		return errors.New("config: search settings must not be negative")
	}
	if _, err := c.Chart.Location(); err != nil {
		return fmt.Errorf("config: chart.timezone: %w", err)
	}
	return nil
}

// Location resolves Chart.Timezone.
func (c Chart) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (s Server) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

func (f Finnhub) MinInterval() time.Duration {
	return time.Duration(f.MinRequestIntervalSec) * time.Second
}

func (s Search) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

func (s Search) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Finnhub.APIKey = v
	}
	if v := os.Getenv("FINNHUB_BASE_URL"); v != "" {
		cfg.Finnhub.BaseURL = v
	}
	if x, ok := envInt("FINNHUB_MAX_RPM"); ok && x >= 0 {
		cfg.Finnhub.MaxRequestsPerMinute = x
	}
	if x, ok := envInt("FINNHUB_BURST"); ok && x > 0 {
		cfg.Finnhub.Burst = x
	}
	if x, ok := envInt("FINNHUB_MIN_INTERVAL_SEC"); ok && x >= 0 {
		cfg.Finnhub.MinRequestIntervalSec = x
	}
	if x, ok := envInt("SEARCH_DEBOUNCE_MS"); ok && x >= 0 {
		cfg.Search.DebounceMS = x
	}
	if x, ok := envInt("SEARCH_CACHE_TTL_SEC"); ok && x >= 0 {
		cfg.Search.CacheTTLSeconds = x
	}
	if x, ok := envInt("SEARCH_CACHE_MAX_ITEMS"); ok && x > 0 {
		cfg.Search.CacheMaxItems = x
	}
	if v := os.Getenv("CHART_TIMEZONE"); v != "" {
		cfg.Chart.Timezone = v
	}
	if v, ok := os.LookupEnv("REFRESH_CRON"); ok {
		cfg.Refresh.Cron = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Telemetry.SQLitePath = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err != nil {
		return 0, false
	}
	return x, true
}
