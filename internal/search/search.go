package search

import (
	"context"
	"log"
	"strings"
	"time"

	"stockscreener/internal/market"
	"stockscreener/internal/provider"
	"stockscreener/internal/telemetry"
)

// CommonStock is the instrument type kept by Search.
const CommonStock = "Common Stock"

// Service looks up tradable common stocks.
type Service struct {
	P        provider.Provider
	Recorder telemetry.Recorder
}

func NewService(p provider.Provider, rec telemetry.Recorder) *Service {
	if rec == nil {
		rec = telemetry.NewNoopRecorder()
	}
	return &Service{P: p, Recorder: rec}
}

// Search returns primary-listing common stocks matching query.
// Provider failures of any kind yield an empty list.
func (s *Service) Search(ctx context.Context, query string) []market.Symbol {
	query = strings.TrimSpace(query)
	if query == "" {
		return []market.Symbol{}
	}

	start := time.Now()
	recs, err := s.P.SearchSymbols(ctx, query)
	reason := telemetry.Classify(err)
	out := []market.Symbol{}
	if err != nil {
		log.Printf("search %q: %v", query, err)
	} else {
		out = Filter(recs)
		if len(out) == 0 {
			reason = telemetry.ReasonNoData
		}
	}

	if err := s.Recorder.RecordSearch(&telemetry.SearchEvent{
		Query:   query,
		Results: len(out),
		Reason:  reason,
		Elapsed: time.Since(start),
	}); err != nil {
		log.Printf("record search: %v", err)
	}
	return out
}

// Filter keeps common stocks whose ticker has no "." (which marks foreign
// listings and share classes) and drops duplicate ticker+name pairs.
func Filter(recs []provider.SymbolRecord) []market.Symbol {
	out := make([]market.Symbol, 0, len(recs))
	seen := make(map[market.Symbol]struct{}, len(recs))
	for _, r := range recs {
		if r.Symbol == "" || r.Type != CommonStock || strings.Contains(r.Symbol, ".") {
			continue
		}
		sym := market.Symbol{Ticker: r.Symbol, Name: strings.TrimSpace(r.Description)}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
