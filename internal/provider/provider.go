package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SymbolRecord is one raw item from a symbol lookup.
type SymbolRecord struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Type          string `json:"type"`
	Description   string `json:"description"`
}

// CandleQuery asks for bars of one symbol at one resolution.
type CandleQuery struct {
	Symbol     string
	Resolution string
	From       time.Time
	To         time.Time
}

// CandleResponse mirrors the provider's parallel-array payload.
// A nil slice means the field was absent from the response.
type CandleResponse struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
}

// Provider is the remote data source for symbol lookup and bar data.
type Provider interface {
	Name() string
	SearchSymbols(ctx context.Context, query string) ([]SymbolRecord, error)
	Candles(ctx context.Context, q CandleQuery) (*CandleResponse, error)
}

var (
	ErrRateLimited       = errors.New("rate limited")
	ErrMissingCredential = errors.New("missing api key")
	ErrUnauthorized      = errors.New("unauthorized")
)

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status code: %d", e.Code) }
