package telemetry

import "time"

// Reason classifies why a fetch or search produced what it did.
// Callers upstream of chart/search only ever see empty vs non-empty;
// reasons exist for logs and history.
type Reason string

const (
	ReasonOK          Reason = "ok"
	ReasonNoData      Reason = "no_data"
	ReasonRateLimited Reason = "rate_limited"
	ReasonTransport   Reason = "transport"
	ReasonMalformed   Reason = "malformed"
	ReasonCredential  Reason = "credential"
	ReasonStatus      Reason = "status"
	ReasonCanceled    Reason = "canceled"
)

// FetchEvent is one bar request outcome.
type FetchEvent struct {
	Symbol     string
	Resolution string
	From       time.Time
	To         time.Time
	Bars       int
	Reason     Reason
	Elapsed    time.Duration
}

// SearchEvent is one symbol lookup outcome.
type SearchEvent struct {
	Query   string
	Results int
	Reason  Reason
	Elapsed time.Duration
}

// Recorder persists fetch/search outcomes. Implementations must be safe
// for concurrent use.
type Recorder interface {
	RecordFetch(evt *FetchEvent) error
	RecordSearch(evt *SearchEvent) error
	Close() error
}
