package telemetry

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordFetch(_ *FetchEvent) error   { return nil }
func (n *NoopRecorder) RecordSearch(_ *SearchEvent) error { return nil }
func (n *NoopRecorder) Close() error                      { return nil }
