package recorder

import "ATHWatch/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordMetrics(_ *model.MetricsResult) error { return nil }
func (n *NoopRecorder) RecordAlert(_ *AlertEvent) error            { return nil }
func (n *NoopRecorder) Recent(_ int) ([]Snapshot, error)           { return nil, nil }
func (n *NoopRecorder) Close() error                               { return nil }
