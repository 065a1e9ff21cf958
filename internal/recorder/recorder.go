package recorder

import (
	"time"

	"ATHWatch/internal/model"
)

// Snapshot is one stored metrics computation.
type Snapshot struct {
	RecordedAt time.Time
	Metrics    *model.MetricsResult
}

// AlertEvent records a notification sent when spot crossed the adjusted ATH.
type AlertEvent struct {
	Currency    string
	Spot        string
	AdjustedATH string
	PercentToGo string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordMetrics(m *model.MetricsResult) error
	RecordAlert(evt *AlertEvent) error
	Recent(limit int) ([]Snapshot, error)
	Close() error
}
