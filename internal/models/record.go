package models

import "time"

// HistoryRecord is one persisted review run, owned by a principal.
// Read and delete access is gated on principal equality; the owning
// principal field is the sole authorization boundary.
type HistoryRecord struct {
	ID          string        `json:"id"`
	Principal   string        `json:"principal"`
	InputType   string        `json:"input_type"`
	Input       DesignInput   `json:"original_input"`
	Result      *ReviewResult `json:"result"`
	Summary     StatusSummary `json:"summary"`
	DurationMs  int64         `json:"dur_ms"`
	DisplayName string        `json:"display_name,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// EventLog is one row of the operational event tail.
type EventLog struct {
	Timestamp time.Time `json:"ts"`
	Level     string    `json:"level"`
	Code      string    `json:"code"`
	Msg       string    `json:"msg"`
	Meta      string    `json:"meta,omitempty"`
}
