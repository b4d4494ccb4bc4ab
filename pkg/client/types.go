package client

import "time"

// ValidationRequest represents a design review request sent over NATS.
// Principal identifies the already-authenticated caller; the work-queue
// surface trusts the publisher to have verified it.
type ValidationRequest struct {
	ReqID          string                 `json:"req_id"`
	TraceID        string                 `json:"trace_id,omitempty"`
	Principal      string                 `json:"principal"`
	StructuredData map[string]interface{} `json:"structured_data,omitempty"`
	FreeText       string                 `json:"free_text,omitempty"`
	ReplyTo        string                 `json:"reply_to,omitempty"`
}

// ValidationEntry is one per-parameter verdict in a review.
type ValidationEntry struct {
	Field    string `json:"field"`
	Status   string `json:"status"` // PASS, WARN, FAIL
	Expected string `json:"expected"`
	Comment  string `json:"comment"`
}

// Confidence reports the engine's overall confidence in [0,1].
type Confidence struct {
	Overall float64 `json:"overall"`
}

// ReviewResult is the structured verdict for one design.
type ReviewResult struct {
	Fields      map[string]interface{} `json:"fields"`
	Validation  []ValidationEntry      `json:"validation"`
	Confidence  Confidence             `json:"confidence"`
	Assumptions []string               `json:"assumptions"`
}

// StatusSummary aggregates verdict counts.
type StatusSummary struct {
	PassCount int `json:"pass_count"`
	WarnCount int `json:"warn_count"`
	FailCount int `json:"fail_count"`
}

// ValidationResponse is the envelope returned by the review service.
type ValidationResponse struct {
	ReqID      string        `json:"req_id"`
	ID         string        `json:"id,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	Result     *ReviewResult `json:"result,omitempty"`
	Summary    StatusSummary `json:"summary"`
	DurationMs int64         `json:"duration_ms"`
	Cached     bool          `json:"cached"`
	Error      string        `json:"error,omitempty"`
}

// HealthStatus represents service health information
type HealthStatus struct {
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Version      string    `json:"version"`
	CacheEntries int       `json:"cache_entries"`
	CacheHits    int64     `json:"cache_hits"`
	CacheMisses  int64     `json:"cache_misses"`
}
