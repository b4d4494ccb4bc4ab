package models

// Status values the reasoning engine may assign to a reviewed attribute.
// The set is closed; anything else is a schema violation.
const (
	StatusPass = "PASS"
	StatusWarn = "WARN"
	StatusFail = "FAIL"
)

// ValidationEntry is a single attribute verdict within a review.
type ValidationEntry struct {
	Field    string `json:"field"`
	Status   string `json:"status"`
	Expected string `json:"expected"`
	Comment  string `json:"comment"`
}

// Confidence carries the engine's overall confidence, bounded [0,1].
type Confidence struct {
	Overall float64 `json:"overall"`
}

// ReviewResult is the response contract enforced on raw engine output.
// Fields maps recognized attribute names (standard, voltage, conductor
// material/class, csa, insulation material/thickness) to the extracted
// value, or null when the engine could not find one.
type ReviewResult struct {
	Fields      map[string]interface{} `json:"fields"`
	Validation  []ValidationEntry      `json:"validation"`
	Confidence  Confidence             `json:"confidence"`
	Assumptions []string               `json:"assumptions"`
}

// StatusSummary holds derived per-status counts. For an accepted review
// the three counts always sum to len(Validation).
type StatusSummary struct {
	PassCount int `json:"pass_count"`
	WarnCount int `json:"warn_count"`
	FailCount int `json:"fail_count"`
}
