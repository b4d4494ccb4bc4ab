// Package review enforces the response contract on raw engine output.
// The reasoning engine is a probabilistic producer; the instructions in
// the prompt are advisory, not binding, so every structural guarantee
// the rest of the system relies on is checked here and nowhere else.
package review

import (
	"encoding/json"
	"fmt"

	"github.com/gridline/design-review-service/internal/models"
)

// SchemaError reports engine output that failed structural validation.
// It is never retried automatically: the same prompt to the same
// non-deterministic producer may simply repeat the malformed shape.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "engine output failed schema validation: " + e.Reason
}

var requiredKeys = []string{"fields", "validation", "confidence", "assumptions"}

// Parse validates raw (already fence-stripped) engine text against the
// response contract. A malformed payload never reaches persistence or
// the caller silently coerced into a valid-looking shape.
func Parse(raw string) (*models.ReviewResult, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			return nil, &SchemaError{Reason: fmt.Sprintf("missing required key %q", k)}
		}
	}

	var result models.ReviewResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("malformed payload: %v", err)}
	}

	for i, entry := range result.Validation {
		if entry.Field == "" {
			return nil, &SchemaError{Reason: fmt.Sprintf("validation[%d] has an empty field name", i)}
		}
		switch entry.Status {
		case models.StatusPass, models.StatusWarn, models.StatusFail:
		default:
			return nil, &SchemaError{Reason: fmt.Sprintf("validation[%d] has status %q outside PASS/WARN/FAIL", i, entry.Status)}
		}
	}

	if result.Confidence.Overall < 0 || result.Confidence.Overall > 1 {
		return nil, &SchemaError{Reason: fmt.Sprintf("confidence.overall %v outside [0,1]", result.Confidence.Overall)}
	}

	return &result, nil
}

// Summarize counts per-status verdicts. The three counts always sum to
// len(entries).
func Summarize(entries []models.ValidationEntry) models.StatusSummary {
	var s models.StatusSummary
	for _, entry := range entries {
		switch entry.Status {
		case models.StatusPass:
			s.PassCount++
		case models.StatusWarn:
			s.WarnCount++
		case models.StatusFail:
			s.FailCount++
		}
	}
	return s
}
