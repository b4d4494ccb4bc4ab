package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoInput is returned when a request carries neither structured data
// nor free text.
var ErrNoInput = errors.New("either structured data or free text must be provided")

// Normalize merges structured fields and free text into the canonical
// context sent to the reasoning engine. Structured data comes first,
// then the engineer's notes; when both are present the engine receives
// the union. Two logically equal requests produce byte-identical output
// because encoding/json emits map keys in sorted order.
//
// Field values are forwarded verbatim. Implausible values are the
// engine's job to flag, not ours to reject.
func Normalize(structured map[string]interface{}, freeText string) (string, error) {
	if len(structured) == 0 && freeText == "" {
		return "", ErrNoInput
	}

	var b strings.Builder
	if len(structured) > 0 {
		data, err := json.Marshal(structured)
		if err != nil {
			return "", fmt.Errorf("failed to serialize structured data: %w", err)
		}
		fmt.Fprintf(&b, "Structured Specs: %s\n", data)
	}
	if freeText != "" {
		fmt.Fprintf(&b, "Engineer Notes/Specs: \"%s\"\n", freeText)
	}
	return b.String(), nil
}
