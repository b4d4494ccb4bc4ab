package reasoning

import "strings"

// StripFences removes the Markdown code fencing some engine
// configurations wrap around their JSON payload. Pure JSON passes
// through untouched.
func StripFences(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
