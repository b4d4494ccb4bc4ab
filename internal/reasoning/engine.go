package reasoning

import (
	"context"

	"github.com/gridline/design-review-service/internal/prompt"
)

// Engine is the boundary to the external probabilistic reasoning
// service. Implementations return raw output text with any Markdown
// fencing already stripped; structural validation of the payload is
// not their job.
type Engine interface {
	Review(ctx context.Context, promptText string, params prompt.Params) (string, error)
}

// UpstreamError wraps any failure of the external engine: network,
// timeout, credential rejection, or an empty completion. The underlying
// cause is always attached, never swallowed.
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return "reasoning engine failure: " + e.Cause.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}
