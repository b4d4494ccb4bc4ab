package models

// DesignInput is the raw design description submitted by an engineer.
// At least one of the two parts must be present.
type DesignInput struct {
	StructuredData map[string]interface{} `json:"structured_data,omitempty"`
	FreeText       string                 `json:"free_text,omitempty"`
}

// InputType tags which parts of the input were supplied.
func (d DesignInput) InputType() string {
	switch {
	case len(d.StructuredData) > 0 && d.FreeText != "":
		return "combined"
	case len(d.StructuredData) > 0:
		return "structured"
	default:
		return "free_text"
	}
}

// ValidationRequest is a design review request as it arrives over HTTP
// or NATS. Principal is the authenticated identity owning the run; on
// the HTTP surface it is injected by the auth middleware, on NATS it is
// set by the already-authenticated calling service.
type ValidationRequest struct {
	TraceID   string `json:"trace_id,omitempty"`
	ReqID     string `json:"req_id"`
	Principal string `json:"principal,omitempty"`
	DesignInput
	ReplyTo string `json:"reply_to,omitempty"`
}
