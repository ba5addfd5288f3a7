// Package submission turns raw submitted responses into annotated ones the
// verifier and downstream persistence can trust: every response is matched
// to its field, visibility is computed, answers are validated, and
// identity-derived responses are tagged.
package submission

import (
	"formgate/internal/form"
	"formgate/internal/identity/attr"
)

// ProcessedResponse is one response after annotation. IsUserVerified is set
// by the verifier once the answer's hash has been checked against the
// prefill record.
type ProcessedResponse struct {
	FieldID        string         `json:"_id"`
	FieldType      form.FieldType `json:"fieldType"`
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	IsVisible      bool           `json:"isVisible"`
	IsUserVerified bool           `json:"isUserVerified,omitempty"`
	Attribute      attr.Internal  `json:"myInfoAttr,omitempty"`
}
