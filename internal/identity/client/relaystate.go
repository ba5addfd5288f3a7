package client

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dErrors "formgate/pkg/domain-errors"
)

// RelayState is the opaque state round-tripped through the identity
// provider's consent flow. It binds the callback to one login attempt and
// one form.
type RelayState struct {
	UUID   string `json:"uuid"`
	FormID string `json:"formId"`
	// CookieDuration is the login cookie lifetime in milliseconds, chosen at
	// redirect time so the callback can honor the form's session window.
	CookieDuration int64 `json:"cookieDuration"`
	// EncodedQuery carries the query string the respondent arrived at the
	// form with. The provider callback has no other way to see it, so it
	// rides through the consent flow inside the state.
	EncodedQuery string `json:"encodedQuery,omitempty"`
}

// NewRelayState mints a relay state for a fresh login attempt.
func NewRelayState(formID, encodedQuery string, cookieDuration time.Duration) RelayState {
	return RelayState{
		UUID:           uuid.NewString(),
		FormID:         formID,
		CookieDuration: cookieDuration.Milliseconds(),
		EncodedQuery:   encodedQuery,
	}
}

// Encode serializes the relay state for the authorise redirect.
func (r RelayState) Encode() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRelayState, "encode relay state")
	}
	return string(raw), nil
}

// ParseRelayState decodes and validates the state echoed back on the consent
// callback. Anything that is not a JSON object carrying a well-formed UUID
// and a form id is rejected, since the value crosses a trust boundary.
func ParseRelayState(raw string) (RelayState, error) {
	var state RelayState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return RelayState{}, dErrors.Wrap(err, dErrors.CodeBadRelayState, "relay state is not valid JSON")
	}
	if _, err := uuid.Parse(state.UUID); err != nil {
		return RelayState{}, dErrors.Wrap(err, dErrors.CodeBadRelayState, "relay state uuid is malformed")
	}
	if state.FormID == "" {
		return RelayState{}, dErrors.New(dErrors.CodeBadRelayState, "relay state is missing the form id")
	}
	return state, nil
}
