// Package httputil centralizes JSON response writing so every handler emits
// the same envelopes and the error-code-to-status mapping is applied in
// exactly one place.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "formgate/pkg/domain-errors"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded error into the JSON error envelope. Internal
// errors omit the description so nothing about the failure leaks to clients;
// client-class errors include it since it describes their own request.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	var e *dErrors.Error
	if status < http.StatusInternalServerError && errors.As(err, &e) && e.Message != "" {
		body["error_description"] = e.Message
	}
	WriteJSON(w, status, body)
}
