// Package prefill applies a respondent's verified identity attributes onto a
// form's field list. It is a pure transformation with no I/O; persistence of
// the resulting value hashes is the hash store's job.
package prefill

import (
	"formgate/internal/form"
	"formgate/internal/identity/adapter"
)

// Field is a form field with an optional prefilled value. Disabled marks the
// value government-verified and locked against edits.
type Field struct {
	form.Field
	FieldValue string `json:"fieldValue,omitempty"`
	Disabled   bool   `json:"disabled"`
}

// Prefill resolves every identity-bound field against the person data and
// returns a fresh slice; the input fields are never mutated. Fields without
// a binding pass through unchanged.
func Prefill(person *adapter.PersonData, fields []form.Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Field: f}
		if !f.IdentityBound() {
			continue
		}
		value, readOnly := person.FieldValueForAttr(f.Attribute)
		out[i].FieldValue = value
		out[i].Disabled = readOnly
	}
	return out
}
