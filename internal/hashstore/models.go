// Package hashstore persists one-way hashes of government-verified prefill
// values. It never stores the raw values or the raw respondent identifier:
// values are bcrypt-hashed and the identifier is HMAC-pseudonymized before
// anything touches the store.
package hashstore

import (
	"time"

	"formgate/internal/identity/attr"
)

// Record is one respondent's verified-value hashes for one form. Exactly one
// record exists per (pseudonymized id, form) pair; saves replace it wholesale.
type Record struct {
	PseudonymizedID string                   `json:"pseudonymizedId"`
	FormID          string                   `json:"formId"`
	Fields          map[attr.Internal]string `json:"fields"`
	ExpireAt        time.Time                `json:"expireAt"`
}

// Expired reports whether the record should be treated as absent. Readers
// check this themselves instead of trusting the backend's reaping cadence.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpireAt)
}
