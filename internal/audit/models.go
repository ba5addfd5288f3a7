// Package audit records security-relevant pipeline events: verification
// failures, whitelist rejections, and provider breaker trips. Events carry
// form and field ids only, never answers, identifiers, or hashes.
package audit

import (
	"context"
	"time"
)

// Kind classifies a security event.
type Kind string

const (
	KindHashMismatch       Kind = "hash_mismatch"
	KindMissingHash        Kind = "missing_hash"
	KindWhitelistRejection Kind = "whitelist_rejection"
	KindBreakerOpen        Kind = "breaker_open"
)

// Event is emitted from domain logic when a fail-closed path triggers. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	FormID    string    `json:"formId,omitempty"`
	FieldIDs  []string  `json:"fieldIds,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Store is an append-only sink for events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByForm(ctx context.Context, formID string) ([]Event, error)
}
