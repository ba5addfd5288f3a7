package hashstore

import "context"

// Store persists hash records. Save replaces any existing record for the
// same (pseudonymized id, form) key. Find returns sentinel.ErrNotFound for
// missing or expired records.
type Store interface {
	Save(ctx context.Context, record Record) error
	Find(ctx context.Context, pseudonymizedID, formID string) (Record, error)
}
