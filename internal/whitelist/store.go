package whitelist

import "context"

// Store persists whitelist records. Find and FindCipherTexts never return
// the private key; FindEncryptionProperties is the only read that does.
// All reads return sentinel.ErrNotFound for an unknown id.
type Store interface {
	Create(ctx context.Context, record Record) error
	Find(ctx context.Context, whitelistID string) (Record, error)
	FindEncryptionProperties(ctx context.Context, whitelistID string) (EncryptionProperties, error)
	FindCipherTexts(ctx context.Context, whitelistID string) ([]string, error)
}
