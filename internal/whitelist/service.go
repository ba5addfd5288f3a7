package whitelist

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"formgate/pkg/crypto/stringbox"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/sentinel"
)

// Service answers membership questions without ever decrypting the stored
// list. The candidate is encrypted under the record's stored key material
// and nonce so equal plaintexts produce equal ciphertexts; that nonce reuse
// is safe only because this mode is used for comparison, never to protect
// new messages.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validateRecord(record Record) error {
	if record.ID == "" || record.FormID == "" {
		return sentinel.ErrInvalidState
	}
	if record.PublicKey == "" || record.PrivateKey == "" || record.Nonce == "" {
		return sentinel.ErrInvalidState
	}
	// An empty whitelist is modeled as whitelist-disabled on the form, never
	// as a record with no ciphertexts.
	if len(record.CipherTexts) == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

// Create stores a new whitelist built by the form owner. The plaintext
// identifiers are encrypted client-side; only ciphertexts arrive here.
func (s *Service) Create(ctx context.Context, record Record) error {
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.Wrap(err, dErrors.CodeBadRequest, "whitelist record is invalid")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "create whitelist")
	}
	s.logger.Info("whitelist created",
		"formId", record.FormID,
		"size", len(record.CipherTexts))
	return nil
}

// IsWhitelisted reports whether the candidate identifier is on the list.
// An absent record is (false, nil), not an error; forms that do not restrict
// submitters never reach this check in the first place.
func (s *Service) IsWhitelisted(ctx context.Context, whitelistID, candidate string) (bool, error) {
	props, err := s.store.FindEncryptionProperties(ctx, whitelistID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load whitelist encryption properties")
	}

	cipherText, err := stringbox.EncryptComparable(candidate, props.PublicKey, props.PrivateKey, props.Nonce)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "encrypt whitelist candidate")
	}

	cipherTexts, err := s.store.FindCipherTexts(ctx, whitelistID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load whitelist ciphertexts")
	}
	return slices.Contains(cipherTexts, cipherText), nil
}
