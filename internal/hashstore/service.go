package hashstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"formgate/internal/identity/attr"
	"formgate/internal/prefill"
	dErrors "formgate/pkg/domain-errors"
	"formgate/pkg/platform/sentinel"
)

// DefaultTTL bounds how long a prefill's hashes stay verifiable. It tracks
// the identity session window, not the form's lifetime.
const DefaultTTL = 30 * time.Minute

// Service hashes verified prefill values and retrieves them for submission
// checks. The slow hash makes brute-forcing a leaked record impractical.
type Service struct {
	store  Store
	secret []byte
	cost   int
	logger *slog.Logger
}

type Option func(*Service)

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost to stay fast.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService builds the hashing service. secret keys the identifier
// pseudonymization and must stay stable across deployments, or existing
// records become unreachable.
func NewService(store Store, secret []byte, opts ...Option) *Service {
	s := &Service{
		store:  store,
		secret: secret,
		cost:   bcrypt.DefaultCost,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pseudonymize maps the raw respondent identifier to the key the store sees.
// Keyed HMAC rather than a bare hash, so the mapping cannot be precomputed
// from the small national-id space.
func (s *Service) Pseudonymize(respondentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(respondentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Save hashes every prefilled read-only field and upserts the respondent's
// record, replacing any prior one and resetting the expiry. Fields that are
// editable or empty leave no hash. Saving with nothing to hash still
// replaces the record so no stale hashes survive a re-prefill.
func (s *Service) Save(ctx context.Context, respondentID, formID string, fields []prefill.Field, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	hashes := make(map[attr.Internal]string)
	for _, f := range fields {
		if !f.IdentityBound() || !f.Disabled || f.FieldValue == "" {
			continue
		}
		hash, err := HashValue(f.FieldValue, s.cost)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeHashingFailed, "hash prefilled value")
		}
		hashes[f.Attribute] = hash
	}

	record := Record{
		PseudonymizedID: s.Pseudonymize(respondentID),
		FormID:          formID,
		Fields:          hashes,
		ExpireAt:        time.Now().Add(ttl),
	}
	if err := s.store.Save(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save hash record")
	}
	s.logger.Info("saved prefill hashes",
		"formId", formID,
		"fieldCount", len(hashes))
	return nil
}

// Fetch returns the stored hashes, or CodeMissingHash when no live record
// exists. Absence is an error because the caller cannot distinguish "nothing
// was prefilled" from "the session expired" and must fail closed.
func (s *Service) Fetch(ctx context.Context, respondentID, formID string) (map[attr.Internal]string, error) {
	record, err := s.store.Find(ctx, s.Pseudonymize(respondentID), formID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeMissingHash, "no hashes found for this submission")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "fetch hash record")
	}
	return record.Fields, nil
}

// digest collapses a value to a fixed length before bcrypt, which caps its
// input at 72 bytes. Formatted addresses routinely exceed that. Base64 keeps
// the digest free of NUL bytes, which bcrypt treats as terminators.
func digest(value string) []byte {
	sum := sha256.Sum256([]byte(value))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// HashValue produces the stored representation of one verified value.
func HashValue(value string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(digest(value), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareHash reports whether value matches the stored one-way hash. A
// mismatch is a normal false result; any other failure of the primitive is
// returned as an error.
func CompareHash(hash, value string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), digest(value))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
