package whitelist

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"formgate/pkg/platform/sentinel"
)

// PostgresStore persists whitelist records in a single table with the
// ciphertext list as a TEXT[] column.
//
// Schema:
//
//	CREATE TABLE form_whitelists (
//	    id           TEXT PRIMARY KEY,
//	    form_id      TEXT NOT NULL,
//	    public_key   TEXT NOT NULL,
//	    private_key  TEXT NOT NULL,
//	    nonce        TEXT NOT NULL,
//	    cipher_texts TEXT[] NOT NULL CHECK (cardinality(cipher_texts) > 0)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record Record) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO form_whitelists (id, form_id, public_key, private_key, nonce, cipher_texts)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.FormID, record.PublicKey, record.PrivateKey,
		record.Nonce, pq.Array(record.CipherTexts))
	return err
}

// Find excludes private_key from the projection.
func (s *PostgresStore) Find(ctx context.Context, whitelistID string) (Record, error) {
	var record Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, form_id, public_key, nonce, cipher_texts
		 FROM form_whitelists WHERE id = $1`, whitelistID).
		Scan(&record.ID, &record.FormID, &record.PublicKey, &record.Nonce,
			pq.Array(&record.CipherTexts))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

func (s *PostgresStore) FindEncryptionProperties(ctx context.Context, whitelistID string) (EncryptionProperties, error) {
	var props EncryptionProperties
	err := s.db.QueryRowContext(ctx,
		`SELECT public_key, private_key, nonce
		 FROM form_whitelists WHERE id = $1`, whitelistID).
		Scan(&props.PublicKey, &props.PrivateKey, &props.Nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return EncryptionProperties{}, sentinel.ErrNotFound
	}
	if err != nil {
		return EncryptionProperties{}, err
	}
	return props, nil
}

func (s *PostgresStore) FindCipherTexts(ctx context.Context, whitelistID string) ([]string, error) {
	var cipherTexts []string
	err := s.db.QueryRowContext(ctx,
		`SELECT cipher_texts FROM form_whitelists WHERE id = $1`, whitelistID).
		Scan(pq.Array(&cipherTexts))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cipherTexts, nil
}
