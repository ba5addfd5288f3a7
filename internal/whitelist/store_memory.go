package whitelist

import (
	"context"
	"sync"

	"formgate/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Create(_ context.Context, record Record) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrInvalidState
	}
	s.records[record.ID] = record
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, whitelistID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[whitelistID]
	if !ok {
		return Record{}, sentinel.ErrNotFound
	}
	record.PrivateKey = ""
	record.CipherTexts = append([]string(nil), record.CipherTexts...)
	return record, nil
}

func (s *InMemoryStore) FindEncryptionProperties(_ context.Context, whitelistID string) (EncryptionProperties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[whitelistID]
	if !ok {
		return EncryptionProperties{}, sentinel.ErrNotFound
	}
	return EncryptionProperties{
		PublicKey:  record.PublicKey,
		PrivateKey: record.PrivateKey,
		Nonce:      record.Nonce,
	}, nil
}

func (s *InMemoryStore) FindCipherTexts(_ context.Context, whitelistID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[whitelistID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]string(nil), record.CipherTexts...), nil
}
