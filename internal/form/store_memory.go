package form

import (
	"context"
	"sync"

	"formgate/pkg/platform/sentinel"
)

// InMemoryStore is a Lookup backed by a map, used in tests and local
// development where the form documents live elsewhere.
type InMemoryStore struct {
	mu    sync.RWMutex
	forms map[string]*Form
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{forms: make(map[string]*Form)}
}

func (s *InMemoryStore) Put(f *Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[f.ID] = f
}

func (s *InMemoryStore) FindByID(_ context.Context, formID string) (*Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forms[formID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *f
	copied.Fields = append([]Field(nil), f.Fields...)
	return &copied, nil
}
