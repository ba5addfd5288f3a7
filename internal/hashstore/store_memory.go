package hashstore

import (
	"context"
	"sync"
	"time"

	"formgate/pkg/platform/sentinel"
)

type recordKey struct {
	pseudonymizedID string
	formID          string
}

// InMemoryStore keeps records in a map with read-time expiry checks plus a
// background reaper. Suitable for tests and single-instance deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]Record
	now     func() time.Time
}

type InMemoryOption func(*InMemoryStore)

// WithClock substitutes the time source for expiry tests.
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) { s.now = now }
}

func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		records: make(map[recordKey]Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{record.PseudonymizedID, record.FormID}] = record
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, pseudonymizedID, formID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordKey{pseudonymizedID, formID}]
	if !ok || record.Expired(s.now()) {
		return Record{}, sentinel.ErrNotFound
	}
	return record, nil
}

// Reap drops expired records and returns how many were removed.
func (s *InMemoryStore) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, record := range s.records {
		if record.Expired(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// RunReaper reaps on the given interval until the context is cancelled.
func (s *InMemoryStore) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap()
		}
	}
}
