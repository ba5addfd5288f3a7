package hashstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"formgate/pkg/platform/sentinel"
)

var (
	findHashDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "formgate_hash_record_find_duration_ms",
		Help:    "Latency of hash record lookups in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})
)

const hashRecordKeyPrefix = "hash:record:"

// RedisStore is the production Store: the record's TTL is enforced by the
// key's own expiry, so reaping needs no extra process.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

type RedisStoreOption func(*RedisStore)

func WithRedisClock(now func() time.Time) RedisStoreOption {
	return func(s *RedisStore) { s.now = now }
}

func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func recordRedisKey(pseudonymizedID, formID string) string {
	return hashRecordKeyPrefix + pseudonymizedID + ":" + formID
}

// Save serializes the record and lets the key expire at record.ExpireAt.
// A record already past expiry is treated as a delete.
func (s *RedisStore) Save(ctx context.Context, record Record) error {
	key := recordRedisKey(record.PseudonymizedID, record.FormID)
	ttl := record.ExpireAt.Sub(s.now())
	if ttl <= 0 {
		return s.client.Del(ctx, key).Err()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisStore) Find(ctx context.Context, pseudonymizedID, formID string) (Record, error) {
	start := time.Now()
	defer func() {
		findHashDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := s.client.Get(ctx, recordRedisKey(pseudonymizedID, formID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, err
	}
	// Key expiry timing is backend-dependent, so readers check it too.
	if record.Expired(s.now()) {
		return Record{}, sentinel.ErrNotFound
	}
	return record, nil
}
