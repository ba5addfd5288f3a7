//go:build integration

package hashstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"formgate/internal/identity/attr"
	"formgate/pkg/platform/sentinel"
	"formgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	record := Record{
		PseudonymizedID: "pseudo-1",
		FormID:          "form-1",
		Fields:          map[attr.Internal]string{attr.Name: "$2a$04$fakehash"},
		ExpireAt:        time.Now().Add(time.Minute),
	}
	s.Require().NoError(s.store.Save(ctx, record))

	found, err := s.store.Find(ctx, "pseudo-1", "form-1")
	s.Require().NoError(err)
	s.Equal(record.Fields, found.Fields)
}

func (s *RedisStoreSuite) TestFindMissing() {
	_, err := s.store.Find(context.Background(), "pseudo-1", "form-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSaveReplaces() {
	ctx := context.Background()
	first := Record{
		PseudonymizedID: "pseudo-1",
		FormID:          "form-1",
		Fields: map[attr.Internal]string{
			attr.Name:        "$2a$04$hash-a",
			attr.DateOfBirth: "$2a$04$hash-b",
		},
		ExpireAt: time.Now().Add(time.Minute),
	}
	s.Require().NoError(s.store.Save(ctx, first))

	second := first
	second.Fields = map[attr.Internal]string{attr.Name: "$2a$04$hash-c"}
	s.Require().NoError(s.store.Save(ctx, second))

	found, err := s.store.Find(ctx, "pseudo-1", "form-1")
	s.Require().NoError(err)
	s.Equal(second.Fields, found.Fields)
	s.NotContains(found.Fields, attr.DateOfBirth)
}

func (s *RedisStoreSuite) TestExpiry() {
	ctx := context.Background()
	record := Record{
		PseudonymizedID: "pseudo-1",
		FormID:          "form-1",
		Fields:          map[attr.Internal]string{attr.Name: "$2a$04$hash-a"},
		ExpireAt:        time.Now().Add(time.Second),
	}
	s.Require().NoError(s.store.Save(ctx, record))

	s.Require().Eventually(func() bool {
		_, err := s.store.Find(ctx, "pseudo-1", "form-1")
		return err != nil
	}, 5*time.Second, 200*time.Millisecond, "record must become absent at expiry")
}
