package redisstore

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const suppressionSetKey = "email:unsub:all"

// SuppressionList stores the global unsubscribe set as a Redis set, shared
// by every process instance. Addresses are normalized to lower case before
// membership checks.
type SuppressionList struct {
	rdb *redis.Client
}

func NewSuppressionList(rdb *redis.Client) *SuppressionList {
	return &SuppressionList{rdb: rdb}
}

func (s *SuppressionList) Contains(ctx context.Context, email string) (bool, error) {
	return s.rdb.SIsMember(ctx, suppressionSetKey, normalize(email)).Result()
}

func (s *SuppressionList) Add(ctx context.Context, email string) error {
	return s.rdb.SAdd(ctx, suppressionSetKey, normalize(email)).Err()
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
