package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Key layout written by the main application:
//   user:consent:<userID>  -> "1" | "0"  (marketing consent)
//   user:email:<address>   -> userID     (identity cache)

func consentKey(userID string) string { return "user:consent:" + userID }
func identityKey(email string) string { return "user:email:" + normalize(email) }

// ConsentStore reads marketing-consent records from the shared store and
// records consent changes (marketing-scope unsubscribes flip consent off).
type ConsentStore struct {
	rdb *redis.Client
}

func NewConsentStore(rdb *redis.Client) *ConsentStore {
	return &ConsentStore{rdb: rdb}
}

func (s *ConsentStore) IsMarketingConsented(ctx context.Context, userID string) (bool, error) {
	v, err := s.rdb.Get(ctx, consentKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *ConsentStore) RecordConsentChange(ctx context.Context, userID string, granted bool) error {
	v := "0"
	if granted {
		v = "1"
	}
	return s.rdb.Set(ctx, consentKey(userID), v, 0).Err()
}

// IdentityResolver maps recipient addresses to user ids via the identity
// cache the application maintains alongside its user store.
type IdentityResolver struct {
	rdb *redis.Client
}

func NewIdentityResolver(rdb *redis.Client) *IdentityResolver {
	return &IdentityResolver{rdb: rdb}
}

func (r *IdentityResolver) UserIDForEmail(ctx context.Context, email string) (string, error) {
	v, err := r.rdb.Get(ctx, identityKey(email)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
