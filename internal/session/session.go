// Package session tracks issued refresh tokens in Valkey. Each refresh
// token carries a unique id (jti); a token is only accepted while its id
// is present, and consuming it removes the id so it cannot be replayed.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// keyPrefix namespaces refresh token keys in Valkey to avoid collisions.
	keyPrefix = "refresh:"

	// userIndexPrefix holds the set of live token ids per user.
	userIndexPrefix = "refresh-user:"
)

// Store manages refresh token lifecycle in Valkey.
type Store struct {
	client *redis.Client
}

// NewStore creates a refresh token store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Save records a freshly issued refresh token id for a user. The key
// expires together with the token.
func (s *Store) Save(ctx context.Context, jti string, userID uuid.UUID, ttl time.Duration) error {
	if jti == "" {
		return errors.New("session save: empty token id")
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+jti, userID.String(), ttl)
	pipe.SAdd(ctx, userIndexPrefix+userID.String(), jti)
	pipe.Expire(ctx, userIndexPrefix+userID.String(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

// Consume atomically removes a token id and returns the user it was issued
// to. found is false when the id is unknown, expired or already used.
func (s *Store) Consume(ctx context.Context, jti string) (userID uuid.UUID, found bool, err error) {
	val, err := s.client.GetDel(ctx, keyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("session consume: %w", err)
	}

	userID, err = uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("session consume: corrupt entry: %w", err)
	}
	s.client.SRem(ctx, userIndexPrefix+val, jti)
	return userID, true, nil
}

// Revoke removes a single token id. Unknown ids are not an error.
func (s *Store) Revoke(ctx context.Context, jti string) error {
	_, _, err := s.Consume(ctx, jti)
	return err
}

// RevokeUser removes every live refresh token of a user.
func (s *Store) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	indexKey := userIndexPrefix + userID.String()
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("session revoke user: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, keyPrefix+id)
	}
	keys = append(keys, indexKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session revoke user: %w", err)
	}
	return nil
}
