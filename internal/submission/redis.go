package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the part of redis.UniversalClient the store uses.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore shares submissions between console replicas. Entries are JSON
// values expiring after the store TTL.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient builds a client for addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) Save(ctx context.Context, sub Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("submission: encode %s: %w", sub.ID, err)
	}
	if err := s.client.Set(ctx, s.key(sub.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("submission: redis set %s: %w", sub.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Submission, error) {
	var sub Submission
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sub, ErrNotFound
	}
	if err != nil {
		return sub, fmt.Errorf("submission: redis get %s: %w", id, err)
	}
	if err := json.Unmarshal(payload, &sub); err != nil {
		return sub, fmt.Errorf("submission: decode %s: %w", id, err)
	}
	return sub, nil
}

var (
	_ Store       = (*RedisStore)(nil)
	_ Store       = (*MemoryStore)(nil)
	_ RedisClient = (*redis.Client)(nil)
)
