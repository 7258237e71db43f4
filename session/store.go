package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hupe1980/viewflow/core"
)

// State is the persisted form of a session.
type State struct {
	User  *core.User `json:"user"`
	Token string     `json:"token"`
}

// Store persists the session between process runs.
type Store interface {
	Save(ctx context.Context, s State) error
	Load(ctx context.Context) (State, bool, error)
	Clear(ctx context.Context) error
}

// RedisCmdable is the subset of *redis.Client used by RedisStore.
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Compile-time checks.
var (
	_ RedisCmdable = (*redis.Client)(nil)
	_ Store        = (*RedisStore)(nil)
)

// RedisStore keeps the session as a JSON document under one key.
type RedisStore struct {
	client RedisCmdable
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a store. A zero ttl keeps the key forever.
func NewRedisStore(client RedisCmdable, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = "viewflow:session"
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (State, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("decode session: %w", err)
	}
	return st, true, nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
