package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"coffeeshop/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Conversation steps.
const (
	stepIdle            = ""
	stepAwaitingAddress = "awaiting_address"
)

// State is the per-chat conversation state kept between updates.
type State struct {
	ChatID      int64              `json:"chat_id"`
	Step        string             `json:"step"`
	Fulfillment domain.Fulfillment `json:"fulfillment,omitempty"`
	LastActive  time.Time          `json:"last_active"`
}

// StateStore persists conversation state. Get returns nil, nil when the chat
// has no state.
type StateStore interface {
	Get(ctx context.Context, chatID int64) (*State, error)
	Save(ctx context.Context, state *State) error
	Clear(ctx context.Context, chatID int64) error
}

// RedisStore keeps conversation state in Redis as JSON.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const defaultStateTTL = 24 * time.Hour

// NewRedisStore connects to the Redis server at url.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisStore{client: redis.NewClient(opt), ttl: ttl}, nil
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (*State, error) {
	data, err := s.client.Get(ctx, stateKey(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get state from Redis: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot state: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, state *State) error {
	state.LastActive = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal bot state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(state.ChatID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save state to Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, stateKey(chatID)).Err()
}

func stateKey(chatID int64) string {
	return "bot_state:" + strconv.FormatInt(chatID, 10)
}
