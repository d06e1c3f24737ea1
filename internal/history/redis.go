package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "history:"

// RedisBackend stores each session's serialized history under a single key.
// Keys carry no TTL: sessions are never deleted automatically.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing Redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Load implements Backend with the same missing/empty/corrupt semantics as
// the file backend.
func (b *RedisBackend) Load(ctx context.Context, sessionID string) ([]Message, error) {
	val, err := b.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history key: %w", err)
	}
	if strings.TrimSpace(val) == "" {
		return nil, nil
	}

	var messages []Message
	if err := json.Unmarshal([]byte(val), &messages); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", ErrCorruptHistory, sessionID, err)
	}
	return messages, nil
}

// Write implements Backend.
func (b *RedisBackend) Write(ctx context.Context, sessionID string, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("serialize history: %w", err)
	}
	if err := b.client.Set(ctx, redisKeyPrefix+sessionID, data, 0).Err(); err != nil {
		return fmt.Errorf("write history key: %w", err)
	}
	return nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
