package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dialora/dialora/pkg/log"
	"github.com/dialora/dialora/pkg/protocol"
)

// RedisStore keeps conversation context in Redis so every engine instance
// sees the same values. Entries are JSON encoded under
// dialora:ctx:{conversationID}:{key}.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ protocol.ContextStore = (*RedisStore)(nil)

// NewRedisStore connects to the Redis instance named by url
// (redis://[:password@]host:port/db). A ttl of zero keeps entries forever.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger := log.WithModule("contextstore.redis")
	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func contextKey(conversationID, key string) string {
	return fmt.Sprintf("dialora:ctx:%s:%s", conversationID, key)
}

// Get returns the value stored for the conversation under key.
func (s *RedisStore) Get(ctx context.Context, conversationID, key string) (any, bool, error) {
	raw, err := s.client.Get(ctx, contextKey(conversationID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read context key %q: %w", key, err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, fmt.Errorf("failed to decode context key %q: %w", key, err)
	}

	return value, true, nil
}

// Set stores the value for the conversation under key.
func (s *RedisStore) Set(ctx context.Context, conversationID, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode context key %q: %w", key, err)
	}

	if err := s.client.Set(ctx, contextKey(conversationID, key), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write context key %q: %w", key, err)
	}

	return nil
}

// HealthCheck pings Redis.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
