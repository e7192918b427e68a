package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const settingsHashKey = "streamrec:settings" // HASH field → JSON value

// hashClient is the subset of the Redis API the settings store needs.
type hashClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisSettings keeps settings in one Redis hash, for deployments where
// several servers share a settings source.
type RedisSettings struct {
	log    *zap.Logger
	client hashClient
}

// NewRedisSettings wraps client.
func NewRedisSettings(log *zap.Logger, client hashClient) *RedisSettings {
	return &RedisSettings{
		log:    log.Named("settings"),
		client: client,
	}
}

func (s *RedisSettings) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	raw, err := s.client.HGet(ctx, settingsHashKey, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("hget %s %s: %w", settingsHashKey, key, err)
	}
	if !json.Valid([]byte(raw)) {
		return nil, false, fmt.Errorf("hget %s %s: malformed value", settingsHashKey, key)
	}
	return json.RawMessage(raw), true, nil
}

func (s *RedisSettings) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.HSet(ctx, settingsHashKey, key, string(raw)).Err(); err != nil {
		return fmt.Errorf("hset %s %s: %w", settingsHashKey, key, err)
	}
	return nil
}

func (s *RedisSettings) Delete(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, settingsHashKey, key).Err(); err != nil {
		return fmt.Errorf("hdel %s %s: %w", settingsHashKey, key, err)
	}
	return nil
}

func (s *RedisSettings) All(ctx context.Context) (map[string]json.RawMessage, error) {
	fields, err := s.client.HGetAll(ctx, settingsHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", settingsHashKey, err)
	}
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if !json.Valid([]byte(v)) {
			// Skip malformed field; log and continue.
			s.log.Warn("malformed setting value", zap.String("field", k))
			continue
		}
		out[k] = json.RawMessage(v)
	}
	return out, nil
}
