package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lesson:session:"

// RedisStore persists descriptors in redis with a TTL, so an abandoned
// session eventually expires instead of pinning a stale descriptor to the
// course forever.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing redis client. A non-positive ttl stores
// descriptors without expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

func redisKey(courseID string) string {
	return redisKeyPrefix + courseID
}

// Load returns the descriptor stored for courseID.
func (s *RedisStore) Load(ctx context.Context, courseID string) (Descriptor, error) {
	values, err := s.client.HGetAll(ctx, redisKey(courseID)).Result()
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to load session descriptor: %w", err)
	}
	if len(values) == 0 {
		return Descriptor{}, ErrNotFound
	}

	descriptor := Descriptor{
		SessionID: values["session_id"],
		CourseID:  values["course_id"],
		Endpoint:  values["endpoint"],
	}
	if raw, ok := values["created_at"]; ok && raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Descriptor{}, fmt.Errorf("failed to parse stored created_at: %w", err)
		}
		descriptor.CreatedAt = createdAt
	}

	return descriptor, nil
}

// Save stores the descriptor under its course id, refreshing the TTL.
func (s *RedisStore) Save(ctx context.Context, descriptor Descriptor) error {
	key := redisKey(descriptor.CourseID)

	if err := s.client.HSet(ctx, key, map[string]any{
		"session_id": descriptor.SessionID,
		"course_id":  descriptor.CourseID,
		"endpoint":   descriptor.Endpoint,
		"created_at": descriptor.CreatedAt.Format(time.RFC3339Nano),
	}).Err(); err != nil {
		return fmt.Errorf("failed to save session descriptor: %w", err)
	}

	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set session descriptor expiry: %w", err)
		}
	}

	return nil
}

// Delete removes the descriptor stored for courseID.
func (s *RedisStore) Delete(ctx context.Context, courseID string) error {
	if err := s.client.Del(ctx, redisKey(courseID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session descriptor: %w", err)
	}
	return nil
}
