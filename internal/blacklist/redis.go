package blacklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "blacklist:"

// RedisStore keeps entries as keys with a native expiry, so DeleteBefore
// has nothing to do. Keys are a hash of the token, not the token itself.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to url ("redis://host:6379/0") and pings it.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("blacklist: redis URL is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("blacklist: parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("blacklist: pinging redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Add uses SET NX so the first timestamp wins.
func (r *RedisStore) Add(ctx context.Context, token string, at time.Time) error {
	err := r.client.SetNX(ctx, redisKey(token), at.UnixNano(), r.ttl).Err()
	if err != nil {
		return fmt.Errorf("blacklist: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) AddedAt(ctx context.Context, token string) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, redisKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("blacklist: redis get: %w", err)
	}
	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("blacklist: corrupt entry: %w", err)
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

// DeleteBefore is a no-op; Redis expires the keys itself.
func (r *RedisStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Close releases the client's connections.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func redisKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}
