// Package redisstore keeps the refresh-token blocklist in Redis. Entries
// carry a TTL equal to the longest possible token lifetime, so the set never
// grows past the working window and expired tokens fall out on their own.
package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"tasklane.org/internal/auth"
)

const keyPrefix = "tasklane:blocked:"

// Blocklist implements auth.TokenBlocklist on a Redis client.
type Blocklist struct {
	client *redis.Client
}

// NewBlocklist connects using a redis:// URL and verifies the connection.
func NewBlocklist(ctx context.Context, url string) (*Blocklist, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Blocklist{client: client}, nil
}

// NewBlocklistWithClient wraps an existing client (used by tests).
func NewBlocklistWithClient(client *redis.Client) *Blocklist {
	return &Blocklist{client: client}
}

// Close releases the underlying connection pool.
func (b *Blocklist) Close() error { return b.client.Close() }

// Ping reports store health for the readiness probe.
func (b *Blocklist) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrStoreUnavailable, err)
	}
	return nil
}

// Tokens are keyed by their SHA-256 digest so raw JWTs never land in Redis.
func blockKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Block records the token for ttl. A token already present reports
// auth.ErrAlreadyExists and leaves the original expiry untouched.
func (b *Blocklist) Block(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("redisstore: ttl must be positive")
	}
	ok, err := b.client.SetNX(ctx, blockKey(token), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: block token: %v", auth.ErrStoreUnavailable, err)
	}
	if !ok {
		return auth.ErrAlreadyExists
	}
	return nil
}

// Contains reports whether the token is currently blocked.
func (b *Blocklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := b.client.Exists(ctx, blockKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: check token: %v", auth.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
