package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"account_service/internal/storage"
)

// Repo is the transient key-value store backing one-time codes.
type Repo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*Repo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Repo{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client) *Repo {
	return &Repo{client: client}
}

// SetIfAbsent stores key -> value with the given TTL only if the key does
// not exist yet. Returns true if the value was stored.
func (r *Repo) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	const op = "storage.redis.SetIfAbsent"

	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

func (r *Repo) Get(ctx context.Context, key string) (string, error) {
	const op = "storage.redis.Get"

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrCodeNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return val, nil
}

// GetDel atomically reads and removes a key, so a value can be consumed
// exactly once even under concurrent callers.
func (r *Repo) GetDel(ctx context.Context, key string) (string, error) {
	const op = "storage.redis.GetDel"

	val, err := r.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrCodeNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return val, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (r *Repo) Delete(ctx context.Context, key string) error {
	const op = "storage.redis.Delete"

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Repo) Exists(ctx context.Context, key string) (bool, error) {
	const op = "storage.redis.Exists"

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (r *Repo) Close() {
	r.client.Close()
}
