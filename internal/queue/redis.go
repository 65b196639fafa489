package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKey is the Redis list holding queued work units
	DefaultKey = "cutouts:work"
	// claimTimeout is how long a single Claim call blocks waiting for work
	claimTimeout = 5 * time.Second
)

// RedisQueue is a Queue backed by a Redis list. Enqueue pushes to the
// head, Claim pops from the tail, so units are delivered in FIFO order
// per Redis instance.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// RedisOptions configures the Redis work queue connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisQueue connects to Redis and verifies the connection
func NewRedisQueue(ctx context.Context, opts RedisOptions) (*RedisQueue, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("queue: redis address is empty")
	}
	key := opts.Key
	if key == "" {
		key = DefaultKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("queue: failed to ping redis: %w", err)
	}
	return &RedisQueue{client: client, key: key}, nil
}

// Enqueue appends a work unit referencing the given job
func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.client.LPush(ctx, q.key, jobID).Err(); err != nil {
		return fmt.Errorf("queue: failed to enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Claim blocks up to the claim window and returns one work unit
func (q *RedisQueue) Claim(ctx context.Context) (string, error) {
	res, err := q.client.BRPop(ctx, claimTimeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("queue: failed to claim work: %w", err)
	}
	// BRPop returns [key, value].
	return res[1], nil
}

// Retract removes all queued entries for the given job, best effort
func (q *RedisQueue) Retract(ctx context.Context, jobID string) error {
	if err := q.client.LRem(ctx, q.key, 0, jobID).Err(); err != nil {
		return fmt.Errorf("queue: failed to retract job %s: %w", jobID, err)
	}
	return nil
}

// Close releases the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
