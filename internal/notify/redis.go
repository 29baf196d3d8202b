package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisQueue pushes notifications as JSON onto a redis list. The push and
// mail workers that drain it live outside this service.
type RedisQueue struct {
	client *redis.Client
	queue  string
}

func NewRedisQueue(ctx context.Context, url, queue string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisQueue{client: client, queue: queue}, nil
}

func NewRedisQueueFromClient(client *redis.Client, queue string) *RedisQueue {
	return &RedisQueue{client: client, queue: queue}
}

func (q *RedisQueue) Dispatch(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := q.client.RPush(ctx, q.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
