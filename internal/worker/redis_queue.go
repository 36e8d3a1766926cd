package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var _ Queue = (*RedisQueue)(nil)

// RedisQueue keeps tasks in a Redis list so they survive a restart of the API process.
type RedisQueue struct {
	client *redis.Client
	key    string
	poll   time.Duration
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, poll: 5 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task types.GenerationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Dequeue polls with BRPOP so a cancelled ctx is noticed within one poll interval.
func (q *RedisQueue) Dequeue(ctx context.Context) (types.GenerationTask, error) {
	for {
		if err := ctx.Err(); err != nil {
			return types.GenerationTask{}, err
		}
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if errors.Is(err, redis.ErrClosed) {
			return types.GenerationTask{}, ErrQueueClosed
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return types.GenerationTask{}, ctxErr
			}
			return types.GenerationTask{}, fmt.Errorf("dequeue task: %w", err)
		}
		// res is [key, value]
		var task types.GenerationTask
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			return types.GenerationTask{}, fmt.Errorf("decode task: %w", err)
		}
		return task, nil
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
