package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	// DefaultStream is the Redis stream jobs are published to.
	DefaultStream = "clipbrain:jobs"

	// DefaultGroup is the consumer group shared by workers.
	DefaultGroup = "clipbrain-workers"

	jobField = "job_id"
)

// RedisQueue publishes to a Redis stream and consumes through a consumer
// group so pending jobs survive worker restarts.
type RedisQueue struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	maxLen   int64
	block    time.Duration
	logger   *slog.Logger
}

var _ Queue = (*RedisQueue)(nil)

// RedisOption configures a RedisQueue.
type RedisOption func(*RedisQueue)

// WithStream sets the stream name.
func WithStream(name string) RedisOption {
	return func(q *RedisQueue) {
		q.stream = name
	}
}

// WithGroup sets the consumer group name.
func WithGroup(name string) RedisOption {
	return func(q *RedisQueue) {
		q.group = name
	}
}

// WithConsumer sets this worker's consumer name.
// Default is <hostname>-<pid>.
func WithConsumer(name string) RedisOption {
	return func(q *RedisQueue) {
		q.consumer = name
	}
}

// WithMaxLen caps the stream length approximately. Zero leaves it unbounded.
func WithMaxLen(n int64) RedisOption {
	return func(q *RedisQueue) {
		q.maxLen = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RedisOption {
	return func(q *RedisQueue) {
		q.logger = logger
	}
}

// NewRedisClient constructs a go-redis client.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewRedisQueue creates a queue on client.
func NewRedisQueue(client *redis.Client, opts ...RedisOption) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	host, _ := os.Hostname()
	q := &RedisQueue{
		client:   client,
		stream:   DefaultStream,
		group:    DefaultGroup,
		consumer: fmt.Sprintf("%s-%d", host, os.Getpid()),
		maxLen:   10000,
		block:    5 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.With("component", "queue", "stream", q.stream)
	return q, nil
}

func (q *RedisQueue) Publish(ctx context.Context, jobID string) error {
	args := &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{jobField: jobID},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish job %s: %w", jobID, err)
	}
	return nil
}

// Consume creates the consumer group if needed and delivers ids from it.
// Messages left pending by an earlier run of this consumer are delivered first.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan string, error) {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		// "0" replays this consumer's pending entries, ">" reads new ones.
		cursor := "0"
		for ctx.Err() == nil {
			res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    q.group,
				Consumer: q.consumer,
				Streams:  []string{q.stream, cursor},
				Count:    10,
				Block:    q.block,
			}).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				q.logger.Warn("stream read failed", "err", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			delivered := 0
			for _, stream := range res {
				for _, msg := range stream.Messages {
					delivered++
					id, _ := msg.Values[jobField].(string)
					if id != "" {
						select {
						case out <- id:
						case <-ctx.Done():
							return
						}
					}
					if err := q.client.XAck(ctx, q.stream, q.group, msg.ID).Err(); err != nil {
						q.logger.Warn("ack failed", "message", msg.ID, "err", err)
					}
				}
			}
			if cursor == "0" && delivered == 0 {
				cursor = ">"
			}
		}
	}()
	return out, nil
}

// Close closes the underlying client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
