package queue

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id, ok := <-ch:
		require.True(t, ok, "channel closed")
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job id")
		return ""
	}
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Publish(ctx, "a"))
	require.NoError(t, q.Publish(ctx, "b"))
	assert.Equal(t, 2, q.Len())

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", receive(t, ch))
	assert.Equal(t, "b", receive(t, ch))

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Publish(ctx, "c"), ErrClosed)

	_, ok := <-ch
	assert.False(t, ok)
}

func TestMemoryQueuePublishHonorsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Publish(context.Background(), "a"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, "b"), context.DeadlineExceeded)
}

func TestMemoryQueueConsumeStopsOnCancel(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("CLIPBRAIN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLIPBRAIN_TEST_REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, "", 0)
	stream := fmt.Sprintf("clipbrain:test:%d", time.Now().UnixNano())
	q, err := NewRedisQueue(client, WithStream(stream), WithConsumer("test"))
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer client.Del(context.Background(), stream)

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, "job-1"))
	assert.Equal(t, "job-1", receive(t, ch))
}
