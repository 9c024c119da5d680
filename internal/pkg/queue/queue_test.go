package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestQueue_PushPop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_jobs")
	ctx := context.Background()

	err := q.Push(ctx, &JobMessage{Type: JobVoucherBatch, BatchID: 42})
	require.NoError(t, err)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	msg, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, JobVoucherBatch, msg.Type)
	assert.Equal(t, int64(42), msg.BatchID)

	length, err = q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), length)
}

func TestQueue_FIFO(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_jobs")
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &JobMessage{Type: JobVoucherBatch, BatchID: 1}))
	require.NoError(t, q.Push(ctx, &JobMessage{Type: JobROIDistribution, Day: "2026-08-31"}))

	first, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.BatchID)

	second, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31", second.Day)
}

func TestQueue_PopTimeout(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "empty_jobs")

	msg, err := q.Pop(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
}
