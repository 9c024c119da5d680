package pubsub

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

func TestPubSub_WalletEvent(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *WalletEvent, 1)
	sub := NewSubscriber(client)
	go func() {
		_ = sub.Subscribe(ctx, func(event *WalletEvent) {
			received <- event
		})
	}()

	// 等待订阅建立
	time.Sleep(50 * time.Millisecond)

	pub := NewPublisher(client)
	err := pub.Publish(ctx, &WalletEvent{
		Type:    EventDailyEarning,
		UserID:  7,
		StakeID: 3,
		Amount:  1.5,
		Message: "每日收益",
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, EventDailyEarning, event.Type)
		assert.Equal(t, int64(7), event.UserID)
		assert.Equal(t, int64(3), event.StakeID)
		assert.Equal(t, 1.5, event.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for wallet event")
	}
}

func TestSubscriber_ExitsOnContextCancel(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	sub := NewSubscriber(client)
	go func() {
		done <- sub.Subscribe(ctx, func(*WalletEvent) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not exit after cancel")
	}
}
