package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelWalletEvents = "wallet_events"
)

// 事件类型
const (
	EventDailyEarning = "daily_earning"
	EventDirectBonus  = "direct_bonus"
	EventStakeCapped  = "stake_capped"
	EventUnstakeReady = "unstake_ready"
	EventVoucherUsed  = "voucher_used"
)

// WalletEvent 推送给前端的钱包事件
type WalletEvent struct {
	Type    string  `json:"type"`
	UserID  int64   `json:"user_id"`
	StakeID int64   `json:"stake_id,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish 发布钱包事件
func (p *Publisher) Publish(ctx context.Context, event *WalletEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return p.client.Publish(ctx, ChannelWalletEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅钱包事件，收到消息后回调 handler，ctx 取消时退出
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*WalletEvent)) error {
	sub := s.client.Subscribe(ctx, ChannelWalletEvents)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event WalletEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			handler(&event)
		}
	}
}
