package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/ledgerflow/internal/transaction"
)

// Event is the envelope written to the pub/sub channel.
type Event struct {
	Event       string           `json:"event"`
	Transaction transaction.View `json:"transaction"`
	PublishedAt time.Time        `json:"publishedAt"`
}

// RedisPublisher broadcasts transactions on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	now     func() time.Time
}

// NewRedisPublisher builds a publisher writing to channel.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = EventTransactionUpdate
	}
	return &RedisPublisher{client: client, channel: channel, now: func() time.Time { return time.Now().UTC() }}
}

// Publish encodes the view and sends it on the configured channel.
func (p *RedisPublisher) Publish(ctx context.Context, view transaction.View) error {
	payload, err := json.Marshal(Event{
		Event:       EventTransactionUpdate,
		Transaction: view,
		PublishedAt: p.now(),
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}
