package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mtlprog/kindroute/internal/domain"
)

// Payload is the JSON document published for a notification.
type Payload struct {
	ID          string    `json:"id"`
	Recipient   string    `json:"recipient"`
	Channel     string    `json:"channel"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ReferenceID string    `json:"reference_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPayload converts a notification to its published form.
func NewPayload(n *domain.Notification) Payload {
	return Payload{
		ID:          n.ID,
		Recipient:   n.Recipient.String(),
		Channel:     string(n.Channel),
		Type:        string(n.Type),
		Title:       n.Title,
		Message:     n.Message,
		ReferenceID: n.ReferenceID,
		CreatedAt:   n.CreatedAt,
	}
}

// InAppChannel returns the pub/sub channel a recipient's clients subscribe to.
func InAppChannel(ref domain.EntityRef) string {
	return "notifications:" + string(ref.Kind) + ":" + ref.ID
}

// RedisDispatcher publishes in-app notifications to per-recipient channels
// and pushes emails onto a list consumed by an external mailer.
type RedisDispatcher struct {
	client     *redis.Client
	emailQueue string
}

// NewRedisDispatcher creates a RedisDispatcher.
func NewRedisDispatcher(client *redis.Client, emailQueue string) *RedisDispatcher {
	return &RedisDispatcher{client: client, emailQueue: emailQueue}
}

// Send publishes or enqueues n according to its channel.
func (d *RedisDispatcher) Send(ctx context.Context, n *domain.Notification) error {
	body, err := json.Marshal(NewPayload(n))
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}

	switch n.Channel {
	case domain.ChannelInApp:
		if err := d.client.Publish(ctx, InAppChannel(n.Recipient), body).Err(); err != nil {
			return fmt.Errorf("publish notification %s: %w", n.ID, err)
		}
	case domain.ChannelEmail:
		if err := d.client.LPush(ctx, d.emailQueue, body).Err(); err != nil {
			return fmt.Errorf("enqueue email %s: %w", n.ID, err)
		}
	default:
		return fmt.Errorf("unsupported channel %q", n.Channel)
	}
	return nil
}

// HealthCheck verifies Redis connectivity.
func (d *RedisDispatcher) HealthCheck(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}
