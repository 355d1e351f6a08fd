package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/notify"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisDispatcher_Email(t *testing.T) {
	mr, client := newRedis(t)
	d := notify.NewRedisDispatcher(client, "test:email")

	ref := domain.EntityRef{Kind: domain.EntityKindRequester, ID: "req-1"}
	n := domain.NewNotification(ref, domain.ChannelEmail, domain.NotificationBadgeUnlocked,
		"Badge unlocked: Bronze", "Congratulations", "a-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, d.Send(context.Background(), n))

	items, err := mr.List("test:email")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var p notify.Payload
	require.NoError(t, json.Unmarshal([]byte(items[0]), &p))
	assert.Equal(t, n.ID, p.ID)
	assert.Equal(t, "requester:req-1", p.Recipient)
	assert.Equal(t, "badge_unlocked", p.Type)
	assert.Equal(t, "Badge unlocked: Bronze", p.Title)
}

func TestRedisDispatcher_InAppPublishes(t *testing.T) {
	_, client := newRedis(t)
	d := notify.NewRedisDispatcher(client, "test:email")

	ref := domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-a"}
	ctx := context.Background()

	sub := client.Subscribe(ctx, notify.InAppChannel(ref))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := domain.NewNotification(ref, domain.ChannelInApp, domain.NotificationNewTask, "New task", "msg", "a-1", time.Now())
	require.NoError(t, d.Send(ctx, n))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "notifications:organization:org-a", msg.Channel)
		var p notify.Payload
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &p))
		assert.Equal(t, n.ID, p.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestRedisDispatcher_Unreachable(t *testing.T) {
	mr, client := newRedis(t)
	d := notify.NewRedisDispatcher(client, "test:email")
	mr.Close()

	ref := domain.EntityRef{Kind: domain.EntityKindRequester, ID: "req-1"}
	n := domain.NewNotification(ref, domain.ChannelEmail, domain.NotificationNewTask, "t", "m", "x", time.Now())
	assert.Error(t, d.Send(context.Background(), n))
	assert.Error(t, d.HealthCheck(context.Background()))
}
