package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/memstore"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func enqueue(t *testing.T, store *memstore.Store, ref domain.EntityRef, at time.Time, count int) []string {
	t.Helper()

	var ids []string
	_, err := store.MutateLedger(context.Background(), ref, func(l *domain.Ledger) ([]*domain.Notification, error) {
		var notes []*domain.Notification
		for i := 0; i < count; i++ {
			n := domain.NewNotification(ref, domain.ChannelInApp, domain.NotificationBadgeUnlocked, "t", "m", "", at)
			ids = append(ids, n.ID)
			notes = append(notes, n)
		}
		return notes, nil
	})
	require.NoError(t, err)
	return ids
}

func TestOutbox_PrunesFinalRecordsAfterRetention(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)}
	store := memstore.New(memstore.WithClock(c.Now), memstore.WithOutboxRetention(time.Hour))
	ref := domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-a"}

	ids := enqueue(t, store, ref, c.now, 3)

	claimed, err := store.ClaimNotifications(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 3)

	require.NoError(t, store.MarkDelivered(ctx, ids[0]))
	require.NoError(t, store.MarkFailed(ctx, ids[1], "bounced", nil))
	retryAt := c.now.Add(2 * time.Hour)
	require.NoError(t, store.MarkFailed(ctx, ids[2], "timeout", &retryAt))

	// Inside the window final records stay visible.
	c.now = c.now.Add(30 * time.Minute)
	_, err = store.ClaimNotifications(ctx, 10, time.Minute)
	require.NoError(t, err)
	list, err := store.ListNotifications(ctx, ref, 10)
	require.NoError(t, err)
	require.Len(t, list, 3)

	c.now = c.now.Add(time.Hour)
	_, err = store.ClaimNotifications(ctx, 10, time.Minute)
	require.NoError(t, err)

	list, err = store.ListNotifications(ctx, ref, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, ids[2], list[0].ID)
	require.Equal(t, domain.NotificationPending, list[0].Status)

	// Pruned ids are unknown and ignored.
	require.NoError(t, store.MarkDelivered(ctx, ids[0]))

	c.now = retryAt
	claimed, err = store.ClaimNotifications(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, ids[2], claimed[0].ID)
	require.Equal(t, 2, claimed[0].Attempts)
}

func TestOutbox_MarkUpdatesOnlyTargetRecord(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)}
	store := memstore.New(memstore.WithClock(c.Now))
	ref := domain.EntityRef{Kind: domain.EntityKindRequester, ID: "req-1"}

	ids := enqueue(t, store, ref, c.now, 2)
	_, err := store.ClaimNotifications(ctx, 10, time.Minute)
	require.NoError(t, err)

	require.NoError(t, store.MarkDelivered(ctx, ids[1]))

	list, err := store.ListNotifications(ctx, ref, 10)
	require.NoError(t, err)
	statuses := map[string]domain.NotificationStatus{}
	for _, n := range list {
		statuses[n.ID] = n.Status
	}
	require.Equal(t, domain.NotificationPending, statuses[ids[0]])
	require.Equal(t, domain.NotificationDelivered, statuses[ids[1]])
}
