package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/memstore"
	"github.com/mtlprog/kindroute/internal/notify"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (d *recordingDispatcher) Send(_ context.Context, n *domain.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("smtp down")
	}
	d.sent = append(d.sent, n.ID)
	return nil
}

// seed enqueues notifications through a ledger mutation, the way awards do.
func seed(t *testing.T, store *memstore.Store, clock *fakeClock, count int) domain.EntityRef {
	t.Helper()
	ref := domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-a"}
	_, err := store.MutateLedger(context.Background(), ref, func(_ *domain.Ledger) ([]*domain.Notification, error) {
		var out []*domain.Notification
		for i := 0; i < count; i++ {
			out = append(out, domain.NewNotification(ref, domain.ChannelInApp, domain.NotificationBadgeUnlocked,
				"Badge", "msg", "ref", clock.Now()))
		}
		return out, nil
	})
	require.NoError(t, err)
	return ref
}

func TestWorker_DeliversBatch(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	store := memstore.New(memstore.WithClock(clock.Now))
	ref := seed(t, store, clock, 3)

	d := &recordingDispatcher{}
	w := notify.NewWorker(store, d, notify.WorkerConfig{Batch: 2}, notify.WithClock(clock.Now))

	stats, err := w.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notify.DrainStats{Claimed: 2, Delivered: 2}, stats)

	stats, err = w.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notify.DrainStats{Claimed: 1, Delivered: 1}, stats)

	stats, err = w.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Claimed)

	assert.Len(t, d.sent, 3)

	notes, err := store.ListNotifications(context.Background(), ref, 10)
	require.NoError(t, err)
	for _, n := range notes {
		assert.Equal(t, domain.NotificationDelivered, n.Status)
		assert.NotNil(t, n.DeliveredAt)
		assert.Equal(t, 1, n.Attempts)
	}
}

func TestWorker_RetriesThenFails(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	store := memstore.New(memstore.WithClock(clock.Now))
	ref := seed(t, store, clock, 1)

	d := &recordingDispatcher{fail: true}
	w := notify.NewWorker(store, d, notify.WorkerConfig{
		MaxAttempts: 2,
		Backoff:     time.Minute,
	}, notify.WithClock(clock.Now))

	stats, err := w.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Retried)

	// Backoff keeps the record invisible.
	stats, err = w.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Claimed)

	clock.Advance(2 * time.Minute)
	stats, err = w.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	clock.Advance(time.Hour)
	stats, err = w.DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Claimed)

	notes, err := store.ListNotifications(context.Background(), ref, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationFailed, notes[0].Status)
	assert.Equal(t, 2, notes[0].Attempts)
	require.NotNil(t, notes[0].LastError)
	assert.Equal(t, "smtp down", *notes[0].LastError)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	store := memstore.New(memstore.WithClock(clock.Now))
	seed(t, store, clock, 1)

	d := &recordingDispatcher{}
	w := notify.NewWorker(store, d, notify.WorkerConfig{Interval: 10 * time.Millisecond}, notify.WithClock(clock.Now))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestMultiDispatcher_RoutesByChannel(t *testing.T) {
	inApp := &recordingDispatcher{}
	email := &recordingDispatcher{}
	m := notify.NewMultiDispatcher(map[domain.NotificationChannel]notify.Dispatcher{
		domain.ChannelInApp: inApp,
		domain.ChannelEmail: email,
	}, nil)

	ref := domain.EntityRef{Kind: domain.EntityKindRequester, ID: "r"}
	now := time.Now()
	require.NoError(t, m.Send(context.Background(), domain.NewNotification(ref, domain.ChannelInApp, domain.NotificationNewTask, "t", "m", "x", now)))
	require.NoError(t, m.Send(context.Background(), domain.NewNotification(ref, domain.ChannelEmail, domain.NotificationNewTask, "t", "m", "x", now)))

	assert.Len(t, inApp.sent, 1)
	assert.Len(t, email.sent, 1)

	err := m.Send(context.Background(), domain.NewNotification(ref, "sms", domain.NotificationNewTask, "t", "m", "x", now))
	assert.Error(t, err)
}
