package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/memstore"
)

func recordAwards(t *testing.T, store *memstore.Store, awards ...*domain.PendingAward) {
	t.Helper()

	ctx := context.Background()
	task := &domain.Task{ID: "task-1", Status: domain.TaskStatusOpen}
	require.NoError(t, store.CreateTask(ctx, task, nil, nil))

	_, err := store.MutateGroup(ctx, task.ID, func(*domain.TaskGroup) (*domain.GroupChange, error) {
		return &domain.GroupChange{Awards: awards}, nil
	})
	require.NoError(t, err)
}

func TestSettleAward_FailedMutationKeepsAward(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)}
	store := memstore.New(memstore.WithClock(c.Now))
	ref := domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-a"}

	later := domain.NewPendingAward(ref, "request_completed", 50, "a-2", c.now.Add(time.Second))
	first := domain.NewPendingAward(ref, "request_accepted", 10, "a-1", c.now)
	recordAwards(t, store, later, first)

	pending, err := store.ListPendingAwards(ctx, c.now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, later.ID, pending[1].ID)

	pending, err = store.ListPendingAwards(ctx, c.now.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	errBoom := errors.New("boom")
	_, err = store.SettleAward(ctx, first, func(*domain.Ledger) ([]*domain.Notification, error) {
		return nil, errBoom
	})
	require.ErrorIs(t, err, errBoom)

	add := func(l *domain.Ledger) ([]*domain.Notification, error) {
		l.TotalPoints += first.Points
		return nil, nil
	}
	ledger, err := store.SettleAward(ctx, first, add)
	require.NoError(t, err)
	require.Equal(t, int64(10), ledger.TotalPoints)

	_, err = store.SettleAward(ctx, first, add)
	require.ErrorIs(t, err, domain.ErrAwardSettled)

	pending, err = store.ListPendingAwards(ctx, c.now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, later.ID, pending[0].ID)
}
