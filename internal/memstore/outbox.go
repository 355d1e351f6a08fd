package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/mtlprog/kindroute/internal/domain"
)

func (s *Store) enqueue(notifications []*domain.Notification) {
	if len(notifications) == 0 {
		return
	}

	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	for _, n := range notifications {
		r := &outboxRecord{notification: n.Clone()}
		s.outbox = append(s.outbox, r)
		s.outboxIndex[n.ID] = r
	}
}

// prune drops final records older than the retention window. Callers hold outboxMu.
func (s *Store) prune(now time.Time) {
	cutoff := now.Add(-s.outboxRetention)
	kept := s.outbox[:0]
	for _, r := range s.outbox {
		if !r.finalizedAt.IsZero() && r.finalizedAt.Before(cutoff) {
			delete(s.outboxIndex, r.notification.ID)
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(s.outbox); i++ {
		s.outbox[i] = nil
	}
	s.outbox = kept
}

// ClaimNotifications leases up to limit pending records, oldest first, and
// increments their attempt counters.
func (s *Store) ClaimNotifications(_ context.Context, limit int, lease time.Duration) ([]*domain.Notification, error) {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	now := s.now()
	s.prune(now)

	var claimed []*domain.Notification
	for _, r := range s.outbox {
		if len(claimed) >= limit {
			break
		}
		if r.notification.Status != domain.NotificationPending || r.lockedUntil.After(now) {
			continue
		}
		r.notification.Attempts++
		r.lockedUntil = now.Add(lease)
		claimed = append(claimed, r.notification.Clone())
	}
	return claimed, nil
}

// MarkDelivered records a successful delivery.
func (s *Store) MarkDelivered(_ context.Context, id string) error {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	r, ok := s.outboxIndex[id]
	if !ok {
		return nil
	}
	now := s.now()
	r.finalizedAt = now
	r.notification.Status = domain.NotificationDelivered
	r.notification.DeliveredAt = &now
	r.notification.LastError = nil
	r.lockedUntil = time.Time{}
	return nil
}

// MarkFailed records a failed delivery. A nil retryAt gives up on the record.
func (s *Store) MarkFailed(_ context.Context, id, reason string, retryAt *time.Time) error {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	r, ok := s.outboxIndex[id]
	if !ok {
		return nil
	}
	r.notification.LastError = &reason
	if retryAt == nil {
		r.finalizedAt = s.now()
		r.notification.Status = domain.NotificationFailed
		r.lockedUntil = time.Time{}
		return nil
	}
	r.notification.Status = domain.NotificationPending
	r.lockedUntil = *retryAt
	return nil
}

// ListNotifications returns a recipient's notifications, newest first.
func (s *Store) ListNotifications(_ context.Context, recipient domain.EntityRef, limit int) ([]*domain.Notification, error) {
	s.outboxMu.Lock()
	defer s.outboxMu.Unlock()

	var out []*domain.Notification
	for _, r := range s.outbox {
		if r.notification.Recipient == recipient {
			out = append(out, r.notification.Clone())
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
