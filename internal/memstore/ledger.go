package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/mtlprog/kindroute/internal/domain"
)

func ledgerLockKey(ref domain.EntityRef) string {
	return "ledger:" + ref.String()
}

// MutateLedger runs fn under the entity's lock. The ledger handed to fn has
// no history; activities fn appends are added to the stored history.
func (s *Store) MutateLedger(_ context.Context, ref domain.EntityRef, fn domain.LedgerMutation) (*domain.Ledger, error) {
	unlock := s.lock(ledgerLockKey(ref))
	defer unlock()

	return s.mutateLedger(ref, fn)
}

// SettleAward removes the pending award and applies fn to its entity's ledger
// under the entity's lock. If fn fails the award stays pending.
func (s *Store) SettleAward(_ context.Context, award *domain.PendingAward, fn domain.LedgerMutation) (*domain.Ledger, error) {
	unlock := s.lock(ledgerLockKey(award.Entity))
	defer unlock()

	stored, ok := s.pending.LoadAndDelete(award.ID)
	if !ok {
		return nil, domain.ErrAwardSettled
	}

	ledger, err := s.mutateLedger(award.Entity, fn)
	if err != nil {
		s.pending.Store(stored.ID, stored)
		return nil, err
	}
	return ledger, nil
}

// ListPendingAwards returns up to limit awards recorded before the cutoff,
// oldest first.
func (s *Store) ListPendingAwards(_ context.Context, before time.Time, limit int) ([]*domain.PendingAward, error) {
	var awards []*domain.PendingAward
	s.pending.Range(func(_ string, a *domain.PendingAward) bool {
		if a.CreatedAt.Before(before) {
			awards = append(awards, a.Clone())
		}
		return true
	})

	sort.Slice(awards, func(i, j int) bool {
		if !awards[i].CreatedAt.Equal(awards[j].CreatedAt) {
			return awards[i].CreatedAt.Before(awards[j].CreatedAt)
		}
		return awards[i].ID < awards[j].ID
	})

	if len(awards) > limit {
		awards = awards[:limit]
	}
	return awards, nil
}

func (s *Store) mutateLedger(ref domain.EntityRef, fn domain.LedgerMutation) (*domain.Ledger, error) {
	stored, ok := s.ledgers.Load(ref)
	if !ok {
		now := s.now()
		stored = &domain.Ledger{Entity: ref, CreatedAt: now, UpdatedAt: now}
	}

	working := stored.Clone()
	working.History = nil

	notifications, err := fn(working)
	if err != nil {
		return nil, err
	}

	next := working.Clone()
	next.History = append(stored.Clone().History, working.History...)
	next.UpdatedAt = s.now()
	s.ledgers.Store(ref, next)
	s.enqueue(notifications)

	working.UpdatedAt = next.UpdatedAt
	return working, nil
}

// GetLedger retrieves a ledger with its full history.
func (s *Store) GetLedger(_ context.Context, ref domain.EntityRef) (*domain.Ledger, error) {
	l, ok := s.ledgers.Load(ref)
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return l.Clone(), nil
}

func (s *Store) score(l *domain.Ledger, q domain.ScoreQuery) int64 {
	if q.Since == nil {
		return l.TotalPoints
	}
	var sum int64
	for _, a := range l.History {
		if !a.CreatedAt.Before(*q.Since) {
			sum += a.Points
		}
	}
	return sum
}

func inScope(ref domain.EntityRef, q domain.ScoreQuery) bool {
	return q.Kind == nil || ref.Kind == *q.Kind
}

// Score returns an entity's score for the query period.
func (s *Store) Score(_ context.Context, ref domain.EntityRef, q domain.ScoreQuery) (int64, error) {
	l, ok := s.ledgers.Load(ref)
	if !ok || !inScope(ref, q) {
		return 0, domain.ErrLedgerNotFound
	}
	return s.score(l, q), nil
}

// CountAbove counts entities in scope, other than exclude, scoring strictly
// more than score.
func (s *Store) CountAbove(_ context.Context, q domain.ScoreQuery, score int64, exclude domain.EntityRef) (int, error) {
	count := 0
	s.ledgers.Range(func(ref domain.EntityRef, l *domain.Ledger) bool {
		if ref != exclude && inScope(ref, q) && s.score(l, q) > score {
			count++
		}
		return true
	})
	return count, nil
}

// TopScores returns the best limit entities, score descending with entity id
// and kind as tie breakers.
func (s *Store) TopScores(_ context.Context, q domain.ScoreQuery, limit int) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	s.ledgers.Range(func(ref domain.EntityRef, l *domain.Ledger) bool {
		if inScope(ref, q) {
			entries = append(entries, domain.LeaderboardEntry{Entity: ref, Score: s.score(l, q)})
		}
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Entity.ID != b.Entity.ID {
			return a.Entity.ID < b.Entity.ID
		}
		return a.Entity.Kind < b.Entity.Kind
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
