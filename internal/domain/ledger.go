package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Activity is a single timestamped point movement in a ledger.
type Activity struct {
	Label       string
	Points      int64
	ReferenceID string
	CreatedAt   time.Time
}

// Ledger holds an entity's cumulative points, history and badges.
type Ledger struct {
	Entity      EntityRef
	TotalPoints int64
	History     []Activity
	Badges      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasBadge reports whether the badge is already held.
func (l *Ledger) HasBadge(name string) bool {
	return slices.Contains(l.Badges, name)
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.History = slices.Clone(l.History)
	c.Badges = slices.Clone(l.Badges)
	return &c
}

// LedgerMutation modifies a locked ledger and returns the notifications to
// enqueue with it. Stores persist only history entries appended by the mutation.
type LedgerMutation func(ledger *Ledger) ([]*Notification, error)

// PendingAward is a point award stored with the transition that earned it.
// It is applied to the ledger, and removed, in a single ledger mutation.
type PendingAward struct {
	ID          string
	Entity      EntityRef
	Activity    string
	Points      int64
	ReferenceID string
	CreatedAt   time.Time
}

// NewPendingAward creates a pending award with a fresh ID.
func NewPendingAward(entity EntityRef, activity string, points int64, referenceID string, now time.Time) *PendingAward {
	return &PendingAward{
		ID:          uuid.NewString(),
		Entity:      entity,
		Activity:    activity,
		Points:      points,
		ReferenceID: referenceID,
		CreatedAt:   now,
	}
}

// Clone returns a copy of the award.
func (a *PendingAward) Clone() *PendingAward {
	c := *a
	return &c
}

// BadgeThreshold grants Name once TotalPoints reaches MinPoints.
type BadgeThreshold struct {
	Name      string
	MinPoints int64
}

// Period selects how a score is computed for ranking.
type Period string

const (
	PeriodAllTime   Period = "all_time"
	PeriodThisMonth Period = "this_month"
)

// IsValid checks if the period is one of the allowed values.
func (p Period) IsValid() bool {
	return p == PeriodAllTime || p == PeriodThisMonth
}

// ScoreQuery scopes a score computation. A nil Since means all-time totals;
// a nil Kind includes every entity kind.
type ScoreQuery struct {
	Since *time.Time
	Kind  *EntityKind
}

// LeaderboardEntry is one ranked row of a leaderboard.
type LeaderboardEntry struct {
	Position int
	Entity   EntityRef
	Score    int64
}
