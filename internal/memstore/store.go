// Package memstore keeps tasks, assignments, ledgers, pending awards and the
// notification outbox in process memory. It honours the same atomicity contract as the
// PostgreSQL repositories: one lock per task group and one per ledger entity.
// Records are copied on read and on write, so callers never share state with
// the store.
//
// The store is meant for development and tests. Outbox records that reached
// delivered or failed are dropped once they are older than the retention
// window, but tasks, ledgers and their locks live as long as the process.
package memstore

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/domain"
)

// Store is an in-memory implementation of the assignment, ledger and outbox stores.
type Store struct {
	tasks       *xsync.Map[string, *domain.Task]
	assignments *xsync.Map[string, *domain.Assignment]
	byTask      *xsync.Map[string, []string]
	ledgers     *xsync.Map[domain.EntityRef, *domain.Ledger]
	pending     *xsync.Map[string, *domain.PendingAward]
	locks       *xsync.Map[string, *sync.Mutex]

	outboxMu        sync.Mutex
	outbox          []*outboxRecord
	outboxIndex     map[string]*outboxRecord
	outboxRetention time.Duration

	now func() time.Time
}

type outboxRecord struct {
	notification *domain.Notification
	lockedUntil  time.Time
	// finalizedAt is set once the record is delivered or has failed for good.
	finalizedAt time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for store-managed timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithOutboxRetention sets how long delivered and failed outbox records stay
// visible before they are pruned.
func WithOutboxRetention(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.outboxRetention = d
		}
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		tasks:       xsync.NewMap[string, *domain.Task](),
		assignments: xsync.NewMap[string, *domain.Assignment](),
		byTask:      xsync.NewMap[string, []string](),
		ledgers:     xsync.NewMap[domain.EntityRef, *domain.Ledger](),
		pending:     xsync.NewMap[string, *domain.PendingAward](),
		locks:       xsync.NewMap[string, *sync.Mutex](),
		outboxIndex: make(map[string]*outboxRecord),
		now:         time.Now,

		outboxRetention: config.DefaultMemoryOutboxRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lock acquires the mutex guarding key and returns its release function.
func (s *Store) lock(key string) func() {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
