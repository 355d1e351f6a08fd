package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/memstore"
	"github.com/mtlprog/kindroute/internal/service"
)

var errLedgerDown = errors.New("ledger unavailable")

// flakyLedger fails award settlement while failing is set.
type flakyLedger struct {
	*memstore.Store
	failing atomic.Bool
}

func (f *flakyLedger) SettleAward(ctx context.Context, award *domain.PendingAward, fn domain.LedgerMutation) (*domain.Ledger, error) {
	if f.failing.Load() {
		return nil, errLedgerDown
	}
	return f.Store.SettleAward(ctx, award, fn)
}

// PendingAwardTestSuite covers awards that outlive a failed settlement.
type PendingAwardTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *testClock
	store   *memstore.Store
	ledger  *flakyLedger
	scoring *service.ScoringService
	svc     *service.AssignmentService
}

func (s *PendingAwardTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &testClock{now: time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC)}
	s.store = memstore.New(memstore.WithClock(s.clock.Now))
	s.ledger = &flakyLedger{Store: s.store}

	rules := config.DefaultScoring()
	s.scoring = service.NewScoringService(s.ledger, rules.Thresholds(), service.WithClock(s.clock.Now))
	s.svc = service.NewAssignmentService(s.store, s.scoring, rules, service.WithClock(s.clock.Now))
}

func TestPendingAwardTestSuite(t *testing.T) {
	suite.Run(t, new(PendingAwardTestSuite))
}

func (s *PendingAwardTestSuite) accept(candidate string) *domain.Assignment {
	_, as, err := s.svc.CreateTask(s.ctx, service.CreateTaskParams{
		Kind:         domain.TaskKindRequest,
		RequesterID:  "req-1",
		Category:     "transport",
		Description:  "Ride to the pharmacy",
		CandidateIDs: []string{candidate},
	})
	s.Require().NoError(err)

	a, err := s.svc.Respond(s.ctx, as[0].ID, domain.ResponseAccept)
	s.Require().NoError(err)
	return a
}

func (s *PendingAwardTestSuite) pending() []*domain.PendingAward {
	awards, err := s.store.ListPendingAwards(s.ctx, s.clock.Now().Add(time.Hour), 100)
	s.Require().NoError(err)
	return awards
}

// TestTransition_SettlesItsAwards tests that a healthy ledger leaves nothing pending.
func (s *PendingAwardTestSuite) TestTransition_SettlesItsAwards() {
	s.accept("org-a")

	s.Empty(s.pending())
	ledger, err := s.scoring.Ledger(s.ctx, domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-a"})
	s.Require().NoError(err)
	s.Equal(int64(10), ledger.TotalPoints)
}

// TestFailedSettlement_AppliedOnceLater tests that a transition whose award
// could not be applied still commits, and that the award is applied exactly
// once afterwards.
func (s *PendingAwardTestSuite) TestFailedSettlement_AppliedOnceLater() {
	ref := domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-a"}
	s.ledger.failing.Store(true)

	a := s.accept("org-a")
	s.Equal(domain.AssignmentStatusAccepted, a.Status)

	_, err := s.scoring.Ledger(s.ctx, ref)
	s.ErrorIs(err, domain.ErrLedgerNotFound)

	awards := s.pending()
	s.Require().Len(awards, 1)
	s.Equal(ref, awards[0].Entity)
	s.Equal("request_accepted", awards[0].Activity)
	s.Equal(int64(10), awards[0].Points)
	s.Equal(a.ID, awards[0].ReferenceID)

	s.clock.Set(s.clock.Now().Add(2 * time.Minute))
	settled, err := s.scoring.SettlePending(s.ctx, time.Minute, 10)
	s.Require().NoError(err)
	s.Zero(settled)
	s.Len(s.pending(), 1)

	s.ledger.failing.Store(false)

	settled, err = s.scoring.SettlePending(s.ctx, time.Hour, 10)
	s.Require().NoError(err)
	s.Zero(settled, "awards younger than the grace period are left alone")

	settled, err = s.scoring.SettlePending(s.ctx, time.Minute, 10)
	s.Require().NoError(err)
	s.Equal(1, settled)
	s.Empty(s.pending())

	_, err = s.scoring.Settle(s.ctx, awards[0])
	s.ErrorIs(err, domain.ErrAwardSettled)

	settled, err = s.scoring.SettlePending(s.ctx, 0, 10)
	s.Require().NoError(err)
	s.Zero(settled)

	ledger, err := s.scoring.Ledger(s.ctx, ref)
	s.Require().NoError(err)
	s.Equal(int64(10), ledger.TotalPoints)
	s.Require().Len(ledger.History, 1)
	s.Equal(a.ID, ledger.History[0].ReferenceID)
}

// TestSettle_ConcurrentOnce tests that racing settlements apply an award once.
func (s *PendingAwardTestSuite) TestSettle_ConcurrentOnce() {
	s.ledger.failing.Store(true)
	s.accept("org-b")
	awards := s.pending()
	s.Require().Len(awards, 1)
	s.ledger.failing.Store(false)

	var (
		wg      sync.WaitGroup
		applied atomic.Int32
		skipped atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.scoring.Settle(s.ctx, awards[0])
			switch {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, domain.ErrAwardSettled):
				skipped.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), applied.Load())
	s.Equal(int32(7), skipped.Load())

	ledger, err := s.scoring.Ledger(s.ctx, domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-b"})
	s.Require().NoError(err)
	s.Equal(int64(10), ledger.TotalPoints)
}
