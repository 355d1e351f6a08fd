package repository_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/database"
	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/repository"
	"github.com/mtlprog/kindroute/internal/service"
)

// RepositoryTestSuite runs the services against PostgreSQL.
type RepositoryTestSuite struct {
	suite.Suite
	db          *database.DB
	pool        *pgxpool.Pool
	tasks       *repository.TaskRepository
	ledgers     *repository.LedgerRepository
	outbox      *repository.OutboxRepository
	scoring     *service.ScoringService
	assignments *service.AssignmentService
}

func (s *RepositoryTestSuite) SetupSuite() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		s.T().Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, database.Options{})
	s.Require().NoError(err)
	s.db = db
	s.pool = db.Pool()

	_, err = database.RunMigrations(ctx, s.pool)
	s.Require().NoError(err)

	s.tasks = repository.NewTaskRepository(s.pool)
	s.ledgers = repository.NewLedgerRepository(s.pool)
	s.outbox = repository.NewOutboxRepository(s.pool)

	rules := config.DefaultScoring()
	s.scoring = service.NewScoringService(s.ledgers, rules.Thresholds())
	s.assignments = service.NewAssignmentService(s.tasks, s.scoring, rules)
}

func (s *RepositoryTestSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(),
		"TRUNCATE tasks, assignments, ledgers, ledger_activities, notification_outbox, pending_awards CASCADE")
	s.Require().NoError(err)
}

func (s *RepositoryTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) createTask(candidates ...string) (*domain.Task, []*domain.Assignment) {
	task, list, err := s.assignments.CreateTask(context.Background(), service.CreateTaskParams{
		Kind:         domain.TaskKindRequest,
		RequesterID:  "req-1",
		Category:     "transport",
		Description:  "Ride to the clinic",
		CandidateIDs: candidates,
	})
	s.Require().NoError(err)
	return task, list
}

func details() domain.ScheduleDetails {
	return domain.ScheduleDetails{
		VolunteerName:    "Ari",
		VolunteerContact: "+1 555 0100",
		Date:             "2026-06-01",
		Time:             "09:15",
	}
}

func (s *RepositoryTestSuite) TestCreateTask_PersistsGroupAndOutbox() {
	ctx := context.Background()
	task, list := s.createTask("org-a", "org-b", "org-c")

	stored, err := s.tasks.GetTask(ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusOpen, stored.Status)
	s.Equal([]string{"org-a", "org-b", "org-c"}, stored.CandidateIDs)

	got, err := s.tasks.ListAssignments(ctx, domain.AssignmentFilter{TaskID: task.ID})
	s.Require().NoError(err)
	s.Len(got, len(list))

	notes, err := s.outbox.ListNotifications(ctx, domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-b"}, 10)
	s.Require().NoError(err)
	s.Require().Len(notes, 1)
	s.Equal(domain.NotificationNewTask, notes[0].Type)
}

func (s *RepositoryTestSuite) TestGet_NotFound() {
	ctx := context.Background()

	_, err := s.tasks.GetTask(ctx, "0b6c2c53-4d9a-4a57-9bd1-d1b8b8a0e6a7")
	s.ErrorIs(err, domain.ErrTaskNotFound)

	_, err = s.tasks.GetAssignment(ctx, "0b6c2c53-4d9a-4a57-9bd1-d1b8b8a0e6a7")
	s.ErrorIs(err, domain.ErrAssignmentNotFound)

	_, err = s.ledgers.GetLedger(ctx, domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "nobody"})
	s.ErrorIs(err, domain.ErrLedgerNotFound)
}

func (s *RepositoryTestSuite) TestSchedule_CancelsSiblings() {
	ctx := context.Background()
	task, list := s.createTask("org-a", "org-b", "org-c")

	res, err := s.assignments.Schedule(ctx, list[1].ID, details())
	s.Require().NoError(err)
	s.Len(res.Cancelled, 2)

	got, err := s.tasks.ListAssignments(ctx, domain.AssignmentFilter{TaskID: task.ID})
	s.Require().NoError(err)
	for _, a := range got {
		if a.ID == list[1].ID {
			s.Equal(domain.AssignmentStatusScheduled, a.Status)
			s.Require().NotNil(a.Schedule)
			s.Equal("09:15", a.Schedule.Time)
			continue
		}
		s.Equal(domain.AssignmentStatusCancelled, a.Status)
	}

	stored, err := s.tasks.GetTask(ctx, task.ID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusInProgress, stored.Status)
}

func (s *RepositoryTestSuite) TestSchedule_ConcurrentSingleCommit() {
	ctx := context.Background()
	task, list := s.createTask("org-a", "org-b", "org-c")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for _, a := range list {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.assignments.Schedule(ctx, id, details())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			s.ErrorIs(err, domain.ErrConflict)
			conflicts++
		}(a.ID)
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(2, conflicts)

	scheduled, err := s.tasks.ListAssignments(ctx, domain.AssignmentFilter{
		TaskID:   task.ID,
		Statuses: []domain.AssignmentStatus{domain.AssignmentStatusScheduled, domain.AssignmentStatusCompleted},
	})
	s.Require().NoError(err)
	s.Len(scheduled, 1)
}

func (s *RepositoryTestSuite) TestAward_ConcurrentBadgeOnce() {
	ctx := context.Background()
	ref := domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-a"}

	_, err := s.scoring.Award(ctx, ref, "seed", 90, "")
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.scoring.Award(ctx, ref, "tick", 10, "")
			s.NoError(err)
		}()
	}
	wg.Wait()

	ledger, err := s.ledgers.GetLedger(ctx, ref)
	s.Require().NoError(err)
	s.Equal(int64(170), ledger.TotalPoints)
	s.Equal([]string{"Bronze"}, ledger.Badges)
	s.Len(ledger.History, 9)

	notes, err := s.outbox.ListNotifications(ctx, ref, 50)
	s.Require().NoError(err)
	badges := 0
	for _, n := range notes {
		if n.Type == domain.NotificationBadgeUnlocked {
			badges++
		}
	}
	s.Equal(2, badges)
}

func (s *RepositoryTestSuite) TestRankAndLeaderboard() {
	ctx := context.Background()
	org := func(id string) domain.EntityRef {
		return domain.EntityRef{Kind: domain.EntityKindOrganization, ID: id}
	}
	req := domain.EntityRef{Kind: domain.EntityKindRequester, ID: "r"}

	for id, pts := range map[string]int64{"a": 40, "b": 70, "c": 70} {
		_, err := s.scoring.Award(ctx, org(id), "x", pts, "")
		s.Require().NoError(err)
	}
	_, err := s.scoring.Award(ctx, req, "x", 100, "")
	s.Require().NoError(err)

	st, err := s.scoring.Rank(ctx, org("a"), domain.PeriodAllTime, nil)
	s.Require().NoError(err)
	s.Equal(4, st.Rank)

	st, err = s.scoring.Rank(ctx, org("c"), domain.PeriodThisMonth, nil)
	s.Require().NoError(err)
	s.Equal(int64(70), st.Score)
	s.Equal(2, st.Rank)

	kind := domain.EntityKindOrganization
	st, err = s.scoring.Rank(ctx, org("c"), domain.PeriodThisMonth, &kind)
	s.Require().NoError(err)
	s.Equal(1, st.Rank)

	top, err := s.scoring.Leaderboard(ctx, domain.PeriodAllTime, 3, nil)
	s.Require().NoError(err)
	s.Require().Len(top, 3)
	s.Equal(req, top[0].Entity)
	s.Equal("b", top[1].Entity.ID)
	s.Equal("c", top[2].Entity.ID)
	s.Equal(3, top[2].Position)
}

func (s *RepositoryTestSuite) TestOutbox_ClaimLeaseAndRetry() {
	ctx := context.Background()
	s.createTask("org-a", "org-b")

	claimed, err := s.outbox.ClaimNotifications(ctx, 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(claimed, 2)
	s.Equal(1, claimed[0].Attempts)

	again, err := s.outbox.ClaimNotifications(ctx, 10, time.Minute)
	s.Require().NoError(err)
	s.Empty(again)

	s.Require().NoError(s.outbox.MarkDelivered(ctx, claimed[0].ID))
	past := time.Now().Add(-time.Second)
	s.Require().NoError(s.outbox.MarkFailed(ctx, claimed[1].ID, "smtp down", &past))

	retry, err := s.outbox.ClaimNotifications(ctx, 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(retry, 1)
	s.Equal(claimed[1].ID, retry[0].ID)
	s.Equal(2, retry[0].Attempts)

	s.Require().NoError(s.outbox.MarkFailed(ctx, retry[0].ID, "smtp down", nil))
	none, err := s.outbox.ClaimNotifications(ctx, 10, time.Minute)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *RepositoryTestSuite) TestOutbox_ClaimOldestFirst() {
	ctx := context.Background()
	for _, candidate := range []string{"org-c", "org-a", "org-b"} {
		s.createTask(candidate)
		time.Sleep(5 * time.Millisecond)
	}

	claimed, err := s.outbox.ClaimNotifications(ctx, 2, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(claimed, 2)
	s.Equal("org-c", claimed[0].Recipient.ID)
	s.Equal("org-a", claimed[1].Recipient.ID)

	rest, err := s.outbox.ClaimNotifications(ctx, 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.Equal("org-b", rest[0].Recipient.ID)
}

func (s *RepositoryTestSuite) TestPendingAwards_RecordedWithGroupAndSettledOnce() {
	ctx := context.Background()
	task, list := s.createTask("org-a")
	ref := domain.EntityRef{Kind: domain.EntityKindOrganization, ID: "org-a"}

	award := domain.NewPendingAward(ref, "request_accepted", 10, list[0].ID, time.Now().Add(-time.Minute))
	_, err := s.tasks.MutateGroup(ctx, task.ID, func(*domain.TaskGroup) (*domain.GroupChange, error) {
		return &domain.GroupChange{Awards: []*domain.PendingAward{award}}, nil
	})
	s.Require().NoError(err)

	pending, err := s.ledgers.ListPendingAwards(ctx, time.Now(), 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(award.ID, pending[0].ID)
	s.Equal(ref, pending[0].Entity)
	s.Equal(int64(10), pending[0].Points)

	// A failing ledger mutation rolls the consumption back.
	errBoom := errors.New("boom")
	_, err = s.ledgers.SettleAward(ctx, pending[0], func(*domain.Ledger) ([]*domain.Notification, error) {
		return nil, errBoom
	})
	s.ErrorIs(err, errBoom)

	settled, err := s.scoring.SettlePending(ctx, 0, 10)
	s.Require().NoError(err)
	s.Equal(1, settled)

	_, err = s.scoring.Settle(ctx, pending[0])
	s.ErrorIs(err, domain.ErrAwardSettled)

	ledger, err := s.ledgers.GetLedger(ctx, ref)
	s.Require().NoError(err)
	s.Equal(int64(10), ledger.TotalPoints)
	s.Len(ledger.History, 1)

	pending, err = s.ledgers.ListPendingAwards(ctx, time.Now(), 10)
	s.Require().NoError(err)
	s.Empty(pending)
}
