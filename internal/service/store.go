package service

import (
	"context"
	"time"

	"github.com/mtlprog/kindroute/internal/domain"
)

// AssignmentStore persists tasks and their assignment groups.
// Implemented by repository.TaskRepository and memstore.Store.
type AssignmentStore interface {
	CreateTask(ctx context.Context, task *domain.Task, assignments []*domain.Assignment, notifications []*domain.Notification) error
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	GetAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error)
	ListAssignments(ctx context.Context, filter domain.AssignmentFilter) ([]*domain.Assignment, error)
	MutateGroup(ctx context.Context, taskID string, fn domain.GroupMutation) (*domain.TaskGroup, error)
}

// LedgerStore persists point ledgers and answers score queries.
// Implemented by repository.LedgerRepository and memstore.Store.
type LedgerStore interface {
	MutateLedger(ctx context.Context, ref domain.EntityRef, fn domain.LedgerMutation) (*domain.Ledger, error)
	GetLedger(ctx context.Context, ref domain.EntityRef) (*domain.Ledger, error)
	Score(ctx context.Context, ref domain.EntityRef, q domain.ScoreQuery) (int64, error)
	CountAbove(ctx context.Context, q domain.ScoreQuery, score int64, exclude domain.EntityRef) (int, error)
	TopScores(ctx context.Context, q domain.ScoreQuery, limit int) ([]domain.LeaderboardEntry, error)
	SettleAward(ctx context.Context, award *domain.PendingAward, fn domain.LedgerMutation) (*domain.Ledger, error)
	ListPendingAwards(ctx context.Context, before time.Time, limit int) ([]*domain.PendingAward, error)
}
