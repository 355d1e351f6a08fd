package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/metrics"
)

// CreateTaskParams holds the fields a requester submits for a new task.
type CreateTaskParams struct {
	Kind         domain.TaskKind
	RequesterID  string
	Category     string
	Description  string
	Priority     domain.TaskPriority
	CandidateIDs []string
}

// AssignmentService coordinates task fan-out and the assignment state machine.
type AssignmentService struct {
	store     AssignmentStore
	scoring   *ScoringService
	rules     *config.Scoring
	validator *Validator
	now       func() time.Time
	metrics   metrics.Collector
}

// NewAssignmentService creates a new AssignmentService. Qualifying
// transitions award points through scoring according to rules.
func NewAssignmentService(
	store AssignmentStore,
	scoring *ScoringService,
	rules *config.Scoring,
	opts ...Option,
) *AssignmentService {
	o := applyOptions(opts)
	return &AssignmentService{
		store:     store,
		scoring:   scoring,
		rules:     rules,
		validator: NewValidator(),
		now:       o.now,
		metrics:   o.metrics,
	}
}

// CreateTask stores a new open task with one pending assignment per
// candidate and enqueues a new_task notification for each candidate.
func (s *AssignmentService) CreateTask(ctx context.Context, p CreateTaskParams) (*domain.Task, []*domain.Assignment, error) {
	if p.Priority == "" {
		p.Priority = domain.TaskPriorityNormal
	}
	if err := s.validator.ValidateCreateTask(p); err != nil {
		return nil, nil, err
	}

	now := s.now()
	task := &domain.Task{
		ID:           uuid.NewString(),
		Kind:         p.Kind,
		RequesterID:  p.RequesterID,
		Category:     p.Category,
		Description:  p.Description,
		Priority:     p.Priority,
		Status:       domain.TaskStatusOpen,
		CandidateIDs: append([]string(nil), p.CandidateIDs...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	assignments := make([]*domain.Assignment, 0, len(p.CandidateIDs))
	notifications := make([]*domain.Notification, 0, len(p.CandidateIDs))
	for _, candidateID := range p.CandidateIDs {
		a := &domain.Assignment{
			ID:          uuid.NewString(),
			TaskID:      task.ID,
			TaskKind:    task.Kind,
			RequesterID: task.RequesterID,
			CandidateID: candidateID,
			Status:      domain.AssignmentStatusPending,
			AssignedAt:  now,
			UpdatedAt:   now,
		}
		assignments = append(assignments, a)
		notifications = append(notifications, newTaskNotification(task, a, now))
	}

	if err := s.store.CreateTask(ctx, task, assignments, notifications); err != nil {
		return nil, nil, fmt.Errorf("create task: %w", err)
	}

	slog.Info("task created",
		"task_id", task.ID,
		"kind", task.Kind,
		"requester_id", task.RequesterID,
		"candidates", len(assignments),
	)

	return task, assignments, nil
}

// GetTask retrieves a task by ID.
func (s *AssignmentService) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return s.store.GetTask(ctx, taskID)
}

// GetAssignment retrieves an assignment by ID.
func (s *AssignmentService) GetAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	return s.store.GetAssignment(ctx, assignmentID)
}

// ListAssignments lists assignments by task, requester, candidate and status.
func (s *AssignmentService) ListAssignments(ctx context.Context, filter domain.AssignmentFilter) ([]*domain.Assignment, error) {
	if err := s.validator.ValidateFilter(filter); err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, filter)
}

// ListTaskAssignments lists the assignments of one task. NotFound if the task
// does not exist.
func (s *AssignmentService) ListTaskAssignments(ctx context.Context, taskID string) ([]*domain.Assignment, error) {
	if _, err := s.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, domain.AssignmentFilter{TaskID: taskID})
}
