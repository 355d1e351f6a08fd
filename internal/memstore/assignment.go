package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/mtlprog/kindroute/internal/domain"
)

func taskLockKey(taskID string) string {
	return "task:" + taskID
}

// CreateTask stores the task, its assignments and their notifications.
func (s *Store) CreateTask(
	_ context.Context,
	task *domain.Task,
	assignments []*domain.Assignment,
	notifications []*domain.Notification,
) error {
	unlock := s.lock(taskLockKey(task.ID))
	defer unlock()

	if _, exists := s.tasks.Load(task.ID); exists {
		return fmt.Errorf("%w: task %s already exists", domain.ErrConflict, task.ID)
	}

	seen := make(map[string]bool, len(assignments))
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if seen[a.CandidateID] {
			return fmt.Errorf("%w: candidate assigned twice", domain.ErrDuplicateCandidate)
		}
		seen[a.CandidateID] = true
		ids = append(ids, a.ID)
	}

	s.tasks.Store(task.ID, task.Clone())
	for _, a := range assignments {
		s.assignments.Store(a.ID, a.Clone())
	}
	s.byTask.Store(task.ID, ids)
	s.enqueue(notifications)

	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	task, ok := s.tasks.Load(taskID)
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// GetAssignment retrieves an assignment by ID.
func (s *Store) GetAssignment(_ context.Context, assignmentID string) (*domain.Assignment, error) {
	a, ok := s.assignments.Load(assignmentID)
	if !ok {
		return nil, domain.ErrAssignmentNotFound
	}
	return a.Clone(), nil
}

// ListAssignments retrieves assignments matching the filter, oldest first.
func (s *Store) ListAssignments(_ context.Context, filter domain.AssignmentFilter) ([]*domain.Assignment, error) {
	var out []*domain.Assignment
	s.assignments.Range(func(_ string, a *domain.Assignment) bool {
		if matches(a, filter) {
			out = append(out, a.Clone())
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		if out[i].TaskID != out[j].TaskID {
			return out[i].TaskID < out[j].TaskID
		}
		return out[i].CandidateID < out[j].CandidateID
	})
	return out, nil
}

func matches(a *domain.Assignment, f domain.AssignmentFilter) bool {
	if f.TaskID != "" && a.TaskID != f.TaskID {
		return false
	}
	if f.RequesterID != "" && a.RequesterID != f.RequesterID {
		return false
	}
	if f.CandidateID != "" && a.CandidateID != f.CandidateID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
		return false
	}
	return true
}

// MutateGroup runs fn under the task lock on private copies of the group and
// publishes the change only if fn succeeds.
func (s *Store) MutateGroup(_ context.Context, taskID string, fn domain.GroupMutation) (*domain.TaskGroup, error) {
	unlock := s.lock(taskLockKey(taskID))
	defer unlock()

	task, ok := s.tasks.Load(taskID)
	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	ids, _ := s.byTask.Load(taskID)
	group := &domain.TaskGroup{Task: task.Clone()}
	previous := make(map[string]domain.AssignmentStatus, len(ids))
	for _, id := range ids {
		a, ok := s.assignments.Load(id)
		if !ok {
			continue
		}
		group.Assignments = append(group.Assignments, a.Clone())
		previous[id] = a.Status
	}

	change, err := fn(group)
	if err != nil {
		return nil, err
	}

	for _, a := range change.Assignments {
		oldStatus, ok := previous[a.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not part of task %s", domain.ErrAssignmentNotFound, a.ID, taskID)
		}
		if stored, _ := s.assignments.Load(a.ID); stored.Status != oldStatus {
			return nil, fmt.Errorf("%w: assignment %s", domain.ErrConcurrentUpdate, a.ID)
		}
	}
	if err := checkSingleCommit(group.Assignments); err != nil {
		return nil, err
	}

	for _, a := range change.Assignments {
		s.assignments.Store(a.ID, a.Clone())
	}
	if change.TaskStatus != "" && change.TaskStatus != group.Task.Status {
		group.Task.Status = change.TaskStatus
		group.Task.UpdatedAt = s.now()
		s.tasks.Store(taskID, group.Task.Clone())
	}
	s.enqueue(change.Notifications)
	for _, a := range change.Awards {
		s.pending.Store(a.ID, a.Clone())
	}

	return group, nil
}

// checkSingleCommit mirrors the partial unique index of the SQL schema.
func checkSingleCommit(assignments []*domain.Assignment) error {
	committed := 0
	for _, a := range assignments {
		if a.Status.IsCommitted() {
			committed++
		}
	}
	if committed > 1 {
		return domain.ErrScheduleConflict
	}
	return nil
}
