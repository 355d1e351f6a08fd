package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mtlprog/kindroute/internal/config"
	"github.com/mtlprog/kindroute/internal/domain"
)

// ScheduleResult is the scheduled assignment and the siblings it cancelled.
type ScheduleResult struct {
	Assignment *domain.Assignment
	Cancelled  []*domain.Assignment
}

// transitionFunc decides the change for target within its locked group.
type transitionFunc func(group *domain.TaskGroup, target *domain.Assignment) (*domain.GroupChange, error)

// mutateAssignment applies fn to the assignment's group as one atomic store
// mutation and returns the updated target. When fn moves the target to a new
// status, the awards its scoring rules grant are recorded in the same mutation
// and returned for settlement.
func (s *AssignmentService) mutateAssignment(
	ctx context.Context,
	operation string,
	assignmentID string,
	fn transitionFunc,
) (*domain.Assignment, []*domain.PendingAward, error) {
	current, err := s.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}

	var (
		target *domain.Assignment
		awards []*domain.PendingAward
	)
	_, err = s.store.MutateGroup(ctx, current.TaskID, func(group *domain.TaskGroup) (*domain.GroupChange, error) {
		awards = nil
		target = group.Find(assignmentID)
		if target == nil {
			return nil, domain.ErrAssignmentNotFound
		}

		from := target.Status
		change, err := fn(group, target)
		if err != nil {
			return nil, err
		}
		if target.Status != from {
			awards = s.transitionAwards(target)
			change.Awards = append(change.Awards, awards...)
		}
		return change, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.metrics.RecordConflict(operation)
			slog.Warn("assignment operation rejected",
				"operation", operation,
				"assignment_id", assignmentID,
				"task_id", current.TaskID,
				"error", err,
			)
		}
		return nil, nil, err
	}

	return target, awards, nil
}

// Respond records a candidate's accept or reject of a pending assignment.
func (s *AssignmentService) Respond(ctx context.Context, assignmentID string, action domain.ResponseAction) (*domain.Assignment, error) {
	if action != domain.ResponseAccept && action != domain.ResponseReject {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAction, action)
	}

	a, awards, err := s.mutateAssignment(ctx, "respond", assignmentID, func(_ *domain.TaskGroup, target *domain.Assignment) (*domain.GroupChange, error) {
		if err := s.validator.CanRespond(target, action); err != nil {
			return nil, err
		}

		now := s.now()
		target.Status = domain.AssignmentStatusAccepted
		if action == domain.ResponseReject {
			target.Status = domain.AssignmentStatusRejected
		}
		target.UpdatedAt = now

		return &domain.GroupChange{
			Assignments:   []*domain.Assignment{target},
			Notifications: []*domain.Notification{responseNotification(target, action, now)},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, a, awards)
	return a, nil
}

// Schedule commits an assignment: it becomes scheduled, every pending
// sibling is cancelled and the task moves to in_progress, all atomically.
// Fails with ErrScheduleConflict if a sibling already committed.
func (s *AssignmentService) Schedule(ctx context.Context, assignmentID string, details domain.ScheduleDetails) (*ScheduleResult, error) {
	if err := s.validator.ValidateSchedule(details); err != nil {
		return nil, err
	}

	var cancelled []*domain.Assignment
	a, awards, err := s.mutateAssignment(ctx, "schedule", assignmentID, func(group *domain.TaskGroup, target *domain.Assignment) (*domain.GroupChange, error) {
		cancelled = nil
		if err := s.validator.CanSchedule(group, target); err != nil {
			return nil, err
		}

		now := s.now()
		target.Status = domain.AssignmentStatusScheduled
		sched := details
		target.Schedule = &sched
		target.UpdatedAt = now

		changed := []*domain.Assignment{target}
		for _, sibling := range group.Assignments {
			if sibling.ID == target.ID || sibling.Status != domain.AssignmentStatusPending {
				continue
			}
			sibling.Status = domain.AssignmentStatusCancelled
			sibling.UpdatedAt = now
			changed = append(changed, sibling)
			cancelled = append(cancelled, sibling)
		}

		return &domain.GroupChange{
			Assignments:   changed,
			TaskStatus:    domain.TaskStatusInProgress,
			Notifications: []*domain.Notification{scheduledNotification(target, now)},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range cancelled {
		s.metrics.RecordTransition(string(c.TaskKind), string(c.Status))
	}
	slog.Info("assignment scheduled",
		"assignment_id", a.ID,
		"task_id", a.TaskID,
		"cancelled_siblings", len(cancelled),
	)

	s.committed(ctx, a, awards)
	return &ScheduleResult{Assignment: a, Cancelled: cancelled}, nil
}

// Complete marks a scheduled assignment as completed and completes its task.
func (s *AssignmentService) Complete(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	a, awards, err := s.mutateAssignment(ctx, "complete", assignmentID, func(_ *domain.TaskGroup, target *domain.Assignment) (*domain.GroupChange, error) {
		if err := s.validator.CanComplete(target); err != nil {
			return nil, err
		}

		now := s.now()
		target.Status = domain.AssignmentStatusCompleted
		target.UpdatedAt = now

		return &domain.GroupChange{
			Assignments:   []*domain.Assignment{target},
			TaskStatus:    domain.TaskStatusCompleted,
			Notifications: []*domain.Notification{completedNotification(target, now)},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, a, awards)
	return a, nil
}

// ConfirmReceipt records the requester's confirmation. It is allowed in any
// status; confirming twice changes nothing and notifies nobody.
func (s *AssignmentService) ConfirmReceipt(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	a, _, err := s.mutateAssignment(ctx, "confirm_receipt", assignmentID, func(_ *domain.TaskGroup, target *domain.Assignment) (*domain.GroupChange, error) {
		if target.ReceiptConfirmed {
			return &domain.GroupChange{}, nil
		}

		now := s.now()
		target.ReceiptConfirmed = true
		target.ReceiptConfirmedAt = &now
		target.UpdatedAt = now

		return &domain.GroupChange{
			Assignments:   []*domain.Assignment{target},
			Notifications: []*domain.Notification{receiptNotification(target, now)},
		}, nil
	})
	return a, err
}

// SubmitFeedback records the requester's rating. Feedback is accepted once.
func (s *AssignmentService) SubmitFeedback(ctx context.Context, assignmentID string, rating int, comments string) (*domain.Assignment, error) {
	if err := s.validator.ValidateRating(rating); err != nil {
		return nil, err
	}

	a, _, err := s.mutateAssignment(ctx, "submit_feedback", assignmentID, func(_ *domain.TaskGroup, target *domain.Assignment) (*domain.GroupChange, error) {
		if err := s.validator.CanSubmitFeedback(target); err != nil {
			return nil, err
		}

		now := s.now()
		target.Feedback = domain.Feedback{
			Given:    true,
			Rating:   rating,
			Comments: comments,
			GivenAt:  &now,
		}
		target.UpdatedAt = now

		return &domain.GroupChange{
			Assignments:   []*domain.Assignment{target},
			Notifications: []*domain.Notification{feedbackNotification(target, now)},
		}, nil
	})
	return a, err
}

// committed records a transition that has been persisted and settles the
// awards it recorded.
func (s *AssignmentService) committed(ctx context.Context, a *domain.Assignment, awards []*domain.PendingAward) {
	s.metrics.RecordTransition(string(a.TaskKind), string(a.Status))
	slog.Info("assignment transitioned",
		"assignment_id", a.ID,
		"task_id", a.TaskID,
		"candidate_id", a.CandidateID,
		"status", a.Status,
	)
	s.settleAwards(ctx, awards)
}

// transitionAwards builds a pending award for every scoring rule matching the
// assignment's kind and status.
func (s *AssignmentService) transitionAwards(a *domain.Assignment) []*domain.PendingAward {
	if s.scoring == nil || s.rules == nil {
		return nil
	}

	now := s.now()
	var awards []*domain.PendingAward
	for _, rule := range s.rules.RulesFor(a.TaskKind, a.Status) {
		ref := a.Assignee()
		if rule.Beneficiary == config.BeneficiaryRequester {
			ref = a.Requester()
		}
		awards = append(awards, domain.NewPendingAward(ref, rule.Activity, rule.Points, a.ID, now))
	}
	return awards
}

// settleAwards applies awards recorded by a committed transition. A failed
// award stays pending for the settlement loop, so failures are only logged.
func (s *AssignmentService) settleAwards(ctx context.Context, awards []*domain.PendingAward) {
	if s.scoring == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, award := range awards {
		if _, err := s.scoring.Settle(ctx, award); err != nil && !errors.Is(err, domain.ErrAwardSettled) {
			slog.Error("failed to settle transition award",
				"assignment_id", award.ReferenceID,
				"award_id", award.ID,
				"entity", award.Entity.String(),
				"activity", award.Activity,
				"error", err,
			)
		}
	}
}
