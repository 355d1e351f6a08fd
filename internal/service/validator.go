package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/mtlprog/kindroute/internal/domain"
)

const (
	scheduleDateLayout = "2006-01-02"
	scheduleTimeLayout = "15:04"

	minRating = 1
	maxRating = 5
)

// Validator checks operation input and assignment transitions.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCreateTask checks task details and the candidate list.
func (v *Validator) ValidateCreateTask(p CreateTaskParams) error {
	if !p.Kind.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTaskKind, p.Kind)
	}
	if !p.Priority.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPriority, p.Priority)
	}
	if strings.TrimSpace(p.RequesterID) == "" {
		return fmt.Errorf("%w: requester_id", domain.ErrMissingField)
	}
	if strings.TrimSpace(p.Category) == "" {
		return fmt.Errorf("%w: category", domain.ErrMissingField)
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("%w: description", domain.ErrMissingField)
	}

	if len(p.CandidateIDs) == 0 {
		return domain.ErrNoCandidates
	}
	if len(p.CandidateIDs) > domain.MaxCandidates {
		return fmt.Errorf("%w: got %d, at most %d allowed", domain.ErrTooManyCandidates, len(p.CandidateIDs), domain.MaxCandidates)
	}

	seen := make(map[string]bool, len(p.CandidateIDs))
	for _, id := range p.CandidateIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: candidate id", domain.ErrMissingField)
		}
		if seen[id] {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCandidate, id)
		}
		seen[id] = true
	}

	return nil
}

// ValidateSchedule checks that the volunteer and slot are fully specified
// and that date and time parse.
func (v *Validator) ValidateSchedule(d domain.ScheduleDetails) error {
	required := []struct {
		name  string
		value string
	}{
		{"volunteer_name", d.VolunteerName},
		{"volunteer_contact", d.VolunteerContact},
		{"date", d.Date},
		{"time", d.Time},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", domain.ErrMissingField, f.name)
		}
	}

	if _, err := time.Parse(scheduleDateLayout, d.Date); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrInvalidSchedule, d.Date)
	}
	if _, err := time.Parse(scheduleTimeLayout, d.Time); err != nil {
		return fmt.Errorf("%w: time %q must be HH:MM", domain.ErrInvalidSchedule, d.Time)
	}

	return nil
}

// ValidateRating checks the feedback rating range.
func (v *Validator) ValidateRating(rating int) error {
	if rating < minRating || rating > maxRating {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidRating, rating)
	}
	return nil
}

// CanRespond validates a candidate's answer to a pending assignment.
func (v *Validator) CanRespond(a *domain.Assignment, action domain.ResponseAction) error {
	if action != domain.ResponseAccept && action != domain.ResponseReject {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAction, action)
	}
	if a.Status != domain.AssignmentStatusPending {
		return fmt.Errorf("%w: assignment %s is %s, expected pending", domain.ErrInvalidTransition, a.ID, a.Status)
	}
	return nil
}

// CanSchedule validates scheduling target within its group. A committed
// sibling wins over the target's own status, so the loser of a schedule race
// always sees ErrScheduleConflict.
func (v *Validator) CanSchedule(group *domain.TaskGroup, target *domain.Assignment) error {
	for _, sibling := range group.Assignments {
		if sibling.ID != target.ID && sibling.Status.IsCommitted() {
			return fmt.Errorf("%w: assignment %s is %s", domain.ErrScheduleConflict, sibling.ID, sibling.Status)
		}
	}

	switch target.Status {
	case domain.AssignmentStatusPending, domain.AssignmentStatusAccepted:
		return nil
	default:
		return fmt.Errorf("%w: assignment %s is %s, expected pending or accepted", domain.ErrInvalidTransition, target.ID, target.Status)
	}
}

// CanComplete validates completion of a scheduled assignment.
func (v *Validator) CanComplete(a *domain.Assignment) error {
	if a.Status != domain.AssignmentStatusScheduled {
		return fmt.Errorf("%w: assignment %s is %s, expected scheduled", domain.ErrInvalidTransition, a.ID, a.Status)
	}
	return nil
}

// CanSubmitFeedback rejects a second feedback for the same assignment.
func (v *Validator) CanSubmitFeedback(a *domain.Assignment) error {
	if a.Feedback.Given {
		return fmt.Errorf("%w: assignment %s", domain.ErrFeedbackAlreadyGiven, a.ID)
	}
	return nil
}

// ValidateFilter checks the status values of an assignment filter.
func (v *Validator) ValidateFilter(f domain.AssignmentFilter) error {
	for _, s := range f.Statuses {
		if !s.IsValid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidStatusFilter, s)
		}
	}
	return nil
}
