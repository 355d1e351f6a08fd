package domain

import "time"

// AssignmentStatus represents the status of one candidate's handling of a task.
type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusAccepted  AssignmentStatus = "accepted"
	AssignmentStatusRejected  AssignmentStatus = "rejected"
	AssignmentStatusScheduled AssignmentStatus = "scheduled"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

// IsValid checks if the status is one of the allowed values.
func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentStatusPending, AssignmentStatusAccepted, AssignmentStatusRejected,
		AssignmentStatusScheduled, AssignmentStatusCompleted, AssignmentStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are allowed.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusRejected || s == AssignmentStatusCompleted || s == AssignmentStatusCancelled
}

// IsCommitted returns true for the statuses at most one sibling may hold.
func (s AssignmentStatus) IsCommitted() bool {
	return s == AssignmentStatusScheduled || s == AssignmentStatusCompleted
}

// ResponseAction is a candidate's answer to a pending assignment.
type ResponseAction string

const (
	ResponseAccept ResponseAction = "accept"
	ResponseReject ResponseAction = "reject"
)

// ScheduleDetails describes when and by whom a task will be handled.
type ScheduleDetails struct {
	VolunteerName    string
	VolunteerContact string
	Date             string // 2006-01-02
	Time             string // 15:04
	Notes            string
}

// Feedback is the requester's rating of a handled assignment.
type Feedback struct {
	Given    bool
	Rating   int
	Comments string
	GivenAt  *time.Time
}

// Assignment tracks one candidate's handling of a task. There is exactly one
// per (task, candidate) pair, created together with the task.
type Assignment struct {
	ID                 string
	TaskID             string
	TaskKind           TaskKind
	RequesterID        string
	CandidateID        string
	Status             AssignmentStatus
	Schedule           *ScheduleDetails
	Feedback           Feedback
	ReceiptConfirmed   bool
	ReceiptConfirmedAt *time.Time
	AssignedAt         time.Time
	UpdatedAt          time.Time
}

// Assignee returns the ledger reference of the candidate organization.
func (a *Assignment) Assignee() EntityRef {
	return EntityRef{Kind: EntityKindOrganization, ID: a.CandidateID}
}

// Requester returns the ledger reference of the task owner.
func (a *Assignment) Requester() EntityRef {
	return EntityRef{Kind: EntityKindRequester, ID: a.RequesterID}
}

// Clone returns a deep copy of the assignment.
func (a *Assignment) Clone() *Assignment {
	c := *a
	if a.Schedule != nil {
		s := *a.Schedule
		c.Schedule = &s
	}
	if a.Feedback.GivenAt != nil {
		t := *a.Feedback.GivenAt
		c.Feedback.GivenAt = &t
	}
	if a.ReceiptConfirmedAt != nil {
		t := *a.ReceiptConfirmedAt
		c.ReceiptConfirmedAt = &t
	}
	return &c
}

// AssignmentFilter selects assignments for listing. Empty fields are ignored.
type AssignmentFilter struct {
	TaskID      string
	RequesterID string
	CandidateID string
	Statuses    []AssignmentStatus
}

// TaskGroup is a task together with all of its assignments.
type TaskGroup struct {
	Task        *Task
	Assignments []*Assignment
}

// Find returns the assignment with the given ID, or nil.
func (g *TaskGroup) Find(assignmentID string) *Assignment {
	for _, a := range g.Assignments {
		if a.ID == assignmentID {
			return a
		}
	}
	return nil
}

// GroupChange is the outcome of a group mutation: the assignments that were
// modified, an optional new task status, the notifications to enqueue and the
// awards the transition earned.
type GroupChange struct {
	Assignments   []*Assignment
	TaskStatus    TaskStatus
	Notifications []*Notification
	Awards        []*PendingAward
}

// GroupMutation inspects and modifies a locked task group. Stores apply the
// returned change atomically or not at all.
type GroupMutation func(group *TaskGroup) (*GroupChange, error)
