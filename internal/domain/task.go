package domain

import "time"

// MaxCandidates is the upper bound of organizations a task is offered to.
const MaxCandidates = 3

// TaskKind distinguishes assistance requests from material donations. Both
// share the same assignment state machine.
type TaskKind string

const (
	TaskKindRequest  TaskKind = "request"
	TaskKindDonation TaskKind = "donation"
)

// IsValid checks if the kind is one of the allowed values.
func (k TaskKind) IsValid() bool {
	return k == TaskKindRequest || k == TaskKindDonation
}

// TaskStatus is informational; it never gates assignment transitions.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityNormal TaskPriority = "normal"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// IsValid checks if the priority is one of the allowed values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityNormal, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	default:
		return false
	}
}

// Task is a requester-submitted item offered to up to MaxCandidates organizations.
type Task struct {
	ID           string
	Kind         TaskKind
	RequesterID  string
	Category     string
	Description  string
	Priority     TaskPriority
	Status       TaskStatus
	CandidateIDs []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Requester returns the ledger reference of the task owner.
func (t *Task) Requester() EntityRef {
	return EntityRef{Kind: EntityKindRequester, ID: t.RequesterID}
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	c.CandidateIDs = append([]string(nil), t.CandidateIDs...)
	return &c
}
