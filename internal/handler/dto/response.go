package dto

import (
	"time"

	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/service"
)

// TaskResponse represents a task.
type TaskResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	RequesterID  string    `json:"requester_id"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	CandidateIDs []string  `json:"candidate_ids"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScheduleResponse represents the schedule block of an assignment.
type ScheduleResponse struct {
	VolunteerName    string `json:"volunteer_name"`
	VolunteerContact string `json:"volunteer_contact"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Notes            string `json:"notes,omitempty"`
}

// FeedbackResponse represents the feedback block of an assignment.
type FeedbackResponse struct {
	Given    bool       `json:"given"`
	Rating   int        `json:"rating,omitempty"`
	Comments string     `json:"comments,omitempty"`
	GivenAt  *time.Time `json:"given_at,omitempty"`
}

// AssignmentResponse represents an assignment.
type AssignmentResponse struct {
	ID                 string            `json:"id"`
	TaskID             string            `json:"task_id"`
	TaskKind           string            `json:"task_kind"`
	RequesterID        string            `json:"requester_id"`
	CandidateID        string            `json:"candidate_id"`
	Status             string            `json:"status"`
	Schedule           *ScheduleResponse `json:"schedule"`
	Feedback           FeedbackResponse  `json:"feedback"`
	ReceiptConfirmed   bool              `json:"receipt_confirmed"`
	ReceiptConfirmedAt *time.Time        `json:"receipt_confirmed_at"`
	AssignedAt         time.Time         `json:"assigned_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// CreateTaskResponse represents the response for POST /tasks.
type CreateTaskResponse struct {
	Task        TaskResponse         `json:"task"`
	Assignments []AssignmentResponse `json:"assignments"`
}

// AssignmentsListResponse represents a list of assignments.
type AssignmentsListResponse struct {
	Assignments []AssignmentResponse `json:"assignments"`
	Total       int                  `json:"total"`
}

// ScheduleResultResponse represents the response for POST /assignments/:id/schedule.
type ScheduleResultResponse struct {
	Assignment   AssignmentResponse `json:"assignment"`
	CancelledIDs []string           `json:"cancelled_ids"`
}

// ActivityResponse represents one ledger history entry.
type ActivityResponse struct {
	Activity    string    `json:"activity"`
	Points      int64     `json:"points"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LedgerResponse represents an entity's ledger.
type LedgerResponse struct {
	EntityKind  string             `json:"entity_kind"`
	EntityID    string             `json:"entity_id"`
	TotalPoints int64              `json:"total_points"`
	Badges      []string           `json:"badges"`
	History     []ActivityResponse `json:"history"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// RankResponse represents an entity's rank for a period.
type RankResponse struct {
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Period     string `json:"period"`
	Score      int64  `json:"score"`
	Rank       int    `json:"rank"`
}

// LeaderboardEntryResponse represents one leaderboard row.
type LeaderboardEntryResponse struct {
	Position   int    `json:"position"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Score      int64  `json:"score"`
}

// LeaderboardResponse represents the response for GET /leaderboard.
type LeaderboardResponse struct {
	Period  string                     `json:"period"`
	Entries []LeaderboardEntryResponse `json:"entries"`
}

// ToTaskResponse converts a domain task.
func ToTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           task.ID,
		Kind:         string(task.Kind),
		RequesterID:  task.RequesterID,
		Category:     task.Category,
		Description:  task.Description,
		Priority:     string(task.Priority),
		Status:       string(task.Status),
		CandidateIDs: task.CandidateIDs,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// ToAssignmentResponse converts a domain assignment.
func ToAssignmentResponse(a *domain.Assignment) AssignmentResponse {
	resp := AssignmentResponse{
		ID:          a.ID,
		TaskID:      a.TaskID,
		TaskKind:    string(a.TaskKind),
		RequesterID: a.RequesterID,
		CandidateID: a.CandidateID,
		Status:      string(a.Status),
		Feedback: FeedbackResponse{
			Given:    a.Feedback.Given,
			Rating:   a.Feedback.Rating,
			Comments: a.Feedback.Comments,
			GivenAt:  a.Feedback.GivenAt,
		},
		ReceiptConfirmed:   a.ReceiptConfirmed,
		ReceiptConfirmedAt: a.ReceiptConfirmedAt,
		AssignedAt:         a.AssignedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if a.Schedule != nil {
		resp.Schedule = &ScheduleResponse{
			VolunteerName:    a.Schedule.VolunteerName,
			VolunteerContact: a.Schedule.VolunteerContact,
			Date:             a.Schedule.Date,
			Time:             a.Schedule.Time,
			Notes:            a.Schedule.Notes,
		}
	}
	return resp
}

// ToAssignmentResponses converts a list of domain assignments.
func ToAssignmentResponses(list []*domain.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, ToAssignmentResponse(a))
	}
	return out
}

// ToScheduleResultResponse converts a schedule result.
func ToScheduleResultResponse(res *service.ScheduleResult) ScheduleResultResponse {
	ids := make([]string, 0, len(res.Cancelled))
	for _, c := range res.Cancelled {
		ids = append(ids, c.ID)
	}
	return ScheduleResultResponse{
		Assignment:   ToAssignmentResponse(res.Assignment),
		CancelledIDs: ids,
	}
}

// ToLedgerResponse converts a domain ledger.
func ToLedgerResponse(l *domain.Ledger) LedgerResponse {
	history := make([]ActivityResponse, 0, len(l.History))
	for _, a := range l.History {
		history = append(history, ActivityResponse{
			Activity:    a.Label,
			Points:      a.Points,
			ReferenceID: a.ReferenceID,
			CreatedAt:   a.CreatedAt,
		})
	}
	badges := l.Badges
	if badges == nil {
		badges = []string{}
	}
	return LedgerResponse{
		EntityKind:  string(l.Entity.Kind),
		EntityID:    l.Entity.ID,
		TotalPoints: l.TotalPoints,
		Badges:      badges,
		History:     history,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// ToRankResponse converts a standing.
func ToRankResponse(s *service.Standing) RankResponse {
	return RankResponse{
		EntityKind: string(s.Entity.Kind),
		EntityID:   s.Entity.ID,
		Period:     string(s.Period),
		Score:      s.Score,
		Rank:       s.Rank,
	}
}

// ToLeaderboardResponse converts leaderboard entries.
func ToLeaderboardResponse(period domain.Period, entries []domain.LeaderboardEntry) LeaderboardResponse {
	out := make([]LeaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntryResponse{
			Position:   e.Position,
			EntityKind: string(e.Entity.Kind),
			EntityID:   e.Entity.ID,
			Score:      e.Score,
		})
	}
	return LeaderboardResponse{Period: string(period), Entries: out}
}

// NotificationResponse represents one outbox record as its recipient sees it.
type NotificationResponse struct {
	ID          string     `json:"id"`
	Channel     string     `json:"channel"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	ReferenceID string     `json:"reference_id,omitempty"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// NotificationsListResponse represents a recipient's notifications, newest first.
type NotificationsListResponse struct {
	EntityKind    string                 `json:"entity_kind"`
	EntityID      string                 `json:"entity_id"`
	Notifications []NotificationResponse `json:"notifications"`
}

// ToNotificationsListResponse converts a recipient's notifications.
func ToNotificationsListResponse(ref domain.EntityRef, list []*domain.Notification) NotificationsListResponse {
	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, NotificationResponse{
			ID:          n.ID,
			Channel:     string(n.Channel),
			Type:        string(n.Type),
			Title:       n.Title,
			Message:     n.Message,
			ReferenceID: n.ReferenceID,
			Status:      string(n.Status),
			Attempts:    n.Attempts,
			CreatedAt:   n.CreatedAt,
			DeliveredAt: n.DeliveredAt,
		})
	}
	return NotificationsListResponse{
		EntityKind:    string(ref.Kind),
		EntityID:      ref.ID,
		Notifications: out,
	}
}
