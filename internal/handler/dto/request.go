package dto

// CreateTaskRequest represents the request body for POST /tasks.
type CreateTaskRequest struct {
	Kind         string   `json:"kind"`
	RequesterID  string   `json:"requester_id"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	Priority     string   `json:"priority,omitempty"`
	CandidateIDs []string `json:"candidate_ids"`
}

// RespondRequest represents the request body for POST /assignments/:id/respond.
type RespondRequest struct {
	Action string `json:"action"`
}

// ScheduleRequest represents the request body for POST /assignments/:id/schedule.
type ScheduleRequest struct {
	VolunteerName    string `json:"volunteer_name"`
	VolunteerContact string `json:"volunteer_contact"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Notes            string `json:"notes,omitempty"`
}

// FeedbackRequest represents the request body for POST /assignments/:id/feedback.
type FeedbackRequest struct {
	Rating   *int   `json:"rating"`
	Comments string `json:"comments,omitempty"`
}

// ListAssignmentsFilters represents query parameters for GET /assignments.
type ListAssignmentsFilters struct {
	RequesterID string   // ?requester=<id>
	CandidateID string   // ?candidate=<id>
	Status      []string // ?status=pending,accepted
}
