package handler

import (
	"net/http"
	"strings"

	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/handler/dto"
	"github.com/mtlprog/kindroute/internal/service"
)

// handleCreateTask creates a task and offers it to its candidates.
// @Summary Create a new task
// @Description Creates a task with one pending assignment per candidate (1 to 3).
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body dto.CreateTaskRequest true "Task creation request"
// @Success 201 {object} dto.CreateTaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /tasks [post]
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, assignments, err := h.assignments.CreateTask(ctx, service.CreateTaskParams{
		Kind:         domain.TaskKind(req.Kind),
		RequesterID:  req.RequesterID,
		Category:     req.Category,
		Description:  req.Description,
		Priority:     domain.TaskPriority(req.Priority),
		CandidateIDs: req.CandidateIDs,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.CreateTaskResponse{
		Task:        dto.ToTaskResponse(task),
		Assignments: dto.ToAssignmentResponses(assignments),
	})
}

// handleGetTask retrieves a task.
// @Summary Get task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{id} [get]
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractID(w, r, "task")
	if !ok {
		return
	}

	task, err := h.assignments.GetTask(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleListTaskAssignments lists the assignments of a task.
// @Summary List task assignments
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.AssignmentsListResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{id}/assignments [get]
func (h *Handler) handleListTaskAssignments(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractID(w, r, "task")
	if !ok {
		return
	}

	list, err := h.assignments.ListTaskAssignments(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.AssignmentsListResponse{
		Assignments: dto.ToAssignmentResponses(list),
		Total:       len(list),
	})
}

// handleListAssignments lists assignments by requester, candidate and status.
// @Summary List assignments
// @Tags assignments
// @Produce json
// @Param requester query string false "Requester ID"
// @Param candidate query string false "Candidate organization ID"
// @Param status query string false "Comma-separated statuses"
// @Success 200 {object} dto.AssignmentsListResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /assignments [get]
func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := dto.ListAssignmentsFilters{
		RequesterID: query.Get("requester"),
		CandidateID: query.Get("candidate"),
	}
	if statusParam := query.Get("status"); statusParam != "" {
		filters.Status = splitAndTrim(statusParam, ",")
	}

	if filters.RequesterID == "" && filters.CandidateID == "" {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "requester or candidate is required")
		return
	}

	statuses := make([]domain.AssignmentStatus, 0, len(filters.Status))
	for _, s := range filters.Status {
		statuses = append(statuses, domain.AssignmentStatus(s))
	}

	list, err := h.assignments.ListAssignments(r.Context(), domain.AssignmentFilter{
		RequesterID: filters.RequesterID,
		CandidateID: filters.CandidateID,
		Statuses:    statuses,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.AssignmentsListResponse{
		Assignments: dto.ToAssignmentResponses(list),
		Total:       len(list),
	})
}

// splitAndTrim splits a string by delimiter and trims whitespace.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
