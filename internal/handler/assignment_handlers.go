package handler

import (
	"net/http"

	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/handler/dto"
)

// handleRespond accepts or rejects a pending assignment.
// @Summary Respond to an assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param request body dto.RespondRequest true "accept or reject"
// @Success 200 {object} dto.AssignmentResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /assignments/{id}/respond [post]
func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r, "assignment")
	if !ok {
		return
	}

	var req dto.RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.assignments.Respond(r.Context(), id, domain.ResponseAction(req.Action))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToAssignmentResponse(a))
}

// handleSchedule commits an assignment and cancels its pending siblings.
// @Summary Schedule an assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param request body dto.ScheduleRequest true "Schedule details"
// @Success 200 {object} dto.ScheduleResultResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /assignments/{id}/schedule [post]
func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r, "assignment")
	if !ok {
		return
	}

	var req dto.ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.assignments.Schedule(r.Context(), id, domain.ScheduleDetails{
		VolunteerName:    req.VolunteerName,
		VolunteerContact: req.VolunteerContact,
		Date:             req.Date,
		Time:             req.Time,
		Notes:            req.Notes,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToScheduleResultResponse(res))
}

// handleComplete completes a scheduled assignment.
// @Summary Complete an assignment
// @Tags assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} dto.AssignmentResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /assignments/{id}/complete [post]
func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r, "assignment")
	if !ok {
		return
	}

	a, err := h.assignments.Complete(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToAssignmentResponse(a))
}

// handleConfirmReceipt records the requester's confirmation.
// @Summary Confirm receipt
// @Tags assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} dto.AssignmentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /assignments/{id}/confirm-receipt [post]
func (h *Handler) handleConfirmReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r, "assignment")
	if !ok {
		return
	}

	a, err := h.assignments.ConfirmReceipt(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToAssignmentResponse(a))
}

// handleFeedback records the requester's rating.
// @Summary Submit feedback
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param request body dto.FeedbackRequest true "Rating and comments"
// @Success 200 {object} dto.AssignmentResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /assignments/{id}/feedback [post]
func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r, "assignment")
	if !ok {
		return
	}

	var req dto.FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Rating == nil {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating is required")
		return
	}

	a, err := h.assignments.SubmitFeedback(r.Context(), id, *req.Rating, req.Comments)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToAssignmentResponse(a))
}
