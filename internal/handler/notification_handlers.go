package handler

import (
	"net/http"

	"github.com/mtlprog/kindroute/internal/handler/dto"
)

// handleListNotifications returns a recipient's notification feed.
// @Summary List notifications
// @Description Returns the recipient's outbox records, newest first, with their delivery status.
// @Tags notifications
// @Produce json
// @Param kind path string true "requester or organization"
// @Param id path string true "Entity ID"
// @Param limit query int false "Page size (1-100, default 20)"
// @Success 200 {object} dto.NotificationsListResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /notifications/{kind}/{id} [get]
func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitFromQuery(w, r)
	if !ok {
		return
	}

	recipient := entityFromPath(r)
	list, err := h.notifications.List(r.Context(), recipient, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToNotificationsListResponse(recipient, list))
}
