package handler

import (
	"net/http"

	"github.com/mtlprog/kindroute/internal/domain"
	"github.com/mtlprog/kindroute/internal/handler/dto"
)

// entityFromPath reads the {kind}/{id} ledger reference.
func entityFromPath(r *http.Request) domain.EntityRef {
	return domain.EntityRef{
		Kind: domain.EntityKind(r.PathValue("kind")),
		ID:   r.PathValue("id"),
	}
}

// periodFromQuery reads ?period=, defaulting to all_time.
func periodFromQuery(r *http.Request) domain.Period {
	if p := r.URL.Query().Get("period"); p != "" {
		return domain.Period(p)
	}
	return domain.PeriodAllTime
}

// kindFromQuery reads the optional ?kind= filter.
func kindFromQuery(r *http.Request) *domain.EntityKind {
	kindParam := r.URL.Query().Get("kind")
	if kindParam == "" {
		return nil
	}
	k := domain.EntityKind(kindParam)
	return &k
}

// handleGetLedger returns an entity's points, badges and history.
// @Summary Get ledger
// @Tags scoring
// @Produce json
// @Param kind path string true "requester or organization"
// @Param id path string true "Entity ID"
// @Success 200 {object} dto.LedgerResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /ledgers/{kind}/{id} [get]
func (h *Handler) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.scoring.Ledger(r.Context(), entityFromPath(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToLedgerResponse(ledger))
}

// handleGetRank returns an entity's rank among all entities, or among its own
// kind when ?kind= is given.
// @Summary Get rank
// @Tags scoring
// @Produce json
// @Param kind path string true "requester or organization"
// @Param id path string true "Entity ID"
// @Param period query string false "all_time (default) or this_month"
// @Param kind query string false "rank only among this kind; must match the path kind"
// @Success 200 {object} dto.RankResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /ledgers/{kind}/{id}/rank [get]
func (h *Handler) handleGetRank(w http.ResponseWriter, r *http.Request) {
	standing, err := h.scoring.Rank(r.Context(), entityFromPath(r), periodFromQuery(r), kindFromQuery(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToRankResponse(standing))
}

// handleLeaderboard returns the top entities for a period.
// @Summary Get leaderboard
// @Tags scoring
// @Produce json
// @Param period query string false "all_time (default) or this_month"
// @Param limit query int false "Page size (1-100, default 10)"
// @Param kind query string false "requester or organization"
// @Success 200 {object} dto.LeaderboardResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /leaderboard [get]
func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	period := periodFromQuery(r)

	limit, ok := limitFromQuery(w, r)
	if !ok {
		return
	}

	entries, err := h.scoring.Leaderboard(r.Context(), period, limit, kindFromQuery(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToLeaderboardResponse(period, entries))
}
