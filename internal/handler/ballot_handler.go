package handler

import (
	"encoding/json"
	"net/http"

	"ballotbox/internal/domain"
	"ballotbox/internal/middleware"
	"ballotbox/internal/service"
	"ballotbox/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BallotHandler exposes ballot casting.
type BallotHandler struct {
	ballots *service.BallotService
	logger  *logger.Logger
}

func NewBallotHandler(ballots *service.BallotService, logger *logger.Logger) *BallotHandler {
	return &BallotHandler{
		ballots: ballots,
		logger:  logger,
	}
}

// CastVote handles POST /api/v1/sessions/{sessionID}/votes. The route uses
// optional auth: unauthenticated casts are rejected by the engine unless the
// session permits anonymous ballots.
func (h *BallotHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "session id must be a valid identifier")
		return
	}

	var req domain.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}
	if len(req.CandidateIDs) == 0 {
		respondErrorMessage(w, http.StatusBadRequest, "invalid_selection", "candidate_ids must not be empty")
		return
	}

	var voterID *uuid.UUID
	if identity := middleware.IdentityFrom(r.Context()); identity != nil {
		voterID = &identity.UserID
	}

	response, err := h.ballots.CastVote(r.Context(), voterID, sessionID, req.CandidateIDs)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, response)
}
