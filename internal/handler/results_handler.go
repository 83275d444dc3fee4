package handler

import (
	"net/http"

	"ballotbox/internal/service"
	"ballotbox/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ResultsHandler exposes tally snapshots.
type ResultsHandler struct {
	tally  *service.TallyService
	logger *logger.Logger
}

func NewResultsHandler(tally *service.TallyService, logger *logger.Logger) *ResultsHandler {
	return &ResultsHandler{
		tally:  tally,
		logger: logger,
	}
}

// GetResults handles GET /api/v1/sessions/{sessionID}/results. Serves the
// cached snapshot when fresh, recomputing from the vote store otherwise.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "session id must be a valid identifier")
		return
	}

	view, err := h.tally.GetResults(r.Context(), sessionID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// ComputeResults handles POST /api/v1/sessions/{sessionID}/results/refresh.
// Forces a fresh snapshot regardless of cache state.
func (h *ResultsHandler) ComputeResults(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "session id must be a valid identifier")
		return
	}

	view, err := h.tally.ComputeResults(r.Context(), sessionID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
