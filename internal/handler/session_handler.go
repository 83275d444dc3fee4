package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ballotbox/internal/domain"
	"ballotbox/internal/middleware"
	"ballotbox/internal/service"
	"ballotbox/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SessionHandler exposes session lifecycle and roster management.
type SessionHandler struct {
	lifecycle *service.LifecycleService
	logger    *logger.Logger
}

func NewSessionHandler(lifecycle *service.LifecycleService, logger *logger.Logger) *SessionHandler {
	return &SessionHandler{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// sessionResponse wraps a session view with any emission warnings.
type sessionResponse struct {
	Session  *domain.SessionView `json:"session"`
	Warnings []string            `json:"warnings,omitempty"`
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	var req domain.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}
	if err := validateCreateSessionRequest(&req); err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	view, warnings, err := h.lifecycle.CreateSession(r.Context(), identity.UserID, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, sessionResponse{Session: view, Warnings: warnings})
}

// ListSessions handles GET /api/v1/sessions (published sessions only)
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	views, err := h.lifecycle.ListPublished(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// ListMySessions handles GET /api/v1/sessions/mine, drafts included
func (h *SessionHandler) ListMySessions(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	views, err := h.lifecycle.ListByCreator(r.Context(), identity.UserID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

// GetSession handles GET /api/v1/sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "session id must be a valid identifier")
		return
	}

	view, err := h.lifecycle.GetSession(r.Context(), sessionID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	// Drafts are visible only to their creator and administrators.
	if view.Status == domain.StatusDraft {
		identity := middleware.IdentityFrom(r.Context())
		if identity == nil || (!identity.IsAdmin() && identity.UserID != view.CreatedBy) {
			respondErrorMessage(w, http.StatusNotFound, "not_found", fmt.Sprintf("session %s not found", sessionID))
			return
		}
	}

	respondJSON(w, http.StatusOK, sessionResponse{Session: view})
}

// UpdateSession handles PATCH /api/v1/sessions/{sessionID}
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "session id must be a valid identifier")
		return
	}

	var req domain.UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	view, warnings, err := h.lifecycle.UpdateSession(r.Context(), identity.UserID, sessionID, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{Session: view, Warnings: warnings})
}

// PublishSession handles POST /api/v1/sessions/{sessionID}/publish
func (h *SessionHandler) PublishSession(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "session id must be a valid identifier")
		return
	}

	view, warnings, err := h.lifecycle.PublishSession(r.Context(), identity.UserID, sessionID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{Session: view, Warnings: warnings})
}

// DeleteSession handles DELETE /api/v1/sessions/{sessionID}?force=true
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "session id must be a valid identifier")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	warnings, err := h.lifecycle.DeleteSession(r.Context(), identity.UserID, sessionID, force)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deleted": sessionID, "warnings": warnings})
}

// AddCandidate handles POST /api/v1/sessions/{sessionID}/candidates
func (h *SessionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "session id must be a valid identifier")
		return
	}

	var req domain.AddCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	candidate, warnings, err := h.lifecycle.AddCandidate(r.Context(), identity.UserID, sessionID, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"candidate": candidate, "warnings": warnings})
}

// UpdateCandidate handles PATCH /api/v1/candidates/{candidateID}
func (h *SessionHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	candidateID, err := uuid.Parse(chi.URLParam(r, "candidateID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "candidate id must be a valid identifier")
		return
	}

	var req domain.UpdateCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "invalid request body")
		return
	}

	candidate, warnings, err := h.lifecycle.UpdateCandidate(r.Context(), identity.UserID, candidateID, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"candidate": candidate, "warnings": warnings})
}

// DeleteCandidate handles DELETE /api/v1/candidates/{candidateID}?force=true
func (h *SessionHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())

	candidateID, err := uuid.Parse(chi.URLParam(r, "candidateID"))
	if err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "validation", "candidate id must be a valid identifier")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	warnings, err := h.lifecycle.DeleteCandidate(r.Context(), identity.UserID, candidateID, force)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deleted": candidateID, "warnings": warnings})
}

func validateCreateSessionRequest(req *domain.CreateSessionRequest) error {
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		return fmt.Errorf("start_at and end_at are required")
	}
	if !req.EndAt.After(req.StartAt) {
		return fmt.Errorf("end_at must be after start_at")
	}
	if req.Settings.MultiSelect && req.Settings.MaxChoices < 1 {
		return fmt.Errorf("max_choices must be at least 1 when multi_select is enabled")
	}
	return nil
}
