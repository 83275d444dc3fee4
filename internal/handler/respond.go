package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"ballotbox/internal/domain"
	"ballotbox/pkg/logger"
)

// errorBody is the JSON error envelope shared by all handlers.
type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondErrorMessage(w http.ResponseWriter, status int, errType, message string) {
	var body errorBody
	body.Error.Type = errType
	body.Error.Message = message
	respondJSON(w, status, body)
}

// respondDomainError maps the typed error taxonomy onto HTTP statuses. Every
// rejection keeps the rule-naming message from the engine.
func respondDomainError(w http.ResponseWriter, log *logger.Logger, err error) {
	var (
		validationErr  *domain.ValidationError
		notFoundErr    *domain.NotFoundError
		eligibilityErr *domain.EligibilityError
		selectionErr   *domain.InvalidSelectionError
		duplicateErr   *domain.DuplicateVoteError
		notOpenErr     *domain.SessionNotOpenError
		conflictErr    *domain.ConflictError
		timeoutErr     *domain.StorageTimeoutError
		unavailableErr *domain.StorageUnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		respondErrorMessage(w, http.StatusBadRequest, "validation", validationErr.Error())
	case errors.As(err, &selectionErr):
		respondErrorMessage(w, http.StatusBadRequest, "invalid_selection", selectionErr.Error())
	case errors.As(err, &eligibilityErr):
		respondErrorMessage(w, http.StatusForbidden, "eligibility", eligibilityErr.Error())
	case errors.As(err, &notFoundErr):
		respondErrorMessage(w, http.StatusNotFound, "not_found", notFoundErr.Error())
	case errors.As(err, &duplicateErr):
		respondErrorMessage(w, http.StatusConflict, "duplicate_vote", duplicateErr.Error())
	case errors.As(err, &conflictErr):
		respondErrorMessage(w, http.StatusConflict, "conflict", conflictErr.Error())
	case errors.As(err, &notOpenErr):
		respondErrorMessage(w, http.StatusUnprocessableEntity, "session_not_open", notOpenErr.Error())
	case errors.As(err, &timeoutErr), errors.As(err, &unavailableErr):
		// Transient storage failures are retryable at the caller.
		w.Header().Set("Retry-After", "1")
		respondErrorMessage(w, http.StatusServiceUnavailable, "storage", err.Error())
	default:
		log.WithError(err).Error("Unhandled error")
		respondErrorMessage(w, http.StatusInternalServerError, "internal", "an internal error occurred")
	}
}
