package domain

import "fmt"

// ValidationError indicates malformed input. The caller must fix the
// request before retrying.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// EligibilityError indicates the voter does not qualify for this session.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("voter not eligible: %s", e.Reason)
}

// InvalidSelectionError indicates the candidate set violates the session's
// ballot rules.
type InvalidSelectionError struct {
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid selection: %s", e.Reason)
}

// DuplicateVoteError indicates the voter already has an active ballot and
// vote changes are not permitted for this session.
type DuplicateVoteError struct {
	SessionID string
}

func (e *DuplicateVoteError) Error() string {
	return fmt.Sprintf("a ballot has already been cast in session %s and vote changes are not allowed", e.SessionID)
}

// SessionNotOpenError indicates the session is unpublished or outside its
// voting window.
type SessionNotOpenError struct {
	Reason string
}

func (e *SessionNotOpenError) Error() string {
	return fmt.Sprintf("session is not open for voting: %s", e.Reason)
}

// ConflictError indicates a destructive operation was blocked by existing
// dependents. The caller may re-issue the operation with an explicit
// destructive override.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("operation conflicts with existing data: %s", e.Reason)
}

// StorageTimeoutError indicates the storage call exceeded its execution
// budget. Transient; the caller may retry with backoff.
type StorageTimeoutError struct {
	Op string
}

func (e *StorageTimeoutError) Error() string {
	return fmt.Sprintf("storage operation %s timed out", e.Op)
}

// StorageUnavailableError indicates the storage layer could not be reached.
// Transient; the caller may retry with backoff.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}
