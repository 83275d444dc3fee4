package domain

import "github.com/google/uuid"

// CandidateType is the small fixed vocabulary of ballot-entry kinds.
type CandidateType string

const (
	CandidateTypePerson  CandidateType = "person"
	CandidateTypeOption  CandidateType = "option"
	CandidateTypeProject CandidateType = "project"
)

// ValidCandidateType reports whether t is one of the known entry kinds.
func ValidCandidateType(t CandidateType) bool {
	switch t {
	case CandidateTypePerson, CandidateTypeOption, CandidateTypeProject:
		return true
	}
	return false
}

// Candidate is a selectable option on a ballot. Position records insertion
// order within the session and is the stable tie-break for the tally.
type Candidate struct {
	ID          uuid.UUID     `json:"id"`
	SessionID   uuid.UUID     `json:"session_id"`
	Type        CandidateType `json:"type"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description,omitempty"`
	Position    int           `json:"position"`
	VoteCount   int           `json:"vote_count,omitempty"` // derived, only set on tally reads
}

// AddCandidateRequest is the payload for adding a candidate to a session.
type AddCandidateRequest struct {
	Type        CandidateType `json:"type"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description"`
}

// UpdateCandidateRequest rewrites candidate presentation fields. Nil fields
// are left unchanged.
type UpdateCandidateRequest struct {
	Type        *CandidateType `json:"type,omitempty"`
	DisplayName *string        `json:"display_name,omitempty"`
	Description *string        `json:"description,omitempty"`
}
