package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusAt(t *testing.T) {
	start := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)

	tests := []struct {
		name      string
		published bool
		at        time.Time
		want      SessionStatus
	}{
		{"draft regardless of clock", false, start.Add(time.Hour), StatusDraft},
		{"published before start", true, start.Add(-time.Minute), StatusScheduled},
		{"published at start", true, start, StatusOpen},
		{"published mid-window", true, start.Add(4 * time.Hour), StatusOpen},
		{"published at end", true, end, StatusOpen},
		{"published after end", true, end.Add(time.Second), StatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &VotingSession{StartAt: start, EndAt: end, IsPublished: tt.published}
			assert.Equal(t, tt.want, s.StatusAt(tt.at))
			assert.Equal(t, tt.want == StatusOpen, s.OpenAt(tt.at))
		})
	}
}

func TestEffectiveMaxChoices(t *testing.T) {
	single := &VotingSettings{MultiSelect: false, MaxChoices: 5}
	assert.Equal(t, 1, single.EffectiveMaxChoices())

	multi := &VotingSettings{MultiSelect: true, MaxChoices: 5}
	assert.Equal(t, 5, multi.EffectiveMaxChoices())
}

func TestValidCandidateType(t *testing.T) {
	assert.True(t, ValidCandidateType(CandidateTypePerson))
	assert.True(t, ValidCandidateType(CandidateTypeOption))
	assert.True(t, ValidCandidateType(CandidateTypeProject))
	assert.False(t, ValidCandidateType("party"))
	assert.False(t, ValidCandidateType(""))
}
