package service

import (
	"context"
	"testing"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lifecycleFixture struct {
	service  *LifecycleService
	sessions *memSessionRepo
	votes    *memVoteRepo
	sink     *memAuditSink
	admin    uuid.UUID
	now      time.Time
}

func newLifecycleFixture(t *testing.T, lockPublished bool) *lifecycleFixture {
	t.Helper()

	sessions := newMemSessionRepo()
	votes := &memVoteRepo{}
	sessions.votes = votes
	sink := &memAuditSink{}

	svc := NewLifecycleService(sessions, votes, sink, NewResultsCache(nil, zap.NewNop()), zap.NewNop(), lockPublished)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	return &lifecycleFixture{
		service:  svc,
		sessions: sessions,
		votes:    votes,
		sink:     sink,
		admin:    uuid.New(),
		now:      now,
	}
}

func (f *lifecycleFixture) createSession(t *testing.T, req domain.CreateSessionRequest) *domain.SessionView {
	t.Helper()
	if req.Title == "" {
		req.Title = "Annual vote"
	}
	if req.StartAt.IsZero() {
		req.StartAt = f.now.Add(time.Hour)
		req.EndAt = f.now.Add(25 * time.Hour)
	}
	view, _, err := f.service.CreateSession(context.Background(), f.admin, &req)
	require.NoError(t, err)
	return view
}

func TestCreateSession(t *testing.T) {
	t.Run("starts as draft", func(t *testing.T) {
		f := newLifecycleFixture(t, false)

		view := f.createSession(t, domain.CreateSessionRequest{})

		assert.Equal(t, domain.StatusDraft, view.Status)
		assert.False(t, view.IsPublished)
		assert.Equal(t, domain.VisibilityPrivate, view.Visibility)
		require.NotNil(t, view.Settings)
		assert.Equal(t, view.ID, view.Settings.SessionID)

		require.Len(t, f.sink.events, 1)
		assert.Equal(t, domain.ActionCreateSession, f.sink.events[0].Action)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		f := newLifecycleFixture(t, false)

		_, _, err := f.service.CreateSession(context.Background(), f.admin, &domain.CreateSessionRequest{
			StartAt: f.now,
			EndAt:   f.now.Add(time.Hour),
		})

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		f := newLifecycleFixture(t, false)

		_, _, err := f.service.CreateSession(context.Background(), f.admin, &domain.CreateSessionRequest{
			Title:   "Backwards",
			StartAt: f.now.Add(time.Hour),
			EndAt:   f.now,
		})

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("rejects unknown visibility", func(t *testing.T) {
		f := newLifecycleFixture(t, false)

		_, _, err := f.service.CreateSession(context.Background(), f.admin, &domain.CreateSessionRequest{
			Title:      "Odd",
			StartAt:    f.now,
			EndAt:      f.now.Add(time.Hour),
			Visibility: "unlisted",
		})

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("multi-select requires max_choices", func(t *testing.T) {
		f := newLifecycleFixture(t, false)

		_, _, err := f.service.CreateSession(context.Background(), f.admin, &domain.CreateSessionRequest{
			Title:    "Multi",
			StartAt:  f.now,
			EndAt:    f.now.Add(time.Hour),
			Settings: domain.CreateSettingsRequest{MultiSelect: true},
		})

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("single-select forces max_choices to one", func(t *testing.T) {
		f := newLifecycleFixture(t, false)

		view := f.createSession(t, domain.CreateSessionRequest{
			Settings: domain.CreateSettingsRequest{MaxChoices: 7},
		})

		assert.Equal(t, 1, view.Settings.MaxChoices)
	})
}

func TestSessionStatusDerivation(t *testing.T) {
	f := newLifecycleFixture(t, false)

	view := f.createSession(t, domain.CreateSessionRequest{
		StartAt: f.now.Add(time.Hour),
		EndAt:   f.now.Add(2 * time.Hour),
	})
	_, _, err := f.service.PublishSession(context.Background(), f.admin, view.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want domain.SessionStatus
	}{
		{"before start", f.now, domain.StatusScheduled},
		{"inside the window", f.now.Add(90 * time.Minute), domain.StatusOpen},
		{"after end", f.now.Add(3 * time.Hour), domain.StatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.service.now = fixedClock(tt.at)
			got, err := f.service.GetSession(context.Background(), view.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestPublishSession(t *testing.T) {
	t.Run("publishes a draft and notifies the creator", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})

		published, _, err := f.service.PublishSession(context.Background(), f.admin, view.ID)
		require.NoError(t, err)
		assert.True(t, published.IsPublished)

		require.Len(t, f.sink.notifications, 1)
		assert.Equal(t, f.admin, f.sink.notifications[0].UserID)
		assert.Equal(t, "session_published", f.sink.notifications[0].Type)
	})

	t.Run("republishing is a no-op", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})

		_, _, err := f.service.PublishSession(context.Background(), f.admin, view.ID)
		require.NoError(t, err)
		_, _, err = f.service.PublishSession(context.Background(), f.admin, view.ID)
		require.NoError(t, err)

		// One publish event, one notification.
		publishEvents := 0
		for _, e := range f.sink.events {
			if e.Action == domain.ActionPublishSession {
				publishEvents++
			}
		}
		assert.Equal(t, 1, publishEvents)
		assert.Len(t, f.sink.notifications, 1)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newLifecycleFixture(t, false)

		_, _, err := f.service.PublishSession(context.Background(), f.admin, uuid.New())

		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

func TestUpdateSession(t *testing.T) {
	t.Run("rewrites fields in place", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})

		title := "Renamed vote"
		visibility := domain.VisibilityPublic
		updated, _, err := f.service.UpdateSession(context.Background(), f.admin, view.ID, &domain.UpdateSessionRequest{
			Title:      &title,
			Visibility: &visibility,
			Settings:   &domain.CreateSettingsRequest{MultiSelect: true, MaxChoices: 3},
		})
		require.NoError(t, err)

		assert.Equal(t, "Renamed vote", updated.Title)
		assert.Equal(t, domain.VisibilityPublic, updated.Visibility)
		assert.Equal(t, 3, updated.Settings.MaxChoices)
	})

	t.Run("rejects a schedule made invalid by the patch", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})

		badEnd := view.StartAt.Add(-time.Minute)
		_, _, err := f.service.UpdateSession(context.Background(), f.admin, view.ID, &domain.UpdateSessionRequest{
			EndAt: &badEnd,
		})

		var validation *domain.ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("published sessions locked under the lock policy", func(t *testing.T) {
		f := newLifecycleFixture(t, true)
		view := f.createSession(t, domain.CreateSessionRequest{})
		_, _, err := f.service.PublishSession(context.Background(), f.admin, view.ID)
		require.NoError(t, err)

		title := "Too late"
		_, _, err = f.service.UpdateSession(context.Background(), f.admin, view.ID, &domain.UpdateSessionRequest{Title: &title})

		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("published sessions editable without the lock policy", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})
		_, _, err := f.service.PublishSession(context.Background(), f.admin, view.ID)
		require.NoError(t, err)

		title := "Still editable"
		updated, _, err := f.service.UpdateSession(context.Background(), f.admin, view.ID, &domain.UpdateSessionRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Still editable", updated.Title)
	})
}

func TestDeleteSession(t *testing.T) {
	t.Run("deletes a session without votes", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})

		_, err := f.service.DeleteSession(context.Background(), f.admin, view.ID, false)
		require.NoError(t, err)

		_, err = f.service.GetSession(context.Background(), view.ID)
		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("recorded votes block deletion", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})
		f.votes.votes = append(f.votes.votes, domain.Vote{ID: uuid.New(), SessionID: view.ID, IsValid: true})

		_, err := f.service.DeleteSession(context.Background(), f.admin, view.ID, false)

		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("destructive override purges votes and deletes", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})
		f.votes.votes = append(f.votes.votes, domain.Vote{ID: uuid.New(), SessionID: view.ID, IsValid: true})

		// The fake rejects the delete with the schema's foreign-key error
		// unless the vote rows go in the same operation.
		_, err := f.service.DeleteSession(context.Background(), f.admin, view.ID, true)
		require.NoError(t, err)
		assert.Empty(t, f.votes.votes)

		_, err = f.service.GetSession(context.Background(), view.ID)
		var notFound *domain.NotFoundError
		require.ErrorAs(t, err, &notFound)
	})
}

func TestCandidateRoster(t *testing.T) {
	t.Run("add assigns insertion order", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})

		first, _, err := f.service.AddCandidate(context.Background(), f.admin, view.ID, &domain.AddCandidateRequest{
			Type: domain.CandidateTypePerson, DisplayName: "Ada",
		})
		require.NoError(t, err)
		second, _, err := f.service.AddCandidate(context.Background(), f.admin, view.ID, &domain.AddCandidateRequest{
			Type: domain.CandidateTypePerson, DisplayName: "Grace",
		})
		require.NoError(t, err)

		assert.Less(t, first.Position, second.Position)
	})

	t.Run("rejects blank display name and unknown type", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})

		var validation *domain.ValidationError

		_, _, err := f.service.AddCandidate(context.Background(), f.admin, view.ID, &domain.AddCandidateRequest{
			Type: domain.CandidateTypePerson,
		})
		require.ErrorAs(t, err, &validation)

		_, _, err = f.service.AddCandidate(context.Background(), f.admin, view.ID, &domain.AddCandidateRequest{
			Type: "party", DisplayName: "Whigs",
		})
		require.ErrorAs(t, err, &validation)
	})

	t.Run("update rewrites presentation fields", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})
		candidate, _, err := f.service.AddCandidate(context.Background(), f.admin, view.ID, &domain.AddCandidateRequest{
			Type: domain.CandidateTypeOption, DisplayName: "Yes",
		})
		require.NoError(t, err)

		name := "Approve"
		updated, _, err := f.service.UpdateCandidate(context.Background(), f.admin, candidate.ID, &domain.UpdateCandidateRequest{
			DisplayName: &name,
		})
		require.NoError(t, err)
		assert.Equal(t, "Approve", updated.DisplayName)
		assert.Equal(t, candidate.Position, updated.Position)
	})

	t.Run("votes block candidate deletion without the override", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		view := f.createSession(t, domain.CreateSessionRequest{})
		candidate, _, err := f.service.AddCandidate(context.Background(), f.admin, view.ID, &domain.AddCandidateRequest{
			Type: domain.CandidateTypeOption, DisplayName: "Yes",
		})
		require.NoError(t, err)
		f.votes.votes = append(f.votes.votes, domain.Vote{ID: uuid.New(), SessionID: view.ID, CandidateID: candidate.ID, IsValid: true})

		_, err = f.service.DeleteCandidate(context.Background(), f.admin, candidate.ID, false)
		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)

		_, err = f.service.DeleteCandidate(context.Background(), f.admin, candidate.ID, true)
		require.NoError(t, err)
		assert.Empty(t, f.votes.votes)
	})

	t.Run("roster locked once published under the lock policy", func(t *testing.T) {
		f := newLifecycleFixture(t, true)
		view := f.createSession(t, domain.CreateSessionRequest{})
		_, _, err := f.service.PublishSession(context.Background(), f.admin, view.ID)
		require.NoError(t, err)

		_, _, err = f.service.AddCandidate(context.Background(), f.admin, view.ID, &domain.AddCandidateRequest{
			Type: domain.CandidateTypePerson, DisplayName: "Latecomer",
		})

		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
	})
}

func TestListSessions(t *testing.T) {
	f := newLifecycleFixture(t, false)

	draft := f.createSession(t, domain.CreateSessionRequest{Title: "Draft only"})
	published := f.createSession(t, domain.CreateSessionRequest{Title: "Live"})
	_, _, err := f.service.PublishSession(context.Background(), f.admin, published.ID)
	require.NoError(t, err)

	listed, err := f.service.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, published.ID, listed[0].ID)

	mine, err := f.service.ListByCreator(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_ = draft
}

func TestListPublished_CachesListing(t *testing.T) {
	f := newLifecycleFixture(t, false)

	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "development", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	f.service.cache = NewResultsCache(client, zap.NewNop())

	view := f.createSession(t, domain.CreateSessionRequest{Title: "Live"})
	_, _, err = f.service.PublishSession(context.Background(), f.admin, view.ID)
	require.NoError(t, err)

	first, err := f.service.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The second read is served from the cached listing.
	again, err := f.service.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, view.ID, again[0].ID)
	assert.Equal(t, 1, f.sessions.listPublishedCalls)

	// Publishing another session drops the cached listing.
	second := f.createSession(t, domain.CreateSessionRequest{Title: "Also live"})
	_, _, err = f.service.PublishSession(context.Background(), f.admin, second.ID)
	require.NoError(t, err)

	refreshed, err := f.service.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Len(t, refreshed, 2)
	assert.Equal(t, 2, f.sessions.listPublishedCalls)
}
