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

func newTestCache(t *testing.T) (*ResultsCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "development", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewResultsCache(client, zap.NewNop()), mr
}

func sampleView(sessionID uuid.UUID) *domain.ResultsView {
	return &domain.ResultsView{
		SessionID:   sessionID,
		GeneratedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		TotalVotes:  4,
		Entries: []domain.ResultsViewEntry{
			{CandidateID: uuid.New(), DisplayName: "Ada", Tally: 3, Rank: 1},
			{CandidateID: uuid.New(), DisplayName: "Grace", Tally: 1, Rank: 2},
		},
		Signature: "deadbeef",
	}
}

func TestResultsCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	sessionID := uuid.New()

	assert.Nil(t, cache.GetResults(context.Background(), sessionID))

	stored := sampleView(sessionID)
	cache.StoreResults(context.Background(), sessionID, stored)

	got := cache.GetResults(context.Background(), sessionID)
	require.NotNil(t, got)
	assert.Equal(t, stored.SessionID, got.SessionID)
	assert.Equal(t, stored.TotalVotes, got.TotalVotes)
	assert.Equal(t, stored.Signature, got.Signature)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, stored.Entries[0].CandidateID, got.Entries[0].CandidateID)
}

func TestResultsCache_InvalidateSession(t *testing.T) {
	cache, _ := newTestCache(t)
	sessionID := uuid.New()

	cache.StoreResults(context.Background(), sessionID, sampleView(sessionID))
	require.NotNil(t, cache.GetResults(context.Background(), sessionID))

	cache.InvalidateSession(context.Background(), sessionID)
	assert.Nil(t, cache.GetResults(context.Background(), sessionID))
}

func TestResultsCache_SnapshotExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	sessionID := uuid.New()

	cache.StoreResults(context.Background(), sessionID, sampleView(sessionID))

	mr.FastForward(redis.TTLResults + time.Second)
	assert.Nil(t, cache.GetResults(context.Background(), sessionID))
}

func TestResultsCache_CorruptEntryIsAMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	sessionID := uuid.New()

	cache.StoreResults(context.Background(), sessionID, sampleView(sessionID))

	// Overwrite the only key with garbage.
	for _, key := range mr.Keys() {
		require.NoError(t, mr.Set(key, "not json"))
	}

	assert.Nil(t, cache.GetResults(context.Background(), sessionID))
}

func TestResultsCache_PublishedList(t *testing.T) {
	sessions := []domain.VotingSession{
		{ID: uuid.New(), Title: "Live", IsPublished: true},
		{ID: uuid.New(), Title: "Also live", IsPublished: true},
	}

	t.Run("round trip", func(t *testing.T) {
		cache, _ := newTestCache(t)

		_, hit := cache.GetPublishedList(context.Background())
		assert.False(t, hit)

		cache.StorePublishedList(context.Background(), sessions)

		got, hit := cache.GetPublishedList(context.Background())
		require.True(t, hit)
		require.Len(t, got, 2)
		assert.Equal(t, sessions[0].ID, got[0].ID)
		assert.Equal(t, sessions[1].Title, got[1].Title)
	})

	t.Run("an empty listing is a hit", func(t *testing.T) {
		cache, _ := newTestCache(t)

		cache.StorePublishedList(context.Background(), []domain.VotingSession{})

		got, hit := cache.GetPublishedList(context.Background())
		assert.True(t, hit)
		assert.Empty(t, got)
	})

	t.Run("invalidation drops the listing", func(t *testing.T) {
		cache, _ := newTestCache(t)

		cache.StorePublishedList(context.Background(), sessions)
		cache.InvalidatePublishedList(context.Background())

		_, hit := cache.GetPublishedList(context.Background())
		assert.False(t, hit)
	})

	t.Run("listing expires", func(t *testing.T) {
		cache, mr := newTestCache(t)

		cache.StorePublishedList(context.Background(), sessions)

		mr.FastForward(redis.TTLPublishedList + time.Second)
		_, hit := cache.GetPublishedList(context.Background())
		assert.False(t, hit)
	})
}

func TestResultsCache_NoRedisIsNoop(t *testing.T) {
	cache := NewResultsCache(nil, zap.NewNop())
	sessionID := uuid.New()

	cache.StoreResults(context.Background(), sessionID, sampleView(sessionID))
	assert.Nil(t, cache.GetResults(context.Background(), sessionID))
	cache.InvalidateSession(context.Background(), sessionID)

	cache.StorePublishedList(context.Background(), nil)
	_, hit := cache.GetPublishedList(context.Background())
	assert.False(t, hit)
	cache.InvalidatePublishedList(context.Background())
}
