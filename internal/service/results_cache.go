package service

import (
	"context"
	"encoding/json"

	"ballotbox/internal/domain"
	"ballotbox/pkg/redis"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResultsCache keeps results snapshots and the published-session listing in
// redis with short TTLs. Rule state (settings, roster) is deliberately never
// cached here; the engines re-read it on every call. All methods are no-ops
// when redis is not configured.
type ResultsCache struct {
	redis  *redis.Client
	logger *zap.Logger
}

func NewResultsCache(redisClient *redis.Client, logger *zap.Logger) *ResultsCache {
	return &ResultsCache{redis: redisClient, logger: logger}
}

// GetResults returns the cached snapshot for the session, or nil on miss.
func (c *ResultsCache) GetResults(ctx context.Context, sessionID uuid.UUID) *domain.ResultsView {
	if c == nil || c.redis == nil {
		return nil
	}

	data, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeySessionResults(sessionID))
	if err != nil || data == "" {
		return nil
	}

	var view domain.ResultsView
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		c.logger.Warn("cached results snapshot is unreadable",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
		return nil
	}
	return &view
}

// StoreResults caches a freshly generated snapshot. Failures only log; the
// snapshot is already persisted in the system of record.
func (c *ResultsCache) StoreResults(ctx context.Context, sessionID uuid.UUID, view *domain.ResultsView) {
	if c == nil || c.redis == nil {
		return
	}

	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.redis.KeyBuilder.KeySessionResults(sessionID), string(data), redis.TTLResults); err != nil {
		c.logger.Warn("failed to cache results snapshot",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
	}
}

// InvalidateSession drops the session's cached snapshot, called after every
// cast or structural edit so readers never see a tally for retired rules.
func (c *ResultsCache) InvalidateSession(ctx context.Context, sessionID uuid.UUID) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeySessionResults(sessionID)); err != nil {
		c.logger.Warn("failed to invalidate results cache",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
	}
}

// GetPublishedList returns the cached published-session listing. The second
// return reports a hit; an empty listing is cacheable. Status is not part of
// the cached shape, callers derive it from the clock after the read.
func (c *ResultsCache) GetPublishedList(ctx context.Context) ([]domain.VotingSession, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyPublishedList())
	if err != nil || data == "" {
		return nil, false
	}

	var sessions []domain.VotingSession
	if err := json.Unmarshal([]byte(data), &sessions); err != nil {
		c.logger.Warn("cached published listing is unreadable", zap.Error(err))
		return nil, false
	}
	return sessions, true
}

// StorePublishedList caches the published-session listing.
func (c *ResultsCache) StorePublishedList(ctx context.Context, sessions []domain.VotingSession) {
	if c == nil || c.redis == nil {
		return
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.redis.KeyBuilder.KeyPublishedList(), string(data), redis.TTLPublishedList); err != nil {
		c.logger.Warn("failed to cache published listing", zap.Error(err))
	}
}

// InvalidatePublishedList drops the cached published-session listing.
func (c *ResultsCache) InvalidatePublishedList(ctx context.Context) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeyPublishedList()); err != nil {
		c.logger.Warn("failed to invalidate published list cache", zap.Error(err))
	}
}
