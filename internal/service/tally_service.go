package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"ballotbox/internal/domain"
	"ballotbox/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TallyService aggregates valid ballots into per-candidate weighted counts
// and produces signed results snapshots.
type TallyService struct {
	sessions repository.SessionRepository
	votes    repository.VoteRepository
	results  repository.ResultsRepository
	cache    *ResultsCache
	logger   *zap.Logger

	// signingKey keys the snapshot digest. The digest detects post-hoc
	// tampering with a persisted snapshot; it is not a ballot-secrecy
	// mechanism.
	signingKey []byte

	now func() time.Time
}

func NewTallyService(
	sessions repository.SessionRepository,
	votes repository.VoteRepository,
	results repository.ResultsRepository,
	cache *ResultsCache,
	logger *zap.Logger,
	signingKey string,
) *TallyService {
	return &TallyService{
		sessions:   sessions,
		votes:      votes,
		results:    results,
		cache:      cache,
		logger:     logger,
		signingKey: []byte(signingKey),
		now:        time.Now,
	}
}

// ComputeResults scans all valid ballots of the session, sums weight per
// candidate and persists a snapshot. Recomputation with no new votes yields
// the same payload; only the timestamp and signature differ.
func (s *TallyService) ComputeResults(ctx context.Context, sessionID uuid.UUID) (*domain.ResultsView, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &domain.NotFoundError{Entity: "session", ID: sessionID.String()}
	}

	rows, err := s.votes.TallyBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Descending tally, ties broken by candidate insertion order.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Tally != rows[j].Tally {
			return rows[i].Tally > rows[j].Tally
		}
		return rows[i].Position < rows[j].Position
	})

	totalVotes := 0
	entries := make([]domain.CandidateTally, 0, len(rows))
	for _, row := range rows {
		totalVotes += row.Ballots
		entries = append(entries, domain.CandidateTally{
			CandidateID: row.CandidateID,
			Tally:       row.Tally,
		})
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results payload: %w", err)
	}

	generatedAt := s.now().UTC()
	results := &domain.VotingResults{
		SessionID:   sessionID,
		GeneratedAt: generatedAt,
		TotalVotes:  totalVotes,
		Payload:     string(payload),
		Signature:   s.sign(sessionID, generatedAt, string(payload)),
	}

	if err := s.results.Upsert(ctx, results); err != nil {
		return nil, err
	}

	view := buildResultsView(results, rows)
	s.cache.StoreResults(ctx, sessionID, view)

	s.logger.Info("results generated",
		zap.String("session_id", sessionID.String()),
		zap.Int("total_votes", totalVotes),
		zap.Int("candidates", len(rows)))

	return view, nil
}

// GetResults returns the cached snapshot when fresh, recomputing otherwise.
func (s *TallyService) GetResults(ctx context.Context, sessionID uuid.UUID) (*domain.ResultsView, error) {
	if cached := s.cache.GetResults(ctx, sessionID); cached != nil {
		return cached, nil
	}
	return s.ComputeResults(ctx, sessionID)
}

// VerifySnapshot recomputes the digest over a persisted snapshot and reports
// whether it matches the stored signature.
func (s *TallyService) VerifySnapshot(results *domain.VotingResults) bool {
	expected := s.sign(results.SessionID, results.GeneratedAt, results.Payload)
	return hmac.Equal([]byte(expected), []byte(results.Signature))
}

// sign computes the snapshot digest: HMAC-SHA256 over the session id, the
// generation instant and the serialized payload.
func (s *TallyService) sign(sessionID uuid.UUID, generatedAt time.Time, payload string) string {
	mac := hmac.New(sha256.New, s.signingKey)
	fmt.Fprintf(mac, "%s\n%s\n%s", sessionID, generatedAt.UTC().Format(time.RFC3339Nano), payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func buildResultsView(results *domain.VotingResults, rows []repository.TallyRow) *domain.ResultsView {
	entries := make([]domain.ResultsViewEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, domain.ResultsViewEntry{
			CandidateID: row.CandidateID,
			DisplayName: row.DisplayName,
			Tally:       row.Tally,
			Rank:        i + 1,
		})
	}
	return &domain.ResultsView{
		SessionID:   results.SessionID,
		GeneratedAt: results.GeneratedAt,
		TotalVotes:  results.TotalVotes,
		Entries:     entries,
		Signature:   results.Signature,
	}
}
