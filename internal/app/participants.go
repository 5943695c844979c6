package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
)

// JoinResult tells a joining client who they are in the session.
type JoinResult struct {
	ParticipantID string `json:"participantId"`
	Number        string `json:"participantNumber"`
	Name          string `json:"name"`
	SessionCode   string `json:"sessionCode"`
	SessionTitle  string `json:"sessionTitle"`
	Rejoined      bool   `json:"rejoined"`
}

// Join registers a participant in a WAITING or ACTIVE session. Joining
// again under the same name is a welcome-back, not a duplicate.
func (s *Service) Join(ctx context.Context, code, name string) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return JoinResult{}, domain.ErrInvalidName
	}
	code = domain.NormalizeCode(code)
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	if session.Status != domain.StatusWaiting && session.Status != domain.StatusActive {
		return JoinResult{}, domain.ErrSessionNotActive
	}

	if existing, err := s.store.Participants.FindByName(ctx, code, name); err == nil {
		return JoinResult{
			ParticipantID: existing.ID,
			Number:        existing.Number,
			Name:          existing.Name,
			SessionCode:   code,
			SessionTitle:  session.Title,
			Rejoined:      true,
		}, nil
	} else if !errors.Is(err, domain.ErrParticipantNotFound) {
		return JoinResult{}, err
	}

	count, err := s.store.Participants.CountBySession(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	participant := &domain.Participant{
		ID:          uuid.NewString(),
		SessionCode: code,
		Number:      fmt.Sprintf("P%03d", count+1),
		Name:        name,
		JoinedAt:    s.now(),
	}
	if err := s.store.Participants.Create(ctx, participant); err != nil {
		return JoinResult{}, err
	}
	return JoinResult{
		ParticipantID: participant.ID,
		Number:        participant.Number,
		Name:          participant.Name,
		SessionCode:   code,
		SessionTitle:  session.Title,
	}, nil
}

// Leaderboard returns the session's standings, capped at 50 rows.
func (s *Service) Leaderboard(ctx context.Context, code string) ([]domain.LeaderboardEntry, error) {
	participants, err := s.store.Participants.ListBySession(ctx, domain.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if len(participants) > 50 {
		participants = participants[:50]
	}
	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for i, p := range participants {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:       i + 1,
			Name:       p.Name,
			TotalScore: p.TotalScore,
			JoinedAt:   p.JoinedAt,
		})
	}
	return entries, nil
}

// Responses exposes the audit trail for post-game review.
func (s *Service) Responses(ctx context.Context, code string) ([]*domain.Response, error) {
	return s.store.Responses.ListBySession(ctx, domain.NormalizeCode(code))
}
