package app

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
)

// AnswerSubmission is one participant's answer during an open window.
// RemainingSeconds is the client's own countdown reading; it feeds the speed
// bonus only and never gates acceptance.
type AnswerSubmission struct {
	SessionCode      string
	ParticipantID    string
	QuestionID       string
	SelectedOption   string
	RemainingSeconds float64
}

// SubmitAnswer validates, scores, and commits one submission. Duplicate
// submissions come back as a normal result with AlreadyAnswered set; they
// are never an error.
func (s *Service) SubmitAnswer(ctx context.Context, sub AnswerSubmission) (domain.SubmitResult, error) {
	code := domain.NormalizeCode(sub.SessionCode)

	session, err := s.store.Sessions.Get(ctx, code)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	// The server's own deadline is authoritative; a stale or forged client
	// clock cannot keep a closed question open.
	if session.CurrentQuestionID != sub.QuestionID || session.QuestionEndsAt == nil {
		return domain.SubmitResult{}, domain.ErrQuestionClosed
	}
	if !s.now().Before(*session.QuestionEndsAt) {
		return domain.SubmitResult{}, domain.ErrQuestionClosed
	}

	question, err := s.store.Questions.Get(ctx, sub.QuestionID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	participant, err := s.store.Participants.Get(ctx, sub.ParticipantID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if participant.SessionCode != code {
		return domain.SubmitResult{}, domain.ErrParticipantNotFound
	}

	correct := answerMatches(question, sub.SelectedOption)
	delta := scoreDelta(s.game, correct, sub.RemainingSeconds)

	applied, total, err := s.store.Participants.AwardScore(ctx, participant.ID, question.ID, delta, correct)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if !applied {
		return domain.SubmitResult{
			Correct:         correct,
			TotalScore:      total,
			AlreadyAnswered: true,
		}, nil
	}

	// Audit trail is best-effort: a duplicate-key race on a second
	// concurrent attempt must not turn a committed score into a failure.
	audit := &domain.Response{
		SessionCode:    code,
		QuestionID:     question.ID,
		ParticipantID:  participant.ID,
		SelectedOption: sub.SelectedOption,
		IsCorrect:      correct,
		MarksObtained:  delta,
		CreatedAt:      s.now(),
	}
	if err := s.store.Responses.Append(ctx, audit); err != nil && !errors.Is(err, domain.ErrDuplicateResponse) {
		log.Printf("audit write failed for %s/%s: %v", participant.ID, question.ID, err)
	}

	s.hub.Publish(code, domain.Event{Type: domain.EventLeaderboardChanged})

	return domain.SubmitResult{
		Correct:    correct,
		Awarded:    delta,
		TotalScore: total,
	}, nil
}

// answerMatches compares the submitted text against the stored correct
// option, trimming whitespace and case-folding both sides so formatting
// differences never cause a false negative.
func answerMatches(question *domain.Question, selected string) bool {
	correctText, ok := question.CorrectOption()
	if !ok {
		return false
	}
	return normalizeAnswer(selected) == normalizeAnswer(correctText)
}

func normalizeAnswer(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// scoreDelta computes the point award. The reported remaining time is
// clamped into [0, window] so a manipulated client cannot inflate the bonus.
// Wrong answers score zero rather than a penalty.
func scoreDelta(game config.Game, correct bool, remainingSeconds float64) int {
	if !correct {
		return 0
	}
	window := float64(game.WindowSeconds)
	remaining := remainingSeconds
	if remaining < 0 {
		remaining = 0
	}
	if remaining > window {
		remaining = window
	}
	bonus := int(math.Round(float64(game.BonusScale) * remaining / window))
	return game.BasePoints + bonus
}

// remainingOf is shared by resync and tests: seconds left on an open
// question, never negative.
func remainingOf(endsAt time.Time, now time.Time) float64 {
	rem := endsAt.Sub(now).Seconds()
	if rem < 0 {
		return 0
	}
	return rem
}
