package app

import (
	"context"
	"math"

	"live-quiz-service/internal/domain"
)

// Resync answers "what is happening right now" for a freshly (re)connected
// client. With no open question, or a deadline the loop has not yet caught
// up to close, the reply is idle; otherwise it is the question-opened
// payload with the remaining time substituted for the window and IsSync set.
func (s *Service) Resync(ctx context.Context, code string) (domain.Event, error) {
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return domain.Event{}, err
	}
	if !session.QuestionOpen() {
		return domain.Idle(), nil
	}

	remaining := remainingOf(*session.QuestionEndsAt, s.now())
	if remaining <= 0 {
		return domain.Idle(), nil
	}

	question, err := s.store.Questions.Get(ctx, session.CurrentQuestionID)
	if err != nil {
		return domain.Event{}, err
	}
	questions, err := s.store.Questions.ListBySession(ctx, session.Code)
	if err != nil {
		return domain.Event{}, err
	}
	ordinal := 0
	for i, q := range questions {
		if q.ID == question.ID {
			ordinal = i + 1
			break
		}
	}

	return domain.Event{
		Type: domain.EventQuestionOpened,
		Payload: domain.QuestionOpenedPayload{
			Question:      question.Public(),
			Ordinal:       ordinal,
			Total:         len(questions),
			WindowSeconds: int(math.Ceil(remaining)),
			IsSync:        true,
		},
	}, nil
}
