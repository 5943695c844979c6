package app

import (
	"context"
	"log"

	"live-quiz-service/internal/domain"
)

// runLoop drives one progression through a session's ordered questions. It
// runs in its own goroutine, owns the session's run-lock for its entire
// lifetime, and releases it on every exit path: normal completion, the
// kill-switch break, and a top-level panic.
func (s *Service) runLoop(code string, questions []*domain.Question) {
	ctx := context.Background()
	defer s.releaseRun(code)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("game loop for %s panicked: %v", code, r)
		}
	}()

	total := len(questions)
	for i, question := range questions {
		// Kill-switch poll: an operator stop, reset, or delete moves the
		// status away from ACTIVE and the loop bows out here.
		session, err := s.store.Sessions.Get(ctx, code)
		if err != nil {
			s.publishLoopError(code, question.ID, err)
			s.sleep(s.cooldown)
			continue
		}
		if session.Status != domain.StatusActive {
			log.Printf("game loop for %s stopping, status is %s", code, session.Status)
			s.hub.Publish(code, domain.Idle())
			return
		}

		if err := s.playQuestion(ctx, code, question, i+1, total); err != nil {
			// A single bad question never aborts the session: surface it,
			// give clients a beat, move on.
			s.publishLoopError(code, question.ID, err)
			s.sleep(s.cooldown)
		}
	}

	s.finishGame(ctx, code)
}

// playQuestion runs one full question cycle: open, wait out the window,
// reveal, rank, close, cool down.
func (s *Service) playQuestion(ctx context.Context, code string, question *domain.Question, ordinal, total int) error {
	endsAt := s.now().Add(s.window)
	if err := s.store.Sessions.SetOpenQuestion(ctx, code, question.ID, &endsAt); err != nil {
		return err
	}

	s.hub.Publish(code, domain.Event{
		Type: domain.EventQuestionOpened,
		Payload: domain.QuestionOpenedPayload{
			Question:      question.Public(),
			Ordinal:       ordinal,
			Total:         total,
			WindowSeconds: int(s.window.Seconds()),
		},
	})

	// Advancement is purely time-driven; nobody has to answer for the game
	// to move on.
	s.sleep(s.window)

	correctText, _ := question.CorrectOption()
	s.hub.Publish(code, domain.Event{
		Type: domain.EventAnswerResult,
		Payload: domain.AnswerResultPayload{
			QuestionID:        question.ID,
			CorrectAnswerText: correctText,
		},
	})

	participants, err := s.store.Participants.ListBySession(ctx, code)
	if err != nil {
		return err
	}
	s.hub.Publish(code, domain.Event{
		Type:    domain.EventRanks,
		Payload: domain.RanksPayload{Ranks: rankParticipants(participants)},
	})

	if err := s.store.Sessions.SetOpenQuestion(ctx, code, "", nil); err != nil {
		return err
	}
	s.hub.Publish(code, domain.Event{Type: domain.EventLeaderboardChanged})

	s.sleep(s.cooldown)
	return nil
}

// finishGame marks the session COMPLETED and announces the winners, unless
// an operator already moved it out of ACTIVE.
func (s *Service) finishGame(ctx context.Context, code string) {
	session, err := s.store.Sessions.Get(ctx, code)
	if err != nil {
		log.Printf("game loop for %s could not read final status: %v", code, err)
		return
	}
	if session.Status != domain.StatusActive {
		return
	}
	if err := s.store.Sessions.SetStatus(ctx, code, domain.StatusCompleted, nil); err != nil {
		log.Printf("game loop for %s could not complete session: %v", code, err)
		return
	}
	if err := s.store.Sessions.SetOpenQuestion(ctx, code, "", nil); err != nil {
		log.Printf("game loop for %s could not clear open question: %v", code, err)
	}

	winners := []domain.Winner{}
	participants, err := s.store.Participants.ListBySession(ctx, code)
	if err == nil {
		for i, p := range participants {
			if i == 3 {
				break
			}
			winners = append(winners, domain.Winner{Name: p.Name, Score: p.TotalScore})
		}
	}
	s.hub.Publish(code, domain.Event{
		Type:    domain.EventGameOver,
		Payload: domain.GameOverPayload{Winners: winners},
	})
}

func (s *Service) publishLoopError(code, questionID string, err error) {
	log.Printf("game loop for %s skipping question %s: %v", code, questionID, err)
	s.hub.Publish(code, domain.Event{
		Type:    domain.EventError,
		Payload: domain.ErrorPayload{Message: "question skipped, moving on"},
	})
}

// rankParticipants assigns dense 1-based ranks to an already-sorted
// participant list (score descending, earlier join breaking ties).
func rankParticipants(participants []*domain.Participant) []domain.RankEntry {
	ranks := make([]domain.RankEntry, 0, len(participants))
	for i, p := range participants {
		ranks = append(ranks, domain.RankEntry{
			ParticipantID: p.ID,
			Rank:          i + 1,
			Score:         p.TotalScore,
			Name:          p.Name,
		})
	}
	return ranks
}
