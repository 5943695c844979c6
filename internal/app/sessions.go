package app

import (
	"context"
	"fmt"

	"live-quiz-service/internal/domain"
)

// CreateSession registers a new session in the WAITING lobby state. The code
// is upper-cased for consistency; a duplicate code is a conflict.
func (s *Service) CreateSession(ctx context.Context, code, title, description string) (*domain.Session, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	session := &domain.Session{
		Code:        code,
		Title:       title,
		Description: description,
		Status:      domain.StatusWaiting,
		CreatedAt:   s.now(),
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession looks a session up by code, case-insensitively. Soft-deleted
// sessions are not found.
func (s *Service) GetSession(ctx context.Context, code string) (*domain.Session, error) {
	session, err := s.store.Sessions.Get(ctx, domain.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if session.Status == domain.StatusDeleted {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns all non-deleted sessions, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	return s.store.Sessions.List(ctx)
}

// StartGame flips WAITING to ACTIVE and launches the game loop. Starting
// requires at least one question; a second concurrent start loses the
// run-lock race and gets ErrGameRunning.
func (s *Service) StartGame(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusWaiting {
		return fmt.Errorf("start from %s: %w", session.Status, domain.ErrInvalidTransition)
	}
	questions, err := s.store.Questions.ListBySession(ctx, code)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}

	if !s.acquireRun(code) {
		return domain.ErrGameRunning
	}

	startTime := s.now()
	if err := s.store.Sessions.SetStatus(ctx, code, domain.StatusActive, &startTime); err != nil {
		s.releaseRun(code)
		return err
	}
	s.hub.Publish(code, domain.SessionStarted())

	go s.runLoop(code, questions)
	return nil
}

// StopGame force-completes an ACTIVE session. The running loop observes the
// status change at its next kill-switch poll and exits; the open-question
// pair is cleared here so resync immediately reports idle.
func (s *Service) StopGame(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusActive {
		return fmt.Errorf("stop from %s: %w", session.Status, domain.ErrInvalidTransition)
	}
	if err := s.store.Sessions.SetStatus(ctx, code, domain.StatusCompleted, nil); err != nil {
		return err
	}
	return s.store.Sessions.SetOpenQuestion(ctx, code, "", nil)
}

// ResetSession returns a session to the WAITING lobby: participants and
// responses are wiped, questions are kept, and the open-question pair is
// cleared. A loop still mid-cycle self-terminates at its next status poll.
func (s *Service) ResetSession(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusWaiting {
		return nil
	}
	if err := s.store.Sessions.SetStatus(ctx, code, domain.StatusWaiting, nil); err != nil {
		return err
	}
	if err := s.store.Sessions.SetOpenQuestion(ctx, code, "", nil); err != nil {
		return err
	}
	if err := s.store.Participants.DeleteBySession(ctx, code); err != nil {
		return err
	}
	return s.store.Responses.DeleteBySession(ctx, code)
}

// DeleteSession soft-deletes a session from any state. The open-question
// pair is cleared so a dangling deadline cannot survive the transition.
func (s *Service) DeleteSession(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	if _, err := s.GetSession(ctx, code); err != nil {
		return err
	}
	if err := s.store.Sessions.SetStatus(ctx, code, domain.StatusDeleted, nil); err != nil {
		return err
	}
	return s.store.Sessions.SetOpenQuestion(ctx, code, "", nil)
}

// PurgeSession physically removes a session and everything under it.
func (s *Service) PurgeSession(ctx context.Context, code string) error {
	code = domain.NormalizeCode(code)
	if err := s.store.Responses.DeleteBySession(ctx, code); err != nil {
		return err
	}
	if err := s.store.Participants.DeleteBySession(ctx, code); err != nil {
		return err
	}
	if err := s.store.Questions.DeleteBySession(ctx, code); err != nil {
		return err
	}
	return s.store.Sessions.Delete(ctx, code)
}

// RecoverSessions reconciles store state with the (empty) run-lock registry
// after a process restart: any session left ACTIVE with a stale
// open-question deadline cannot legitimately be owned by a loop, so its
// pair is cleared. Callers skip recovery when the store is unreachable and
// retry on next startup.
func (s *Service) RecoverSessions(ctx context.Context) error {
	active, err := s.store.Sessions.ListByStatus(ctx, domain.StatusActive)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	for _, session := range active {
		if s.LoopRunning(session.Code) {
			continue
		}
		if session.QuestionOpen() {
			if err := s.store.Sessions.SetOpenQuestion(ctx, session.Code, "", nil); err != nil {
				return fmt.Errorf("clear open question for %s: %w", session.Code, err)
			}
		}
	}
	return nil
}
