package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
)

// QuestionInput is the authoring payload for creating or updating a question.
type QuestionInput struct {
	QuestionText string
	Options      []domain.Option
	Marks        int
}

func (in QuestionInput) validate() error {
	if strings.TrimSpace(in.QuestionText) == "" {
		return fmt.Errorf("question text required: %w", domain.ErrInvalidQuestion)
	}
	if len(in.Options) < 2 {
		return fmt.Errorf("at least two options required: %w", domain.ErrInvalidQuestion)
	}
	correct := 0
	for _, opt := range in.Options {
		if strings.TrimSpace(opt.Text) == "" {
			return fmt.Errorf("option text required: %w", domain.ErrInvalidQuestion)
		}
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return domain.ErrInvalidQuestion
	}
	return nil
}

// CreateQuestion appends a question to a session's ordered list. Authoring
// is locked while the session is ACTIVE.
func (s *Service) CreateQuestion(ctx context.Context, code string, in QuestionInput) (*domain.Question, error) {
	code = domain.NormalizeCode(code)
	session, err := s.GetSession(ctx, code)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.StatusActive {
		return nil, domain.ErrSessionLocked
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	marks := in.Marks
	if marks <= 0 {
		marks = 10
	}

	existing, err := s.store.Questions.ListBySession(ctx, code)
	if err != nil {
		return nil, err
	}
	question := &domain.Question{
		ID:           uuid.NewString(),
		SessionCode:  code,
		QuestionText: strings.TrimSpace(in.QuestionText),
		Options:      in.Options,
		Marks:        marks,
		Order:        len(existing),
		CreatedAt:    s.now(),
	}
	if err := s.store.Questions.Create(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// ListQuestions returns the session's questions in play order.
func (s *Service) ListQuestions(ctx context.Context, code string) ([]*domain.Question, error) {
	return s.store.Questions.ListBySession(ctx, domain.NormalizeCode(code))
}

// UpdateQuestion replaces a question's content in place, keeping its order.
func (s *Service) UpdateQuestion(ctx context.Context, questionID string, in QuestionInput) (*domain.Question, error) {
	question, err := s.store.Questions.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	session, err := s.GetSession(ctx, question.SessionCode)
	if err != nil {
		return nil, err
	}
	if session.Status == domain.StatusActive {
		return nil, domain.ErrSessionLocked
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	question.QuestionText = strings.TrimSpace(in.QuestionText)
	question.Options = in.Options
	if in.Marks > 0 {
		question.Marks = in.Marks
	}
	if err := s.store.Questions.Update(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// DeleteQuestion removes a question and renumbers the rest so orders stay
// contiguous.
func (s *Service) DeleteQuestion(ctx context.Context, questionID string) error {
	question, err := s.store.Questions.Get(ctx, questionID)
	if err != nil {
		return err
	}
	session, err := s.GetSession(ctx, question.SessionCode)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusActive {
		return domain.ErrSessionLocked
	}
	if err := s.store.Questions.Delete(ctx, questionID); err != nil {
		return err
	}
	remaining, err := s.store.Questions.ListBySession(ctx, question.SessionCode)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(remaining))
	for _, q := range remaining {
		ids = append(ids, q.ID)
	}
	return s.store.Questions.Reorder(ctx, question.SessionCode, ids)
}

// MoveQuestion relocates a question to a new index in its session's list.
// Reordering mid-game is rejected to avoid ambiguity about which question
// the loop serves next.
func (s *Service) MoveQuestion(ctx context.Context, questionID string, toIndex int) error {
	question, err := s.store.Questions.Get(ctx, questionID)
	if err != nil {
		return err
	}
	session, err := s.GetSession(ctx, question.SessionCode)
	if err != nil {
		return err
	}
	if session.Status == domain.StatusActive {
		return domain.ErrSessionLocked
	}

	questions, err := s.store.Questions.ListBySession(ctx, question.SessionCode)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(questions))
	from := -1
	for i, q := range questions {
		if q.ID == questionID {
			from = i
		}
		ids = append(ids, q.ID)
	}
	if from == -1 {
		return domain.ErrQuestionNotFound
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex >= len(ids) {
		toIndex = len(ids) - 1
	}
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:toIndex], append([]string{questionID}, ids[toIndex:]...)...)
	return s.store.Questions.Reorder(ctx, question.SessionCode, ids)
}
