// Package memory holds the in-process store implementations. They are the
// default wiring for single-node deployments and double as test fixtures.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *SessionStore) Create(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Code]; ok {
		return domain.ErrSessionCodeTaken
	}
	copied := *session
	s.sessions[session.Code] = &copied
	return nil
}

func (s *SessionStore) Get(_ context.Context, code string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *SessionStore) List(_ context.Context) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.Status == domain.StatusDeleted {
			continue
		}
		copied := *session
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *SessionStore) ListByStatus(_ context.Context, status domain.SessionStatus) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Session{}
	for _, session := range s.sessions {
		if session.Status == status {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *SessionStore) SetStatus(_ context.Context, code string, status domain.SessionStatus, startTime *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[code]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Status = status
	if startTime != nil {
		session.StartTime = startTime
	}
	return nil
}

func (s *SessionStore) SetOpenQuestion(_ context.Context, code, questionID string, endsAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[code]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.CurrentQuestionID = questionID
	session.QuestionEndsAt = endsAt
	return nil
}

func (s *SessionStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
	return nil
}

// QuestionStore is an in-memory implementation of app.QuestionStore.
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]*domain.Question
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{questions: make(map[string]*domain.Question)}
}

func (s *QuestionStore) Create(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *question
	s.questions[question.ID] = &copied
	return nil
}

func (s *QuestionStore) Get(_ context.Context, id string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	copied := *question
	return &copied, nil
}

func (s *QuestionStore) ListBySession(_ context.Context, sessionCode string) ([]*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Question{}
	for _, question := range s.questions {
		if question.SessionCode == sessionCode {
			copied := *question
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *QuestionStore) Update(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	copied := *question
	s.questions[question.ID] = &copied
	return nil
}

func (s *QuestionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *QuestionStore) Reorder(_ context.Context, sessionCode string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		question, ok := s.questions[id]
		if !ok || question.SessionCode != sessionCode {
			return domain.ErrQuestionNotFound
		}
		question.Order = i
	}
	return nil
}

func (s *QuestionStore) DeleteBySession(_ context.Context, sessionCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, question := range s.questions {
		if question.SessionCode == sessionCode {
			delete(s.questions, id)
		}
	}
	return nil
}

// ParticipantStore is an in-memory implementation of app.ParticipantStore.
// AwardScore holds the write lock across the attempted-set check and the
// score increment, making the pair a single indivisible mutation.
type ParticipantStore struct {
	mu           sync.RWMutex
	participants map[string]*domain.Participant
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{participants: make(map[string]*domain.Participant)}
}

func (s *ParticipantStore) Create(_ context.Context, participant *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *participant
	s.participants[participant.ID] = &copied
	return nil
}

func (s *ParticipantStore) Get(_ context.Context, id string) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participant, ok := s.participants[id]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	copied := *participant
	return &copied, nil
}

func (s *ParticipantStore) FindByName(_ context.Context, sessionCode, name string) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, participant := range s.participants {
		if participant.SessionCode == sessionCode && participant.Name == name {
			copied := *participant
			return &copied, nil
		}
	}
	return nil, domain.ErrParticipantNotFound
}

func (s *ParticipantStore) ListBySession(_ context.Context, sessionCode string) ([]*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Participant{}
	for _, participant := range s.participants {
		if participant.SessionCode == sessionCode {
			copied := *participant
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *ParticipantStore) CountBySession(_ context.Context, sessionCode string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, participant := range s.participants {
		if participant.SessionCode == sessionCode {
			count++
		}
	}
	return count, nil
}

func (s *ParticipantStore) AwardScore(_ context.Context, participantID, questionID string, delta int, correct bool) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	participant, ok := s.participants[participantID]
	if !ok {
		return false, 0, domain.ErrParticipantNotFound
	}
	if participant.Attempted(questionID) {
		return false, participant.TotalScore, nil
	}
	participant.AttemptedQuestions = append(participant.AttemptedQuestions, questionID)
	if correct {
		participant.RightAnswers = append(participant.RightAnswers, questionID)
	}
	participant.TotalScore += delta
	return true, participant.TotalScore, nil
}

func (s *ParticipantStore) DeleteBySession(_ context.Context, sessionCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, participant := range s.participants {
		if participant.SessionCode == sessionCode {
			delete(s.participants, id)
		}
	}
	return nil
}

// ResponseStore is an in-memory implementation of app.ResponseStore with a
// unique (participant, question) index.
type ResponseStore struct {
	mu        sync.RWMutex
	responses []*domain.Response
	seen      map[string]struct{}
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{seen: make(map[string]struct{})}
}

func (s *ResponseStore) Append(_ context.Context, response *domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := response.ParticipantID + "/" + response.QuestionID
	if _, ok := s.seen[key]; ok {
		return domain.ErrDuplicateResponse
	}
	s.seen[key] = struct{}{}
	copied := *response
	s.responses = append(s.responses, &copied)
	return nil
}

func (s *ResponseStore) ListBySession(_ context.Context, sessionCode string) ([]*domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Response{}
	for _, response := range s.responses {
		if response.SessionCode == sessionCode {
			copied := *response
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *ResponseStore) DeleteBySession(_ context.Context, sessionCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.responses[:0]
	for _, response := range s.responses {
		if response.SessionCode == sessionCode {
			delete(s.seen, response.ParticipantID+"/"+response.QuestionID)
			continue
		}
		kept = append(kept, response)
	}
	s.responses = kept
	return nil
}
