package app

import (
	"context"
	"time"

	"live-quiz-service/internal/domain"
)

// SessionStore persists quiz sessions keyed by normalized session code.
type SessionStore interface {
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, code string) (*domain.Session, error)
	// List returns non-deleted sessions, newest first.
	List(ctx context.Context) ([]*domain.Session, error)
	// ListByStatus returns sessions currently in the given status.
	ListByStatus(ctx context.Context, status domain.SessionStatus) ([]*domain.Session, error)
	SetStatus(ctx context.Context, code string, status domain.SessionStatus, startTime *time.Time) error
	// SetOpenQuestion sets or clears the open-question pair. Pass empty id
	// and nil deadline to clear; both are always written together.
	SetOpenQuestion(ctx context.Context, code, questionID string, endsAt *time.Time) error
	Delete(ctx context.Context, code string) error
}

// QuestionStore persists a session's ordered question list.
type QuestionStore interface {
	Create(ctx context.Context, question *domain.Question) error
	Get(ctx context.Context, id string) (*domain.Question, error)
	// ListBySession returns the session's questions sorted by order.
	ListBySession(ctx context.Context, sessionCode string) ([]*domain.Question, error)
	Update(ctx context.Context, question *domain.Question) error
	Delete(ctx context.Context, id string) error
	// Reorder rewrites the order of every question in the session; ids is
	// the complete list in the new order.
	Reorder(ctx context.Context, sessionCode string, ids []string) error
	DeleteBySession(ctx context.Context, sessionCode string) error
}

// ParticipantStore persists participants and owns the scoring guard.
type ParticipantStore interface {
	Create(ctx context.Context, participant *domain.Participant) error
	Get(ctx context.Context, id string) (*domain.Participant, error)
	FindByName(ctx context.Context, sessionCode, name string) (*domain.Participant, error)
	// ListBySession returns participants ordered by score descending,
	// join time ascending.
	ListBySession(ctx context.Context, sessionCode string) ([]*domain.Participant, error)
	CountBySession(ctx context.Context, sessionCode string) (int, error)
	// AwardScore commits a scoring decision for (participant, question) as a
	// single indivisible conditional mutation: add delta to TotalScore and
	// record the question as attempted (and right, when correct), but only
	// if the question is not already in the participant's attempted set.
	// Returns applied=false, with no state change, when it already was.
	AwardScore(ctx context.Context, participantID, questionID string, delta int, correct bool) (applied bool, total int, err error)
	DeleteBySession(ctx context.Context, sessionCode string) error
}

// ResponseStore is the optional audit trail. Append returns
// domain.ErrDuplicateResponse when a row for (participant, question) exists;
// callers treat that as benign.
type ResponseStore interface {
	Append(ctx context.Context, response *domain.Response) error
	ListBySession(ctx context.Context, sessionCode string) ([]*domain.Response, error)
	DeleteBySession(ctx context.Context, sessionCode string) error
}

// Store bundles the four entity stores behind one dependency.
type Store struct {
	Sessions     SessionStore
	Questions    QuestionStore
	Participants ParticipantStore
	Responses    ResponseStore
}

// Publisher is the broadcast surface the services need.
type Publisher interface {
	Publish(sessionCode string, event domain.Event)
}
