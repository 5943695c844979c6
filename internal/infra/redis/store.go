// Package redis holds store implementations backed by Redis, for
// deployments where live quiz state must survive a process restart.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/domain"
)

// Key layout:
//
//	quiz:sessions                      set of session codes
//	quiz:session:{code}                session JSON
//	quiz:question:{id}                 question JSON
//	quiz:{code}:question-ids           set of question ids
//	quiz:participant:{id}              participant JSON (static fields)
//	quiz:{code}:participant-ids        set of participant ids
//	quiz:score:{participantID}         integer total score
//	quiz:attempted:{participantID}     set of scored question ids
//	quiz:right:{participantID}         subset answered correctly
//	quiz:response:{participantID}:{questionID}  audit JSON (acts as unique index)
//	quiz:{code}:responses              set of response keys

// SessionStore is a Redis-backed implementation of app.SessionStore.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(code string) string { return "quiz:session:" + code }

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, sessionKey(session.Code), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return domain.ErrSessionCodeTaken
	}
	return s.client.SAdd(ctx, "quiz:sessions", session.Code).Err()
}

func (s *SessionStore) Get(ctx context.Context, code string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) List(ctx context.Context) ([]*domain.Session, error) {
	codes, err := s.client.SMembers(ctx, "quiz:sessions").Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := []*domain.Session{}
	for _, code := range codes {
		session, err := s.Get(ctx, code)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.Status == domain.StatusDeleted {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *SessionStore) ListByStatus(ctx context.Context, status domain.SessionStatus) ([]*domain.Session, error) {
	codes, err := s.client.SMembers(ctx, "quiz:sessions").Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := []*domain.Session{}
	for _, code := range codes {
		session, err := s.Get(ctx, code)
		if errors.Is(err, domain.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.Status == status {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *SessionStore) SetStatus(ctx context.Context, code string, status domain.SessionStatus, startTime *time.Time) error {
	session, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	session.Status = status
	if startTime != nil {
		session.StartTime = startTime
	}
	return s.put(ctx, session)
}

func (s *SessionStore) SetOpenQuestion(ctx context.Context, code, questionID string, endsAt *time.Time) error {
	session, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	session.CurrentQuestionID = questionID
	session.QuestionEndsAt = endsAt
	return s.put(ctx, session)
}

func (s *SessionStore) Delete(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, sessionKey(code)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return s.client.SRem(ctx, "quiz:sessions", code).Err()
}

func (s *SessionStore) put(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.Code), data, 0).Err()
}

// QuestionStore is a Redis-backed implementation of app.QuestionStore.
type QuestionStore struct {
	client *redis.Client
}

func NewQuestionStore(client *redis.Client) *QuestionStore {
	return &QuestionStore{client: client}
}

func questionKey(id string) string         { return "quiz:question:" + id }
func questionSetKey(code string) string    { return "quiz:" + code + ":question-ids" }
func participantKey(id string) string      { return "quiz:participant:" + id }
func participantSetKey(code string) string { return "quiz:" + code + ":participant-ids" }
func scoreKey(id string) string            { return "quiz:score:" + id }
func attemptedKey(id string) string        { return "quiz:attempted:" + id }
func rightKey(id string) string            { return "quiz:right:" + id }

func (s *QuestionStore) Create(ctx context.Context, question *domain.Question) error {
	data, err := json.Marshal(question)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, questionKey(question.ID), data, 0)
	pipe.SAdd(ctx, questionSetKey(question.SessionCode), question.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *QuestionStore) Get(ctx context.Context, id string) (*domain.Question, error) {
	raw, err := s.client.Get(ctx, questionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	var question domain.Question
	if err := json.Unmarshal(raw, &question); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}
	return &question, nil
}

func (s *QuestionStore) ListBySession(ctx context.Context, sessionCode string) ([]*domain.Question, error) {
	ids, err := s.client.SMembers(ctx, questionSetKey(sessionCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := []*domain.Question{}
	for _, id := range ids {
		question, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrQuestionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, question)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *QuestionStore) Update(ctx context.Context, question *domain.Question) error {
	if _, err := s.Get(ctx, question.ID); err != nil {
		return err
	}
	data, err := json.Marshal(question)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, questionKey(question.ID), data, 0).Err()
}

func (s *QuestionStore) Delete(ctx context.Context, id string) error {
	question, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, questionKey(id))
	pipe.SRem(ctx, questionSetKey(question.SessionCode), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *QuestionStore) Reorder(ctx context.Context, sessionCode string, ids []string) error {
	for i, id := range ids {
		question, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if question.SessionCode != sessionCode {
			return domain.ErrQuestionNotFound
		}
		question.Order = i
		if err := s.Update(ctx, question); err != nil {
			return err
		}
	}
	return nil
}

func (s *QuestionStore) DeleteBySession(ctx context.Context, sessionCode string) error {
	ids, err := s.client.SMembers(ctx, questionSetKey(sessionCode)).Result()
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, questionKey(id))
	}
	pipe.Del(ctx, questionSetKey(sessionCode))
	_, err = pipe.Exec(ctx)
	return err
}

// ParticipantStore is a Redis-backed implementation of app.ParticipantStore.
//
// The anti-double-scoring guard is SADD itself: adding the question to the
// participant's attempted set returns whether the member was new, and only
// the caller that observed 1 runs the INCRBY. Both commands are atomic in
// Redis, so concurrent duplicates collapse to exactly one score change.
//
// A crash between the SADD and the INCRBY leaves the question marked
// attempted with no points credited; a retry cannot score it twice.
type ParticipantStore struct {
	client *redis.Client
}

func NewParticipantStore(client *redis.Client) *ParticipantStore {
	return &ParticipantStore{client: client}
}

func (s *ParticipantStore) Create(ctx context.Context, participant *domain.Participant) error {
	data, err := json.Marshal(participant)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, participantKey(participant.ID), data, 0)
	pipe.SAdd(ctx, participantSetKey(participant.SessionCode), participant.ID)
	pipe.Set(ctx, scoreKey(participant.ID), participant.TotalScore, 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *ParticipantStore) Get(ctx context.Context, id string) (*domain.Participant, error) {
	raw, err := s.client.Get(ctx, participantKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	var participant domain.Participant
	if err := json.Unmarshal(raw, &participant); err != nil {
		return nil, fmt.Errorf("decode participant: %w", err)
	}
	if score, err := s.client.Get(ctx, scoreKey(id)).Int(); err == nil {
		participant.TotalScore = score
	}
	if attempted, err := s.client.SMembers(ctx, attemptedKey(id)).Result(); err == nil {
		participant.AttemptedQuestions = attempted
	}
	if right, err := s.client.SMembers(ctx, rightKey(id)).Result(); err == nil {
		participant.RightAnswers = right
	}
	return &participant, nil
}

func (s *ParticipantStore) FindByName(ctx context.Context, sessionCode, name string) (*domain.Participant, error) {
	participants, err := s.ListBySession(ctx, sessionCode)
	if err != nil {
		return nil, err
	}
	for _, participant := range participants {
		if participant.Name == name {
			return participant, nil
		}
	}
	return nil, domain.ErrParticipantNotFound
}

func (s *ParticipantStore) ListBySession(ctx context.Context, sessionCode string) ([]*domain.Participant, error) {
	ids, err := s.client.SMembers(ctx, participantSetKey(sessionCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := []*domain.Participant{}
	for _, id := range ids {
		participant, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrParticipantNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, participant)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *ParticipantStore) CountBySession(ctx context.Context, sessionCode string) (int, error) {
	count, err := s.client.SCard(ctx, participantSetKey(sessionCode)).Result()
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return int(count), nil
}

func (s *ParticipantStore) AwardScore(ctx context.Context, participantID, questionID string, delta int, correct bool) (bool, int, error) {
	if exists, err := s.client.Exists(ctx, participantKey(participantID)).Result(); err != nil {
		return false, 0, fmt.Errorf("award score: %w", err)
	} else if exists == 0 {
		return false, 0, domain.ErrParticipantNotFound
	}

	added, err := s.client.SAdd(ctx, attemptedKey(participantID), questionID).Result()
	if err != nil {
		return false, 0, fmt.Errorf("award score: %w", err)
	}
	if added == 0 {
		total, _ := s.client.Get(ctx, scoreKey(participantID)).Int()
		return false, total, nil
	}

	if correct {
		if err := s.client.SAdd(ctx, rightKey(participantID), questionID).Err(); err != nil {
			return false, 0, fmt.Errorf("award score: %w", err)
		}
	}
	total, err := s.client.IncrBy(ctx, scoreKey(participantID), int64(delta)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("award score: %w", err)
	}
	return true, int(total), nil
}

func (s *ParticipantStore) DeleteBySession(ctx context.Context, sessionCode string) error {
	ids, err := s.client.SMembers(ctx, participantSetKey(sessionCode)).Result()
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, participantKey(id), scoreKey(id), attemptedKey(id), rightKey(id))
	}
	pipe.Del(ctx, participantSetKey(sessionCode))
	_, err = pipe.Exec(ctx)
	return err
}

// ResponseStore is a Redis-backed implementation of app.ResponseStore. The
// response key doubles as the unique (participant, question) index via SetNX.
type ResponseStore struct {
	client *redis.Client
}

func NewResponseStore(client *redis.Client) *ResponseStore {
	return &ResponseStore{client: client}
}

func responseKey(participantID, questionID string) string {
	return "quiz:response:" + participantID + ":" + questionID
}

func responseSetKey(code string) string { return "quiz:" + code + ":responses" }

func (s *ResponseStore) Append(ctx context.Context, response *domain.Response) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	key := responseKey(response.ParticipantID, response.QuestionID)
	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("append response: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateResponse
	}
	return s.client.SAdd(ctx, responseSetKey(response.SessionCode), key).Err()
}

func (s *ResponseStore) ListBySession(ctx context.Context, sessionCode string) ([]*domain.Response, error) {
	keys, err := s.client.SMembers(ctx, responseSetKey(sessionCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := []*domain.Response{}
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get response: %w", err)
		}
		var response domain.Response
		if err := json.Unmarshal(raw, &response); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		out = append(out, &response)
	}
	return out, nil
}

func (s *ResponseStore) DeleteBySession(ctx context.Context, sessionCode string) error {
	keys, err := s.client.SMembers(ctx, responseSetKey(sessionCode)).Result()
	if err != nil {
		return fmt.Errorf("list responses: %w", err)
	}
	pipe := s.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	pipe.Del(ctx, responseSetKey(sessionCode))
	_, err = pipe.Exec(ctx)
	return err
}
