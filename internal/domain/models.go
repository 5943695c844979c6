package domain

import (
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of a quiz session.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "WAITING"
	StatusActive    SessionStatus = "ACTIVE"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusDeleted   SessionStatus = "DELETED"
)

// Session is one quiz instance, identified by a unique upper-case code.
// CurrentQuestionID and QuestionEndsAt are set together while a question is
// open and cleared together when it closes; the game runner is their only
// writer while the session is ACTIVE.
type Session struct {
	Code              string        `json:"code"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	Status            SessionStatus `json:"status"`
	CurrentQuestionID string        `json:"currentQuestionId,omitempty"`
	QuestionEndsAt    *time.Time    `json:"questionEndsAt,omitempty"`
	StartTime         *time.Time    `json:"startTime,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// QuestionOpen reports whether the session currently has an open question.
func (s *Session) QuestionOpen() bool {
	return s.CurrentQuestionID != "" && s.QuestionEndsAt != nil
}

// NormalizeCode canonicalizes a session code for lookups.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Option is a possible answer for a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question belongs to exactly one session. Order is unique within the
// session and kept contiguous after reorder/delete.
type Question struct {
	ID           string    `json:"id"`
	SessionCode  string    `json:"sessionCode"`
	QuestionText string    `json:"questionText"`
	Options      []Option  `json:"options"`
	Marks        int       `json:"marks"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CorrectOption returns the text of the first option flagged correct.
func (q *Question) CorrectOption() (string, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt.Text, true
		}
	}
	return "", false
}

// PublicOption is an option with the correctness flag stripped.
type PublicOption struct {
	Text string `json:"text"`
}

// PublicQuestion is the participant-facing view of a question.
type PublicQuestion struct {
	ID           string         `json:"id"`
	QuestionText string         `json:"questionText"`
	Options      []PublicOption `json:"options"`
	Marks        int            `json:"marks"`
}

// Public strips answer correctness from the question.
func (q *Question) Public() PublicQuestion {
	opts := make([]PublicOption, 0, len(q.Options))
	for _, opt := range q.Options {
		opts = append(opts, PublicOption{Text: opt.Text})
	}
	return PublicQuestion{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Options:      opts,
		Marks:        q.Marks,
	}
}

// Participant belongs to exactly one session. AttemptedQuestions holds the
// question IDs already scored for this participant; a question appears there
// at most once, which is the anti-double-scoring guarantee.
type Participant struct {
	ID                 string    `json:"id"`
	SessionCode        string    `json:"sessionCode"`
	Number             string    `json:"participantNumber"`
	Name               string    `json:"name"`
	TotalScore         int       `json:"totalScore"`
	AttemptedQuestions []string  `json:"attemptedQuestions"`
	RightAnswers       []string  `json:"rightAnswers"`
	JoinedAt           time.Time `json:"joinedAt"`
}

// Attempted reports whether the participant was already scored for questionID.
func (p *Participant) Attempted(questionID string) bool {
	for _, id := range p.AttemptedQuestions {
		if id == questionID {
			return true
		}
	}
	return false
}

// Response is the optional audit record of one scored submission. It is
// written best-effort after the score commits and never consulted for
// scoring itself.
type Response struct {
	SessionCode    string    `json:"sessionCode"`
	QuestionID     string    `json:"questionId"`
	ParticipantID  string    `json:"participantId"`
	SelectedOption string    `json:"selectedOption"`
	IsCorrect      bool      `json:"isCorrect"`
	MarksObtained  int       `json:"marksObtained"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RankEntry is one row of the per-question ranking broadcast.
type RankEntry struct {
	ParticipantID string `json:"participantId"`
	Rank          int    `json:"rank"`
	Score         int    `json:"score"`
	Name          string `json:"name"`
}

// LeaderboardEntry is one row of the queryable leaderboard.
type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	Name       string    `json:"name"`
	TotalScore int       `json:"totalScore"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// Winner is a top finisher carried by the game-over event.
type Winner struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// SubmitResult summarizes one answer submission. AlreadyAnswered is a benign
// outcome, not an error: the commit was a no-op because the participant had
// already been scored for the question.
type SubmitResult struct {
	Correct         bool `json:"correct"`
	Awarded         int  `json:"awarded"`
	TotalScore      int  `json:"totalScore"`
	AlreadyAnswered bool `json:"alreadyAnswered"`
}
