package domain

// EventType tags every payload published to a session's broadcast group.
type EventType string

const (
	EventSessionStarted     EventType = "session-started"
	EventQuestionOpened     EventType = "question-opened"
	EventAnswerResult       EventType = "answer-result"
	EventRanks              EventType = "ranks"
	EventLeaderboardChanged EventType = "leaderboard-changed"
	EventGameOver           EventType = "game-over"
	EventError              EventType = "error"
	EventIdle               EventType = "idle"
	EventUserCount          EventType = "user-count"
)

// Event is the envelope carried by the broadcast hub. Payload is one of the
// typed structs below, fixed per event type.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// QuestionOpenedPayload announces an open question. The runner emits it with
// WindowSeconds equal to the full answer window; the resync path reuses the
// shape with the remaining time substituted and IsSync set, so a
// reconnecting client does not reset its locked-in-answer state.
type QuestionOpenedPayload struct {
	Question      PublicQuestion `json:"question"`
	Ordinal       int            `json:"ordinal"`
	Total         int            `json:"total"`
	WindowSeconds int            `json:"windowSeconds"`
	IsSync        bool           `json:"isSync,omitempty"`
}

// AnswerResultPayload reveals the correct option after the window closes.
type AnswerResultPayload struct {
	QuestionID        string `json:"questionId"`
	CorrectAnswerText string `json:"correctAnswerText"`
}

// RanksPayload is the per-question ranking snapshot.
type RanksPayload struct {
	Ranks []RankEntry `json:"ranks"`
}

// GameOverPayload carries the top finishers on normal completion.
type GameOverPayload struct {
	Winners []Winner `json:"winners"`
}

// ErrorPayload surfaces a non-fatal per-question failure to clients.
type ErrorPayload struct {
	Message string `json:"message"`
}

// UserCountPayload reports how many sockets are subscribed to a session.
type UserCountPayload struct {
	SessionCode string `json:"sessionCode"`
	UserCount   int    `json:"userCount"`
}

// SessionStarted builds the session-start signal.
func SessionStarted() Event {
	return Event{Type: EventSessionStarted}
}

// Idle is the resync reply when no question is open.
func Idle() Event {
	return Event{Type: EventIdle}
}
