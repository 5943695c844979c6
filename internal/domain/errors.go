package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session code resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCodeTaken is returned when creating a session with a code already in use.
	ErrSessionCodeTaken = errors.New("session code already exists")
	// ErrSessionNotActive is returned when an operation requires an ACTIVE session.
	ErrSessionNotActive = errors.New("session is not active")
	// ErrSessionLocked is returned when editing questions while the game is running.
	ErrSessionLocked = errors.New("session is active, questions are locked")
	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid session status transition")
	// ErrNoQuestions is returned when starting a session that has no questions.
	ErrNoQuestions = errors.New("session has no questions")
	// ErrGameRunning is returned when a second start races an already-running loop.
	ErrGameRunning = errors.New("game loop already running for session")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionClosed is returned when a submission misses the open window.
	ErrQuestionClosed = errors.New("question is not open for answers")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrInvalidQuestion indicates malformed question content at creation.
	ErrInvalidQuestion = errors.New("question must have options with exactly one correct")
	// ErrInvalidName rejects participant names that are too short.
	ErrInvalidName = errors.New("name must be at least 2 characters")
	// ErrInvalidCode rejects blank session codes at creation.
	ErrInvalidCode = errors.New("session code required")
	// ErrDuplicateResponse guards the audit trail unique index.
	ErrDuplicateResponse = errors.New("response already recorded")
)
