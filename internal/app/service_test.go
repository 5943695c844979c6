package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

func newTestService(t *testing.T) (*app.Service, *broadcast.Hub) {
	t.Helper()
	service, hub, _ := newTestServiceWithStore(t)
	return service, hub
}

func newTestServiceWithStore(t *testing.T) (*app.Service, *broadcast.Hub, app.Store) {
	t.Helper()
	store := app.Store{
		Sessions:     memory.NewSessionStore(),
		Questions:    memory.NewQuestionStore(),
		Participants: memory.NewParticipantStore(),
		Responses:    memory.NewResponseStore(),
	}
	hub := broadcast.NewHub()
	return app.NewService(store, hub, config.DefaultGame()), hub, store
}

func seedSession(t *testing.T, service *app.Service, code string, questions ...app.QuestionInput) {
	t.Helper()
	ctx := context.Background()
	if _, err := service.CreateSession(ctx, code, "Test Quiz", ""); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, q := range questions {
		if _, err := service.CreateQuestion(ctx, code, q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
}

func capitalQuestion() app.QuestionInput {
	return app.QuestionInput{
		QuestionText: "What is the capital of France?",
		Options: []domain.Option{
			{Text: "London"},
			{Text: "Paris", IsCorrect: true},
			{Text: "Berlin"},
		},
		Marks: 10,
	}
}

func answerQuestion() app.QuestionInput {
	return app.QuestionInput{
		QuestionText: "The answer to everything?",
		Options: []domain.Option{
			{Text: "42", IsCorrect: true},
			{Text: "7"},
		},
		Marks: 10,
	}
}

func TestCreateSessionNormalizesAndConflicts(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "quiz1", "Friday Quiz", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if session.Code != "QUIZ1" {
		t.Fatalf("expected upper-cased code, got %s", session.Code)
	}
	if session.Status != domain.StatusWaiting {
		t.Fatalf("expected WAITING, got %s", session.Status)
	}

	if _, err := service.CreateSession(ctx, "Quiz1", "Again", ""); err != domain.ErrSessionCodeTaken {
		t.Fatalf("expected code conflict, got %v", err)
	}

	if _, err := service.GetSession(ctx, "quiz1"); err != nil {
		t.Fatalf("case-insensitive lookup: %v", err)
	}

	if _, err := service.CreateSession(ctx, "   ", "Blank Code", ""); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode for blank code, got %v", err)
	}
}

func TestJoinAndRejoin(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	seedSession(t, service, "QUIZ1", capitalQuestion())

	joined, err := service.Join(ctx, "QUIZ1", "  Alice ")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.Name != "Alice" || joined.Number != "P001" {
		t.Fatalf("unexpected join result %+v", joined)
	}

	again, err := service.Join(ctx, "quiz1", "Alice")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !again.Rejoined || again.ParticipantID != joined.ParticipantID {
		t.Fatalf("expected welcome-back with same id, got %+v", again)
	}

	if _, err := service.Join(ctx, "QUIZ1", "A"); err != domain.ErrInvalidName {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestStartRequiresQuestions(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	if _, err := service.CreateSession(ctx, "EMPTY", "No Questions", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := service.StartGame(ctx, "EMPTY"); err != domain.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestQuestionAuthoringLockedWhileActive(t *testing.T) {
	service, _ := newTestService(t)
	service.SetLoopTimings(50*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()
	seedSession(t, service, "LOCK1", capitalQuestion(), answerQuestion())

	questions, err := service.ListQuestions(ctx, "LOCK1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	// Reorder succeeds while WAITING.
	if err := service.MoveQuestion(ctx, questions[1].ID, 0); err != nil {
		t.Fatalf("move while waiting: %v", err)
	}

	if err := service.StartGame(ctx, "LOCK1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The same reorder is rejected mid-game.
	if err := service.MoveQuestion(ctx, questions[1].ID, 1); err != domain.ErrSessionLocked {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}
	if _, err := service.CreateQuestion(ctx, "LOCK1", capitalQuestion()); err != domain.ErrSessionLocked {
		t.Fatalf("expected ErrSessionLocked on create, got %v", err)
	}
}

func TestConcurrentSubmissionsScoreOnce(t *testing.T) {
	service, hub := newTestService(t)
	service.SetLoopTimings(500*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()
	seedSession(t, service, "RACE1", capitalQuestion())

	joined, err := service.Join(ctx, "RACE1", "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	hubEvents, cancel := hub.Join("RACE1")
	defer cancel()
	if err := service.StartGame(ctx, "RACE1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	opened := waitForEvent(t, hubEvents, domain.EventQuestionOpened)
	questionID := opened.Payload.(domain.QuestionOpenedPayload).Question.ID

	const attempts = 16
	var wg sync.WaitGroup
	applied := 0
	duplicates := 0
	var mu sync.Mutex
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := service.SubmitAnswer(ctx, app.AnswerSubmission{
				SessionCode:      "RACE1",
				ParticipantID:    joined.ParticipantID,
				QuestionID:       questionID,
				SelectedOption:   "Paris",
				RemainingSeconds: 10,
			})
			if err != nil {
				return
			}
			mu.Lock()
			if result.AlreadyAnswered {
				duplicates++
			} else {
				applied++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("expected exactly one applied submission, got %d (duplicates %d)", applied, duplicates)
	}
	if duplicates != attempts-1 {
		t.Fatalf("expected %d duplicates, got %d", attempts-1, duplicates)
	}

	lb, err := service.Leaderboard(ctx, "RACE1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 1 || lb[0].TotalScore != 17 {
		t.Fatalf("expected single entry with score 17, got %+v", lb)
	}
}

func TestSubmitAfterDeadlineRejected(t *testing.T) {
	service, hub := newTestService(t)
	service.SetLoopTimings(20*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()
	seedSession(t, service, "LATE1", capitalQuestion())

	joined, err := service.Join(ctx, "LATE1", "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	hubEvents, cancel := hub.Join("LATE1")
	defer cancel()
	if err := service.StartGame(ctx, "LATE1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	opened := waitForEvent(t, hubEvents, domain.EventQuestionOpened)
	questionID := opened.Payload.(domain.QuestionOpenedPayload).Question.ID

	// Let the 20ms window lapse, then submit a correct answer.
	time.Sleep(60 * time.Millisecond)
	_, err = service.SubmitAnswer(ctx, app.AnswerSubmission{
		SessionCode:    "LATE1",
		ParticipantID:  joined.ParticipantID,
		QuestionID:     questionID,
		SelectedOption: "Paris",
	})
	if err != domain.ErrQuestionClosed {
		t.Fatalf("expected ErrQuestionClosed, got %v", err)
	}
}

func TestGameLoopEndToEnd(t *testing.T) {
	service, hub := newTestService(t)
	service.SetLoopTimings(150*time.Millisecond, 20*time.Millisecond)
	ctx := context.Background()
	seedSession(t, service, "QUIZ1", capitalQuestion(), answerQuestion())

	joined, err := service.Join(ctx, "QUIZ1", "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	hubEvents, cancel := hub.Join("QUIZ1")
	defer cancel()

	if err := service.StartGame(ctx, "QUIZ1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.StartGame(ctx, "QUIZ1"); err == nil {
		t.Fatalf("second start should fail")
	}

	waitForEvent(t, hubEvents, domain.EventSessionStarted)

	opened := waitForEvent(t, hubEvents, domain.EventQuestionOpened)
	payload := opened.Payload.(domain.QuestionOpenedPayload)
	if payload.Ordinal != 1 || payload.Total != 2 {
		t.Fatalf("unexpected ordinal/total %+v", payload)
	}
	for _, opt := range payload.Question.Options {
		if opt.Text == "" {
			t.Fatalf("option text missing")
		}
	}

	// Case- and whitespace-insensitive correct answer with 10s "remaining".
	result, err := service.SubmitAnswer(ctx, app.AnswerSubmission{
		SessionCode:      "QUIZ1",
		ParticipantID:    joined.ParticipantID,
		QuestionID:       payload.Question.ID,
		SelectedOption:   " paris ",
		RemainingSeconds: 10,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.Awarded != 17 || result.TotalScore != 17 {
		t.Fatalf("expected correct answer worth 17, got %+v", result)
	}

	dup, err := service.SubmitAnswer(ctx, app.AnswerSubmission{
		SessionCode:      "QUIZ1",
		ParticipantID:    joined.ParticipantID,
		QuestionID:       payload.Question.ID,
		SelectedOption:   "Paris",
		RemainingSeconds: 14,
	})
	if err != nil {
		t.Fatalf("duplicate submit: %v", err)
	}
	if !dup.AlreadyAnswered || dup.TotalScore != 17 {
		t.Fatalf("expected already-answered with unchanged score, got %+v", dup)
	}

	reveal := waitForEvent(t, hubEvents, domain.EventAnswerResult)
	if reveal.Payload.(domain.AnswerResultPayload).CorrectAnswerText != "Paris" {
		t.Fatalf("expected reveal of Paris, got %+v", reveal.Payload)
	}

	ranks := waitForEvent(t, hubEvents, domain.EventRanks)
	entries := ranks.Payload.(domain.RanksPayload).Ranks
	if len(entries) != 1 || entries[0].Rank != 1 || entries[0].Score != 17 {
		t.Fatalf("unexpected ranks %+v", entries)
	}

	second := waitForEvent(t, hubEvents, domain.EventQuestionOpened)
	if second.Payload.(domain.QuestionOpenedPayload).Ordinal != 2 {
		t.Fatalf("expected second question, got %+v", second.Payload)
	}

	over := waitForEvent(t, hubEvents, domain.EventGameOver)
	winners := over.Payload.(domain.GameOverPayload).Winners
	if len(winners) != 1 || winners[0].Name != "Alice" || winners[0].Score != 17 {
		t.Fatalf("unexpected winners %+v", winners)
	}

	waitForStatus(t, service, "QUIZ1", domain.StatusCompleted)
	session, err := service.GetSession(ctx, "QUIZ1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.QuestionOpen() {
		t.Fatalf("open-question pair must be cleared on completion")
	}
}

func TestStopGameKillSwitch(t *testing.T) {
	service, hub := newTestService(t)
	service.SetLoopTimings(40*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()
	seedSession(t, service, "KILL1", capitalQuestion(), answerQuestion(), capitalQuestion())

	hubEvents, cancel := hub.Join("KILL1")
	defer cancel()
	if err := service.StartGame(ctx, "KILL1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForEvent(t, hubEvents, domain.EventQuestionOpened)

	if err := service.StopGame(ctx, "KILL1"); err != nil {
		t.Fatalf("stop: %v", err)
	}

	session, err := service.GetSession(ctx, "KILL1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED after stop, got %s", session.Status)
	}
	if session.QuestionOpen() {
		t.Fatalf("stop must clear the open-question pair")
	}

	// The loop notices at its next poll and frees the run-lock.
	deadline := time.Now().Add(2 * time.Second)
	for service.LoopRunning("KILL1") {
		if time.Now().After(deadline) {
			t.Fatalf("loop did not release run-lock after stop")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestResetClearsParticipants(t *testing.T) {
	service, _ := newTestService(t)
	service.SetLoopTimings(30*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()
	seedSession(t, service, "RESET1", capitalQuestion())

	if _, err := service.Join(ctx, "RESET1", "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.StartGame(ctx, "RESET1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.ResetSession(ctx, "RESET1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	session, err := service.GetSession(ctx, "RESET1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.Status != domain.StatusWaiting || session.QuestionOpen() {
		t.Fatalf("expected clean WAITING session, got %+v", session)
	}
	lb, err := service.Leaderboard(ctx, "RESET1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 0 {
		t.Fatalf("expected participants wiped, got %+v", lb)
	}
	questions, err := service.ListQuestions(ctx, "RESET1")
	if err != nil || len(questions) != 1 {
		t.Fatalf("questions must survive reset, got %v %v", questions, err)
	}
}

func TestDeletedSessionNotFound(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	seedSession(t, service, "GONE1", capitalQuestion())

	if err := service.DeleteSession(ctx, "GONE1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.GetSession(ctx, "GONE1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not found after soft delete, got %v", err)
	}
}

func TestRecoverClearsDanglingOpenQuestion(t *testing.T) {
	service, _, store := newTestServiceWithStore(t)
	ctx := context.Background()

	// A session a dead process left ACTIVE, its deadline long expired.
	stale := time.Now().Add(-time.Minute)
	if err := store.Sessions.Create(ctx, &domain.Session{
		Code:      "CRASH1",
		Title:     "Interrupted Quiz",
		Status:    domain.StatusActive,
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := store.Sessions.SetOpenQuestion(ctx, "CRASH1", "q1", &stale); err != nil {
		t.Fatalf("seed dangling pair: %v", err)
	}

	if err := service.RecoverSessions(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}

	session, err := store.Sessions.Get(ctx, "CRASH1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.QuestionOpen() {
		t.Fatalf("expected dangling pair cleared, got %+v", session)
	}
	if session.Status != domain.StatusActive {
		t.Fatalf("recovery must not change the status, got %s", session.Status)
	}
}

func TestRecoverLeavesRunningLoopAlone(t *testing.T) {
	service, hub, store := newTestServiceWithStore(t)
	service.SetLoopTimings(500*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()
	seedSession(t, service, "LIVE1", capitalQuestion())

	hubEvents, cancel := hub.Join("LIVE1")
	defer cancel()
	if err := service.StartGame(ctx, "LIVE1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForEvent(t, hubEvents, domain.EventQuestionOpened)

	if err := service.RecoverSessions(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}

	session, err := store.Sessions.Get(ctx, "LIVE1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !session.QuestionOpen() {
		t.Fatalf("recovery must not touch a session whose loop is running")
	}

	if err := service.StopGame(ctx, "LIVE1"); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

// openFailOnce fails the first attempt to open a question, simulating a
// transient store outage mid-game.
type openFailOnce struct {
	app.SessionStore
	mu     sync.Mutex
	failed bool
}

func (s *openFailOnce) SetOpenQuestion(ctx context.Context, code, questionID string, endsAt *time.Time) error {
	s.mu.Lock()
	if endsAt != nil && !s.failed {
		s.failed = true
		s.mu.Unlock()
		return errors.New("store unavailable")
	}
	s.mu.Unlock()
	return s.SessionStore.SetOpenQuestion(ctx, code, questionID, endsAt)
}

func TestLoopSkipsFailingQuestion(t *testing.T) {
	store := app.Store{
		Sessions:     &openFailOnce{SessionStore: memory.NewSessionStore()},
		Questions:    memory.NewQuestionStore(),
		Participants: memory.NewParticipantStore(),
		Responses:    memory.NewResponseStore(),
	}
	hub := broadcast.NewHub()
	service := app.NewService(store, hub, config.DefaultGame())
	service.SetLoopTimings(40*time.Millisecond, 10*time.Millisecond)
	ctx := context.Background()
	seedSession(t, service, "FLAKY1", capitalQuestion(), answerQuestion())

	hubEvents, cancel := hub.Join("FLAKY1")
	defer cancel()
	if err := service.StartGame(ctx, "FLAKY1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The first question's open fails; the loop reports it and moves on.
	errEvent := waitForEvent(t, hubEvents, domain.EventError)
	if errEvent.Payload.(domain.ErrorPayload).Message == "" {
		t.Fatalf("expected error message, got %+v", errEvent.Payload)
	}

	opened := waitForEvent(t, hubEvents, domain.EventQuestionOpened)
	if opened.Payload.(domain.QuestionOpenedPayload).Ordinal != 2 {
		t.Fatalf("expected loop to reach question 2, got %+v", opened.Payload)
	}

	waitForEvent(t, hubEvents, domain.EventGameOver)
	waitForStatus(t, service, "FLAKY1", domain.StatusCompleted)
}

func waitForEvent(t *testing.T, events <-chan domain.Event, want domain.EventType) domain.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", want)
			}
			if event.Type == want {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func waitForStatus(t *testing.T, service *app.Service, code string, want domain.SessionStatus) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		session, err := service.GetSession(context.Background(), code)
		if err == nil && session.Status == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("session %s never reached %s", code, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
