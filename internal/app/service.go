package app

import (
	"sync"
	"time"

	"live-quiz-service/internal/config"
)

// Service wires the quiz use cases together: session lifecycle, question
// authoring, participant joins, answer scoring, the game runner, and resync.
type Service struct {
	store    Store
	hub      Publisher
	game     config.Game
	window   time.Duration
	cooldown time.Duration
	now      func() time.Time
	sleep    func(time.Duration)

	// running is the per-session run-lock registry: at most one game loop
	// may drive a session at any time.
	mu      sync.Mutex
	running map[string]struct{}
}

func NewService(store Store, hub Publisher, game config.Game) *Service {
	return &Service{
		store:    store,
		hub:      hub,
		game:     game,
		window:   game.Window(),
		cooldown: game.Cooldown(),
		now:      time.Now,
		sleep:    time.Sleep,
		running:  make(map[string]struct{}),
	}
}

// NewServiceWithClock is test-only for deterministic timestamps.
func NewServiceWithClock(store Store, hub Publisher, game config.Game, now func() time.Time) *Service {
	s := NewService(store, hub, game)
	s.now = now
	return s
}

// SetLoopTimings is test-only to shrink the loop waits.
func (s *Service) SetLoopTimings(window, cooldown time.Duration) {
	s.window = window
	s.cooldown = cooldown
}

// acquireRun takes the session's run-lock, reporting false when a loop
// already holds it.
func (s *Service) acquireRun(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[code]; ok {
		return false
	}
	s.running[code] = struct{}{}
	return true
}

// releaseRun frees the session's run-lock. Called on every loop exit path.
func (s *Service) releaseRun(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, code)
}

// LoopRunning reports whether a game loop currently owns the session.
func (s *Service) LoopRunning(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[code]
	return ok
}
