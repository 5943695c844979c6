// Package broadcast fans events out to every client subscribed to a session
// code. Delivery is best-effort and at-most-once per currently-subscribed
// member; per-session ordering follows publish order.
package broadcast

import (
	"sync"

	"live-quiz-service/internal/domain"
)

// Hub keys broadcast groups by session code. Groups are created lazily on
// first Join or Publish and dropped when the last subscriber leaves.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]*group
}

type group struct {
	mu          sync.Mutex
	subscribers map[chan domain.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]*group)}
}

// Join subscribes to a session's events. The caller must invoke the returned
// cancel function to avoid leaks. Join also publishes the updated user count
// to the group.
func (h *Hub) Join(sessionCode string) (<-chan domain.Event, func()) {
	code := domain.NormalizeCode(sessionCode)
	g := h.getOrCreate(code)

	ch := make(chan domain.Event, 16)
	g.mu.Lock()
	g.subscribers[ch] = struct{}{}
	count := len(g.subscribers)
	g.broadcastLocked(userCount(code, count))
	g.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subscribers, ch)
			close(ch)
			remaining := len(g.subscribers)
			g.broadcastLocked(userCount(code, remaining))
			g.mu.Unlock()
			if remaining == 0 {
				h.dropIfEmpty(code, g)
			}
		})
	}
	return ch, cancel
}

// Publish sends an event to every current member of the session's group.
// Publishing to a session with no subscribers is a no-op.
func (h *Hub) Publish(sessionCode string, event domain.Event) {
	h.mu.RLock()
	g, ok := h.groups[domain.NormalizeCode(sessionCode)]
	h.mu.RUnlock()
	if !ok {
		return
	}
	g.mu.Lock()
	g.broadcastLocked(event)
	g.mu.Unlock()
}

// Count returns the number of current subscribers for a session.
func (h *Hub) Count(sessionCode string) int {
	h.mu.RLock()
	g, ok := h.groups[domain.NormalizeCode(sessionCode)]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subscribers)
}

func (h *Hub) getOrCreate(code string) *group {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[code]
	if !ok {
		g = &group{subscribers: make(map[chan domain.Event]struct{})}
		h.groups[code] = g
	}
	return g
}

func (h *Hub) dropIfEmpty(code string, g *group) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g.mu.Lock()
	empty := len(g.subscribers) == 0
	g.mu.Unlock()
	if empty && h.groups[code] == g {
		delete(h.groups, code)
	}
}

func (g *group) broadcastLocked(event domain.Event) {
	for ch := range g.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest buffered event so a slow client never
			// blocks fan-out for the rest of the group.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

func userCount(code string, n int) domain.Event {
	return domain.Event{
		Type:    domain.EventUserCount,
		Payload: domain.UserCountPayload{SessionCode: code, UserCount: n},
	}
}
