package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func TestQuestionCacheHits(t *testing.T) {
	ctx := context.Background()
	inner := NewQuestionStore()
	_ = inner.Create(ctx, &domain.Question{ID: "a", SessionCode: "Q", Order: 0})

	counting := &countingStore{QuestionStore: inner}
	cache := NewQuestionCache(counting, time.Minute)

	if _, err := cache.ListBySession(ctx, "Q"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if counting.lists != 1 {
		t.Fatalf("expected one backing read, got %d", counting.lists)
	}
	if _, err := cache.ListBySession(ctx, "Q"); err != nil {
		t.Fatalf("list 2: %v", err)
	}
	if counting.lists != 1 {
		t.Fatalf("expected cache hit, backing reads %d", counting.lists)
	}
}

func TestQuestionCacheInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	inner := NewQuestionStore()
	_ = inner.Create(ctx, &domain.Question{ID: "a", SessionCode: "Q", Order: 0})

	counting := &countingStore{QuestionStore: inner}
	cache := NewQuestionCache(counting, time.Minute)

	if _, err := cache.ListBySession(ctx, "Q"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := cache.Create(ctx, &domain.Question{ID: "b", SessionCode: "Q", Order: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := cache.ListBySession(ctx, "Q")
	if err != nil {
		t.Fatalf("list after write: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected refreshed list of 2, got %d", len(out))
	}
	if counting.lists != 2 {
		t.Fatalf("expected backing re-read after invalidation, got %d", counting.lists)
	}
}

type countingStore struct {
	app.QuestionStore
	mu    sync.Mutex
	lists int
}

func (c *countingStore) ListBySession(ctx context.Context, sessionCode string) ([]*domain.Question, error) {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	return c.QuestionStore.ListBySession(ctx, sessionCode)
}
