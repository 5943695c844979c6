package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// QuestionCache wraps a QuestionStore with a per-session TTL cache of the
// ordered question list. The list is read on every resync and loop cycle
// but only changes through authoring writes, so cache hits dominate; any
// write invalidates the session's entry.
type QuestionCache struct {
	next  app.QuestionStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedList
}

type cachedList struct {
	questions []*domain.Question
	expiresAt time.Time
}

func NewQuestionCache(next app.QuestionStore, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		next:  next,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedList),
	}
}

func (c *QuestionCache) ListBySession(ctx context.Context, sessionCode string) ([]*domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[sessionCode]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(sessionCode, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[sessionCode]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.next.ListBySession(ctx, sessionCode)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[sessionCode] = cachedList{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*domain.Question), nil
}

func (c *QuestionCache) Create(ctx context.Context, question *domain.Question) error {
	err := c.next.Create(ctx, question)
	c.invalidate(question.SessionCode)
	return err
}

func (c *QuestionCache) Get(ctx context.Context, id string) (*domain.Question, error) {
	return c.next.Get(ctx, id)
}

func (c *QuestionCache) Update(ctx context.Context, question *domain.Question) error {
	err := c.next.Update(ctx, question)
	c.invalidate(question.SessionCode)
	return err
}

func (c *QuestionCache) Delete(ctx context.Context, id string) error {
	question, err := c.next.Get(ctx, id)
	if derr := c.next.Delete(ctx, id); derr != nil {
		return derr
	}
	if err == nil {
		c.invalidate(question.SessionCode)
	}
	return nil
}

func (c *QuestionCache) Reorder(ctx context.Context, sessionCode string, ids []string) error {
	err := c.next.Reorder(ctx, sessionCode, ids)
	c.invalidate(sessionCode)
	return err
}

func (c *QuestionCache) DeleteBySession(ctx context.Context, sessionCode string) error {
	err := c.next.DeleteBySession(ctx, sessionCode)
	c.invalidate(sessionCode)
	return err
}

func (c *QuestionCache) invalidate(sessionCode string) {
	c.mu.Lock()
	delete(c.cache, sessionCode)
	c.mu.Unlock()
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
