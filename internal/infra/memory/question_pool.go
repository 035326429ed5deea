package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// PoolCache caches question pools with TTL to avoid repeated DB hits.
type PoolCache struct {
	loader app.PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewPoolCache(loader app.PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (c *PoolCache) LoadPool(ctx context.Context, category string, qtype domain.QuestionType) ([]domain.Question, error) {
	key := string(qtype) + ":" + category
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadPool(ctx, category, qtype)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedPool{
			questions: questions,
			expiresAt: now.Add(c.ttlWithJitterLocked()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *PoolCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticPoolLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
type StaticPoolLoader struct {
	questions []domain.Question
}

func NewStaticPoolLoader(questions []domain.Question) *StaticPoolLoader {
	return &StaticPoolLoader{questions: questions}
}

func (l *StaticPoolLoader) LoadPool(_ context.Context, category string, qtype domain.QuestionType) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range l.questions {
		if q.Type != qtype {
			continue
		}
		if category != "" && q.Category != category {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
