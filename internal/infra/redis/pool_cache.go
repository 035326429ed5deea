package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// PoolCache caches question pools in Redis and falls back to a loader on cache miss.
// Pools are stored as: SET quiz:pool:{type}:{category} {json} EX ttl
type PoolCache struct {
	client *redis.Client
	loader app.PoolLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPoolCache(client *redis.Client, loader app.PoolLoader, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) LoadPool(ctx context.Context, category string, qtype domain.QuestionType) ([]domain.Question, error) {
	key := c.poolKey(category, qtype)
	if questions, ok := c.cached(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.cached(ctx, key); ok {
			return questions, nil
		}

		questions, err := c.loader.LoadPool(ctx, category, qtype)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			// best-effort; a failed write only costs a reload
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *PoolCache) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (c *PoolCache) poolKey(category string, qtype domain.QuestionType) string {
	return "quiz:pool:" + string(qtype) + ":" + category
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
