package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

// PoolLoader returns every stored question of a type, for one category or for all when category is empty.
type PoolLoader interface {
	LoadPool(ctx context.Context, category string, qtype domain.QuestionType) ([]domain.Question, error)
}

// SamplingSupplier draws random batches from a PoolLoader.
type SamplingSupplier struct {
	loader PoolLoader

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSamplingSupplier(loader PoolLoader) *SamplingSupplier {
	return &SamplingSupplier{
		loader: loader,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch samples without replacement. A named category draws only from its departmental
// questions; otherwise departmental and general questions are mixed.
func (s *SamplingSupplier) Fetch(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	if req.Category != "" {
		dept, err := s.loader.LoadPool(ctx, req.Category, domain.QuestionTypeDepartmental)
		if err != nil {
			return nil, err
		}
		if len(dept) == 0 {
			return nil, domain.ErrEmpty
		}
		return s.shuffle(s.sample(dept, req.NumDept)), nil
	}

	dept, err := s.loader.LoadPool(ctx, "", domain.QuestionTypeDepartmental)
	if err != nil {
		return nil, err
	}
	general, err := s.loader.LoadPool(ctx, "", domain.QuestionTypeGeneral)
	if err != nil {
		return nil, err
	}
	if len(dept) == 0 && len(general) == 0 {
		return nil, domain.ErrEmpty
	}
	batch := append(s.sample(dept, req.NumDept), s.sample(general, req.NumGen)...)
	if len(batch) == 0 {
		return nil, domain.ErrEmpty
	}
	return s.shuffle(batch), nil
}

func (s *SamplingSupplier) sample(pool []domain.Question, n int) []domain.Question {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	perm := s.rnd.Perm(len(pool))
	s.mu.Unlock()

	out := make([]domain.Question, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, pool[idx])
	}
	return out
}

func (s *SamplingSupplier) shuffle(batch []domain.Question) []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	return batch
}
