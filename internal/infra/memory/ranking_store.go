package memory

import (
	"context"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

// RankingStore is an in-memory implementation of app.RankingStore. Nothing survives a restart.
type RankingStore struct {
	mu        sync.RWMutex
	records   []domain.ResultRecord
	cooldowns map[string]time.Time
}

func NewRankingStore() *RankingStore {
	return &RankingStore{
		cooldowns: make(map[string]time.Time),
	}
}

func (s *RankingStore) Append(_ context.Context, rec domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *RankingStore) Leaderboard(_ context.Context) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.RankResults(s.records), nil
}

func (s *RankingStore) RecordCooldown(_ context.Context, matric string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[matric] = at
	return nil
}

func (s *RankingStore) IsOnCooldown(_ context.Context, matric string, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.OnCooldown(s.cooldowns[matric], now), nil
}
