package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"timed-quiz-service/internal/domain"
)

// RankingStore is a Redis-backed implementation of app.RankingStore.
// Results are kept in a list (RPUSH preserves append order):
//
//	RPUSH {prefix}:results {json}
//
// Cooldowns are a hash of matric to RFC3339 timestamps:
//
//	HSET {prefix}:cooldowns {matric} {timestamp}
//
// Durability follows the server's persistence settings (AOF with appendfsync always for no loss).
type RankingStore struct {
	client *redis.Client
	prefix string
}

func NewRankingStore(client *redis.Client, prefix string) *RankingStore {
	if prefix == "" {
		prefix = "quiz"
	}
	return &RankingStore{client: client, prefix: prefix}
}

func (s *RankingStore) Append(ctx context.Context, rec domain.ResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.RPush(ctx, s.resultsKey(), data).Err(); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

func (s *RankingStore) Leaderboard(ctx context.Context) ([]domain.ResultRecord, error) {
	raw, err := s.client.LRange(ctx, s.resultsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	records := make([]domain.ResultRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.ResultRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		records = append(records, rec)
	}
	return domain.RankResults(records), nil
}

func (s *RankingStore) RecordCooldown(ctx context.Context, matric string, at time.Time) error {
	if err := s.client.HSet(ctx, s.cooldownsKey(), matric, at.UTC().Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("record cooldown: %w", err)
	}
	return nil
}

func (s *RankingStore) IsOnCooldown(ctx context.Context, matric string, now time.Time) (bool, error) {
	raw, err := s.client.HGet(ctx, s.cooldownsKey(), matric).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load cooldown: %w", err)
	}
	last, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false, fmt.Errorf("parse cooldown: %w", err)
	}
	return domain.OnCooldown(last, now), nil
}

func (s *RankingStore) resultsKey() string {
	return s.prefix + ":results"
}

func (s *RankingStore) cooldownsKey() string {
	return s.prefix + ":cooldowns"
}
