package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"timed-quiz-service/internal/domain"
)

// RankingStore keeps results and competition entries in Postgres.
// Append order is the seq column; the insert is idempotent on the result ID.
type RankingStore struct {
	pool *pgxpool.Pool
}

func NewRankingStore(pool *pgxpool.Pool) *RankingStore {
	return &RankingStore{pool: pool}
}

func (s *RankingStore) Append(ctx context.Context, rec domain.ResultRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_results
			(id, name, matric, field, category, correct, wrong, total, percentage, competition, expired, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Identity.DisplayName, rec.Identity.Matric, rec.Identity.Category, rec.Category,
		rec.Correct, rec.Wrong, rec.Total, rec.Percentage, rec.Competition, rec.Expired, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

func (s *RankingStore) Leaderboard(ctx context.Context) ([]domain.ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, matric, field, category, correct, wrong, total, percentage, competition, expired, taken_at
		FROM quiz_results
		ORDER BY percentage DESC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer rows.Close()

	var records []domain.ResultRecord
	for rows.Next() {
		var rec domain.ResultRecord
		if err := rows.Scan(
			&rec.ID, &rec.Identity.DisplayName, &rec.Identity.Matric, &rec.Identity.Category, &rec.Category,
			&rec.Correct, &rec.Wrong, &rec.Total, &rec.Percentage, &rec.Competition, &rec.Expired, &rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	return records, nil
}

func (s *RankingStore) RecordCooldown(ctx context.Context, matric string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO competition_entries (matric, last_attempt) VALUES ($1, $2)
		ON CONFLICT (matric) DO UPDATE SET last_attempt = EXCLUDED.last_attempt`, matric, at)
	if err != nil {
		return fmt.Errorf("record cooldown: %w", err)
	}
	return nil
}

func (s *RankingStore) IsOnCooldown(ctx context.Context, matric string, now time.Time) (bool, error) {
	var last time.Time
	err := s.pool.QueryRow(ctx, `SELECT last_attempt FROM competition_entries WHERE matric = $1`, matric).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load cooldown: %w", err)
	}
	return domain.OnCooldown(last, now), nil
}
