package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4/pgxpool"

	"timed-quiz-service/internal/domain"
)

// QuestionLoader loads question pools from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadPool(ctx context.Context, category string, qtype domain.QuestionType) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, text, options, answer, COALESCE(department, ''), question_type
		FROM questions
		WHERE question_type = $1 AND ($2 = '' OR department = $2)
		ORDER BY id`, string(qtype), category)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			id      int64
			q       domain.Question
			options []byte
			typ     string
		)
		if err := rows.Scan(&id, &q.Prompt, &options, &q.CorrectOption, &q.Category, &typ); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %d: %w", id, err)
		}
		q.ID = strconv.FormatInt(id, 10)
		q.Type = domain.QuestionType(typ)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// InsertQuestion stores q and returns its generated ID.
func (l *QuestionLoader) InsertQuestion(ctx context.Context, q domain.Question) (string, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return "", err
	}
	var department *string
	if q.Category != "" {
		department = &q.Category
	}
	qtype := q.Type
	if qtype == "" {
		qtype = domain.QuestionTypeGeneral
	}
	var id int64
	err = l.pool.QueryRow(ctx, `
		INSERT INTO questions (text, options, answer, department, question_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`, q.Prompt, string(options), q.CorrectOption, department, string(qtype)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert question: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}
