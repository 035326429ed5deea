package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
)

// QuestionSupplier loads question batches (static data, Postgres, cached).
type QuestionSupplier interface {
	Fetch(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error)
}

// Rules holds the per-mode attempt parameters.
type Rules struct {
	StandardTimeLimit    int
	CompetitionTimeLimit int
	NumDept              int
	NumGen               int
	CompetitionQuestions int
}

// DefaultRules mirrors the classic quiz: two minutes for 5+5 questions, 90 seconds for 5 competition questions.
func DefaultRules() Rules {
	return Rules{
		StandardTimeLimit:    120,
		CompetitionTimeLimit: 90,
		NumDept:              5,
		NumGen:               5,
		CompetitionQuestions: 5,
	}
}

// QuizService contains the quiz use cases around the single active session.
type QuizService struct {
	session   *Session
	questions QuestionSupplier
	rankings  RankingStore
	rules     Rules
	now       func() time.Time
	log       *zap.Logger
}

func NewQuizService(session *Session, questions QuestionSupplier, rankings RankingStore, rules Rules, log *zap.Logger) *QuizService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuizService{
		session:   session,
		questions: questions,
		rankings:  rankings,
		rules:     rules,
		now:       time.Now,
		log:       log,
	}
}

// StartStandard fetches the participant's category batch and starts a standard attempt.
func (s *QuizService) StartStandard(ctx context.Context, identity domain.Identity) (Snapshot, error) {
	identity = domain.NormalizeIdentity(identity)
	if identity.DisplayName == "" || identity.Matric == "" || identity.Category == "" {
		return Snapshot{}, fmt.Errorf("%w: name, matric and field are required", domain.ErrInvalidInput)
	}
	if s.session.State() == StateInProgress {
		return Snapshot{}, domain.ErrAlreadyRunning
	}

	questions, err := s.fetch(ctx, domain.QuestionRequest{
		Category: identity.Category,
		NumDept:  s.rules.NumDept,
		NumGen:   s.rules.NumGen,
	})
	if err != nil {
		return Snapshot{}, err
	}

	if err := s.session.Start(questions, s.rules.StandardTimeLimit, identity, domain.ModeStandard); err != nil {
		return Snapshot{}, err
	}
	return s.session.Snapshot(), nil
}

// StartCompetition starts a competition attempt on general questions, at most once per cooldown window.
func (s *QuizService) StartCompetition(ctx context.Context, identity domain.Identity) (Snapshot, error) {
	identity = domain.NormalizeIdentity(identity)
	identity.Category = domain.CompetitionCategory
	if identity.DisplayName == "" || identity.Matric == "" {
		return Snapshot{}, fmt.Errorf("%w: name and matric are required", domain.ErrInvalidInput)
	}
	if s.session.State() == StateInProgress {
		return Snapshot{}, domain.ErrAlreadyRunning
	}

	now := s.now()
	onCooldown, err := s.rankings.IsOnCooldown(ctx, identity.Matric, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("check cooldown: %w", err)
	}
	if onCooldown {
		return Snapshot{}, domain.ErrOnCooldown
	}

	questions, err := s.fetch(ctx, domain.QuestionRequest{NumGen: s.rules.CompetitionQuestions})
	if err != nil {
		return Snapshot{}, err
	}

	// The cooldown is charged only to the caller that actually gets the session.
	admit := func() error {
		onCooldown, err := s.rankings.IsOnCooldown(ctx, identity.Matric, now)
		if err != nil {
			return fmt.Errorf("check cooldown: %w", err)
		}
		if onCooldown {
			return domain.ErrOnCooldown
		}
		if err := s.rankings.RecordCooldown(ctx, identity.Matric, now); err != nil {
			return fmt.Errorf("record cooldown: %w", err)
		}
		return nil
	}
	if err := s.session.StartAdmitted(questions, s.rules.CompetitionTimeLimit, identity, domain.ModeCompetition, admit); err != nil {
		return Snapshot{}, err
	}
	return s.session.Snapshot(), nil
}

// Select locks an option for the current question.
func (s *QuizService) Select(_ context.Context, option string) (Selection, error) {
	return s.session.SelectOption(option)
}

// Advance moves to the next question or finishes the attempt.
func (s *QuizService) Advance(ctx context.Context) (Snapshot, error) {
	return s.session.Advance(ctx)
}

// RetrySave attempts to store a result whose first write failed.
func (s *QuizService) RetrySave(ctx context.Context) error {
	return s.session.RetrySave(ctx)
}

// Snapshot returns the current attempt state.
func (s *QuizService) Snapshot() Snapshot {
	return s.session.Snapshot()
}

// Subscribe returns a channel that receives session and leaderboard events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe() (<-chan Event, func()) {
	return s.session.Events().Subscribe()
}

// Leaderboard returns ranked results, optionally limited to one field.
func (s *QuizService) Leaderboard(ctx context.Context, field string) (domain.Leaderboard, error) {
	records, err := s.rankings.Leaderboard(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %w", err)
	}
	return domain.BuildLeaderboard(records, field, s.now()), nil
}

// Questions exposes the supplier for API consumers.
func (s *QuizService) Questions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	return s.fetch(ctx, req)
}

// fetch maps supplier failures onto ErrEmpty and ErrUnavailable.
func (s *QuizService) fetch(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	questions, err := s.questions.Fetch(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrEmpty) || errors.Is(err, domain.ErrUnavailable) {
			return nil, err
		}
		s.log.Error("question fetch failed", zap.String("category", req.Category), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrEmpty
	}
	return questions, nil
}
