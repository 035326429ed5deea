package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

func TestStartStandardNormalizesIdentity(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	snap, err := service.StartStandard(ctx, domain.Identity{DisplayName: " Ada ", Matric: "sci/001", Category: "Physics"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != app.StateInProgress || snap.Total != 2 || snap.TimeRemaining != 120 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Identity.Matric != "SCI/001" || snap.Identity.DisplayName != "Ada" {
		t.Fatalf("identity not normalized: %+v", snap.Identity)
	}
	if snap.Question == nil || snap.Question.Category != "Physics" {
		t.Fatalf("expected a physics question, got %+v", snap.Question)
	}

	if _, err := service.StartStandard(ctx, domain.Identity{DisplayName: "B", Matric: "m2", Category: "Physics"}); err != domain.ErrAlreadyRunning {
		t.Fatalf("expected already running, got %v", err)
	}
}

func TestStartStandardRequiresFields(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.StartStandard(context.Background(), domain.Identity{DisplayName: "A", Matric: "  "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestStartStandardEmptyCategory(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.StartStandard(context.Background(), domain.Identity{DisplayName: "A", Matric: "m1", Category: "Biology"})
	if err != domain.ErrEmpty {
		t.Fatalf("expected empty category, got %v", err)
	}
	if service.Snapshot().State != app.StateIdle {
		t.Fatalf("no attempt should start without questions")
	}
}

func TestStartStandardSupplierUnavailable(t *testing.T) {
	store := memory.NewRankingStore()
	session := app.NewSession(app.NewRecorder(store, nil, nil, nil), nil, app.WithScheduler(&manualScheduler{}))
	service := app.NewQuizService(session, failingSupplier{}, store, app.DefaultRules(), nil)

	_, err := service.StartStandard(context.Background(), alice)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestCompetitionCooldown(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	snap, err := service.StartCompetition(ctx, domain.Identity{DisplayName: "A", Matric: "m1"})
	if err != nil {
		t.Fatalf("start competition: %v", err)
	}
	if snap.Mode != domain.ModeCompetition || snap.TimeRemaining != 90 || snap.Identity.Category != domain.CompetitionCategory {
		t.Fatalf("unexpected competition snapshot %+v", snap)
	}
	if snap.Question.Type != domain.QuestionTypeGeneral {
		t.Fatalf("competition must use general questions, got %+v", snap.Question)
	}

	for i := 0; i < snap.Total; i++ {
		q := service.Snapshot().Question
		_, _ = service.Select(ctx, q.CorrectOption)
		_, _ = service.Advance(ctx)
	}

	if _, err := service.StartCompetition(ctx, domain.Identity{DisplayName: "A", Matric: "M1"}); err != domain.ErrOnCooldown {
		t.Fatalf("expected cooldown for same matric, got %v", err)
	}
	if _, err := service.StartCompetition(ctx, domain.Identity{DisplayName: "B", Matric: "M2"}); err != nil {
		t.Fatalf("other matric should be allowed: %v", err)
	}
}

func TestLeaderboardAfterAttempts(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	play := func(id domain.Identity, correct int) {
		snap, err := service.StartStandard(ctx, id)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		for i := 0; i < snap.Total; i++ {
			q := service.Snapshot().Question
			opt := q.CorrectOption
			if i >= correct {
				opt = wrongOption(q)
			}
			_, _ = service.Select(ctx, opt)
			if _, err := service.Advance(ctx); err != nil {
				t.Fatalf("advance: %v", err)
			}
		}
	}
	play(domain.Identity{DisplayName: "A", Matric: "m1", Category: "Physics"}, 1)
	play(domain.Identity{DisplayName: "B", Matric: "m2", Category: "Physics"}, 2)
	play(domain.Identity{DisplayName: "C", Matric: "m3", Category: "Chemistry"}, 1)

	lb, err := service.Leaderboard(ctx, "all")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 3 || lb.Entries[0].Name != "B" || lb.Entries[1].Name != "A" || lb.Entries[2].Name != "C" {
		t.Fatalf("unexpected order %+v", lb.Entries)
	}

	physics, _ := service.Leaderboard(ctx, "Physics")
	if len(physics.Entries) != 2 {
		t.Fatalf("expected 2 physics entries, got %+v", physics.Entries)
	}
}

func TestConcurrentCompetitionStartsChargeOnlyTheWinner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRankingStore()
	session := app.NewSession(app.NewRecorder(store, nil, nil, nil), nil, app.WithScheduler(&manualScheduler{}))
	supplier := &gatedSupplier{questions: bank()[4:]}
	supplier.arrived.Add(2)
	service := app.NewQuizService(session, supplier, store, app.DefaultRules(), nil)

	matrics := []string{"M1", "M2"}
	errs := make([]error, len(matrics))
	var wg sync.WaitGroup
	for i, matric := range matrics {
		wg.Add(1)
		go func(i int, matric string) {
			defer wg.Done()
			_, errs[i] = service.StartCompetition(ctx, domain.Identity{DisplayName: "P", Matric: matric})
		}(i, matric)
	}
	wg.Wait()

	winners := 0
	for i, matric := range matrics {
		onCooldown, err := store.IsOnCooldown(ctx, matric, time.Now())
		if err != nil {
			t.Fatalf("cooldown lookup: %v", err)
		}
		switch {
		case errs[i] == nil:
			winners++
			if !onCooldown {
				t.Fatalf("%s started but was not charged a cooldown", matric)
			}
		case errors.Is(errs[i], domain.ErrAlreadyRunning):
			if onCooldown {
				t.Fatalf("%s never started but is on cooldown", matric)
			}
		default:
			t.Fatalf("%s: unexpected error %v", matric, errs[i])
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one started attempt, got %d", winners)
	}
}

func TestCompetitionCooldownWriteFailureAbortsStart(t *testing.T) {
	store := &cooldownFailStore{RankingStore: memory.NewRankingStore()}
	session := app.NewSession(app.NewRecorder(store, nil, nil, nil), nil, app.WithScheduler(&manualScheduler{}))
	supplier := app.NewSamplingSupplier(memory.NewStaticPoolLoader(bank()))
	service := app.NewQuizService(session, supplier, store, app.DefaultRules(), nil)

	_, err := service.StartCompetition(context.Background(), domain.Identity{DisplayName: "P", Matric: "M1"})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("expected cooldown write failure, got %v", err)
	}
	if service.Snapshot().State != app.StateIdle {
		t.Fatalf("attempt must not start when the cooldown cannot be recorded")
	}
}

// gatedSupplier holds every Fetch until all expected callers have arrived.
type gatedSupplier struct {
	arrived   sync.WaitGroup
	questions []domain.Question
}

func (g *gatedSupplier) Fetch(context.Context, domain.QuestionRequest) ([]domain.Question, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return append([]domain.Question(nil), g.questions...), nil
}

type cooldownFailStore struct {
	*memory.RankingStore
}

func (cooldownFailStore) RecordCooldown(context.Context, string, time.Time) error {
	return errDiskFull
}

type failingSupplier struct{}

func (failingSupplier) Fetch(context.Context, domain.QuestionRequest) ([]domain.Question, error) {
	return nil, errors.New("connection reset")
}

func newTestService(t *testing.T) (*app.QuizService, *memory.RankingStore) {
	t.Helper()
	store := memory.NewRankingStore()
	hub := app.NewHub()
	session := app.NewSession(app.NewRecorder(store, nil, hub, nil), hub, app.WithScheduler(&manualScheduler{}))
	supplier := app.NewSamplingSupplier(memory.NewPoolCache(memory.NewStaticPoolLoader(bank()), time.Minute))
	return app.NewQuizService(session, supplier, store, app.DefaultRules(), nil), store
}

func bank() []domain.Question {
	return []domain.Question{
		{ID: "p1", Prompt: "Unit of force?", Options: []string{"Newton", "Joule", "Watt", "Pascal"}, CorrectOption: "Newton", Category: "Physics", Type: domain.QuestionTypeDepartmental},
		{ID: "p2", Prompt: "Unit of energy?", Options: []string{"Newton", "Joule", "Watt", "Pascal"}, CorrectOption: "Joule", Category: "Physics", Type: domain.QuestionTypeDepartmental},
		{ID: "c1", Prompt: "Symbol for sodium?", Options: []string{"Na", "S", "So", "Sd"}, CorrectOption: "Na", Category: "Chemistry", Type: domain.QuestionTypeDepartmental},
		{ID: "c2", Prompt: "Water formula?", Options: []string{"H2O", "CO2", "O2", "NaCl"}, CorrectOption: "H2O", Category: "Chemistry", Type: domain.QuestionTypeDepartmental},
		{ID: "g1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectOption: "4", Type: domain.QuestionTypeGeneral},
		{ID: "g2", Prompt: "Days in a week?", Options: []string{"5", "6", "7", "8"}, CorrectOption: "7", Type: domain.QuestionTypeGeneral},
	}
}
