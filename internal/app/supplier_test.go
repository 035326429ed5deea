package app_test

import (
	"context"
	"testing"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

func TestSamplingSupplierCategoryOnlyDepartmental(t *testing.T) {
	supplier := app.NewSamplingSupplier(memory.NewStaticPoolLoader(bank()))

	batch, err := supplier.Fetch(context.Background(), domain.QuestionRequest{Category: "Chemistry", NumDept: 5, NumGen: 5})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected both chemistry questions only, got %d", len(batch))
	}
	for _, q := range batch {
		if q.Category != "Chemistry" || q.Type != domain.QuestionTypeDepartmental {
			t.Fatalf("unexpected question %+v", q)
		}
	}
}

func TestSamplingSupplierMixesWithoutCategory(t *testing.T) {
	supplier := app.NewSamplingSupplier(memory.NewStaticPoolLoader(bank()))

	batch, err := supplier.Fetch(context.Background(), domain.QuestionRequest{NumDept: 2, NumGen: 1})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(batch))
	}
	seen := make(map[string]bool)
	general := 0
	for _, q := range batch {
		if seen[q.ID] {
			t.Fatalf("question %s sampled twice", q.ID)
		}
		seen[q.ID] = true
		if q.Type == domain.QuestionTypeGeneral {
			general++
		}
	}
	if general != 1 {
		t.Fatalf("expected one general question, got %d", general)
	}
}

func TestSamplingSupplierEmptyCategory(t *testing.T) {
	supplier := app.NewSamplingSupplier(memory.NewStaticPoolLoader(bank()))
	if _, err := supplier.Fetch(context.Background(), domain.QuestionRequest{Category: "Biology", NumDept: 5}); err != domain.ErrEmpty {
		t.Fatalf("expected empty, got %v", err)
	}
}
