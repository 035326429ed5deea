package app_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

// manualScheduler lets tests fire ticks by hand.
type manualScheduler struct {
	mu     sync.Mutex
	tick   func()
	starts int
	stops  int
}

func (m *manualScheduler) Start(tick func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = tick
	m.starts++
}

func (m *manualScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = nil
	m.stops++
}

func (m *manualScheduler) current() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick
}

func (m *manualScheduler) fire(n int) {
	for i := 0; i < n; i++ {
		if tick := m.current(); tick != nil {
			tick()
		}
	}
}

// flakyStore fails the first failures appends, then delegates.
type flakyStore struct {
	*memory.RankingStore
	mu       sync.Mutex
	failures int
	appends  int
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) Append(ctx context.Context, rec domain.ResultRecord) error {
	s.mu.Lock()
	s.appends++
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errDiskFull
	}
	s.mu.Unlock()
	return s.RankingStore.Append(ctx, rec)
}

type fakeRemote struct {
	mu   sync.Mutex
	err  error
	sent []domain.ResultRecord
}

func (f *fakeRemote) Send(_ context.Context, rec domain.ResultRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, rec)
	return f.err
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type harness struct {
	session   *app.Session
	scheduler *manualScheduler
	store     *memory.RankingStore
	recorder  *app.Recorder
	hub       *app.Hub
}

func newHarness(store app.RankingStore, remote app.RemoteSink) *harness {
	mem, _ := store.(*memory.RankingStore)
	if store == nil {
		mem = memory.NewRankingStore()
		store = mem
	}
	hub := app.NewHub()
	recorder := app.NewRecorder(store, remote, hub, nil)
	sched := &manualScheduler{}
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	session := app.NewSession(recorder, hub,
		app.WithScheduler(sched),
		app.WithRand(rand.New(rand.NewSource(7))),
		app.WithClock(func() time.Time { return clock }),
	)
	return &harness{session: session, scheduler: sched, store: mem, recorder: recorder, hub: hub}
}

func questions(n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		out = append(out, domain.Question{
			ID:            id,
			Prompt:        "Question " + id,
			Options:       []string{"right-" + id, "wrong-" + id, "other-" + id},
			CorrectOption: "right-" + id,
		})
	}
	return out
}

func wrongOption(q *domain.Question) string {
	for _, opt := range q.Options {
		if opt != q.CorrectOption {
			return opt
		}
	}
	return ""
}

// drain collects whatever events are buffered right now.
func drain(ch <-chan app.Event) []app.Event {
	var out []app.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countType(events []app.Event, typ app.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func newMemoryStore() *memory.RankingStore {
	return memory.NewRankingStore()
}
