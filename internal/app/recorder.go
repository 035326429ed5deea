package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
)

// RankingStore abstracts where results and competition cooldowns are kept (file, Redis, Postgres, memory).
type RankingStore interface {
	Append(ctx context.Context, rec domain.ResultRecord) error
	Leaderboard(ctx context.Context) ([]domain.ResultRecord, error)
	RecordCooldown(ctx context.Context, matric string, at time.Time) error
	IsOnCooldown(ctx context.Context, matric string, now time.Time) (bool, error)
}

// RemoteSink receives a copy of each result on a best-effort basis.
type RemoteSink interface {
	Send(ctx context.Context, rec domain.ResultRecord) error
}

// Finalize turns a terminal attempt into its result record.
func Finalize(a Attempt, id string, at time.Time) domain.ResultRecord {
	total := len(a.Questions)
	category := a.Identity.Category
	if a.Mode == domain.ModeCompetition {
		category = domain.CompetitionCategory
	}
	return domain.ResultRecord{
		ID:          id,
		Identity:    a.Identity,
		Category:    category,
		Correct:     a.Tally.Correct,
		Wrong:       a.Tally.Wrong,
		Total:       total,
		Percentage:  domain.Percentage(a.Tally.Correct, total),
		Competition: a.Mode == domain.ModeCompetition,
		Expired:     a.Expired,
		Timestamp:   at,
	}
}

// Recorder stores results locally first and forwards them to the remote sink in the background.
type Recorder struct {
	store         RankingStore
	remote        RemoteSink
	events        *Hub
	log           *zap.Logger
	remoteTimeout time.Duration
	now           func() time.Time
	wg            sync.WaitGroup
}

// NewRecorder wires a recorder. remote and events may be nil.
func NewRecorder(store RankingStore, remote RemoteSink, events *Hub, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		store:         store,
		remote:        remote,
		events:        events,
		log:           log,
		remoteTimeout: 5 * time.Second,
		now:           time.Now,
	}
}

// Store appends rec to the ranking store, retrying once before giving up with ErrResultNotSaved.
func (r *Recorder) Store(ctx context.Context, rec domain.ResultRecord) error {
	if err := r.store.Append(ctx, rec); err != nil {
		r.log.Warn("result append failed, retrying", zap.String("id", rec.ID), zap.Error(err))
		if err := r.store.Append(ctx, rec); err != nil {
			r.log.Error("result not saved", zap.String("id", rec.ID), zap.Error(err))
			return fmt.Errorf("%w: %w", domain.ErrResultNotSaved, err)
		}
	}

	r.publishLeaderboard(ctx)
	return nil
}

// Forward sends rec to the remote sink in the background. Failures are logged, never retried.
func (r *Recorder) Forward(rec domain.ResultRecord) {
	if r.remote == nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.remoteTimeout)
		defer cancel()
		if err := r.remote.Send(ctx, rec); err != nil {
			r.log.Warn("remote result forward failed", zap.String("id", rec.ID), zap.Error(err))
		}
	}()
}

func (r *Recorder) publishLeaderboard(ctx context.Context) {
	if r.events == nil {
		return
	}
	records, err := r.store.Leaderboard(ctx)
	if err != nil {
		r.log.Warn("leaderboard refresh failed", zap.Error(err))
		return
	}
	lb := domain.BuildLeaderboard(records, "", r.now())
	r.events.Publish(Event{Type: EventLeaderboardUpdated, Leaderboard: &lb})
}

// Wait blocks until in-flight remote forwards finish.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
