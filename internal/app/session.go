package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
)

// DefaultWarningAt is the remaining-seconds mark that raises the time warning.
const DefaultWarningAt = 30

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "in_progress":
		*s = StateInProgress
	case "completed":
		*s = StateCompleted
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}

// ResultRecorder persists finished attempts. Forward is called once per record;
// Store may be repeated when an earlier write failed.
type ResultRecorder interface {
	Forward(rec domain.ResultRecord)
	Store(ctx context.Context, rec domain.ResultRecord) error
}

// Attempt is the live state of one run through a question batch.
type Attempt struct {
	Questions     []domain.Question
	Cursor        int
	Tally         domain.Tally
	Locked        bool
	Selected      string
	TimeRemaining int
	Mode          domain.Mode
	Identity      domain.Identity
	Expired       bool
	StartedAt     time.Time

	warned bool
}

// Selection is the outcome of locking an option.
// CorrectOption is always filled so a wrong answer can highlight the right one.
type Selection struct {
	Selected      string `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correctOption"`
}

// Snapshot is a read-only copy of the session for the view layer.
type Snapshot struct {
	State         State                `json:"state"`
	Question      *domain.Question     `json:"question,omitempty"`
	Cursor        int                  `json:"cursor"`
	Total         int                  `json:"total"`
	Tally         domain.Tally         `json:"tally"`
	Locked        bool                 `json:"locked"`
	Selected      string               `json:"selected,omitempty"`
	TimeRemaining int                  `json:"timeRemaining"`
	Mode          domain.Mode          `json:"mode,omitempty"`
	Identity      domain.Identity      `json:"identity"`
	Result        *domain.ResultRecord `json:"result,omitempty"`
	ResultSaved   bool                 `json:"resultSaved"`
}

// Session is the state machine for a single attempt at a time.
// Every mutation, including scheduler ticks, runs under mu.
type Session struct {
	mu        sync.Mutex
	state     State
	attempt   Attempt
	gen       uint64
	result    *domain.ResultRecord
	saved     bool
	warningAt int

	scheduler Scheduler
	recorder  ResultRecorder
	events    *Hub
	rnd       *rand.Rand
	now       func() time.Time
	newID     func() string
	log       *zap.Logger
	saveTTL   time.Duration
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithScheduler replaces the one-second ticker.
func WithScheduler(s Scheduler) SessionOption {
	return func(sess *Session) { sess.scheduler = s }
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(sess *Session) { sess.now = now }
}

// WithRand sets the random source used to shuffle questions.
func WithRand(rnd *rand.Rand) SessionOption {
	return func(sess *Session) { sess.rnd = rnd }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) SessionOption {
	return func(sess *Session) {
		if log != nil {
			sess.log = log
		}
	}
}

// WithWarningAt changes the time warning threshold.
func WithWarningAt(seconds int) SessionOption {
	return func(sess *Session) { sess.warningAt = seconds }
}

// WithIDGenerator sets how result IDs are produced.
func WithIDGenerator(fn func() string) SessionOption {
	return func(sess *Session) { sess.newID = fn }
}

func NewSession(recorder ResultRecorder, events *Hub, opts ...SessionOption) *Session {
	s := &Session{
		warningAt: DefaultWarningAt,
		scheduler: NewTickerScheduler(time.Second),
		recorder:  recorder,
		events:    events,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		newID:     uuid.NewString,
		log:       zap.NewNop(),
		saveTTL:   10 * time.Second,
	}
	if s.events == nil {
		s.events = NewHub()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events exposes the hub the session publishes to.
func (s *Session) Events() *Hub {
	return s.events
}

// Start shuffles questions and begins a new attempt with the countdown running.
// A finished attempt whose result was never stored blocks a restart until RetrySave succeeds.
func (s *Session) Start(questions []domain.Question, timeLimitSeconds int, identity domain.Identity, mode domain.Mode) error {
	return s.StartAdmitted(questions, timeLimitSeconds, identity, mode, nil)
}

// StartAdmitted is Start with an admit hook run under the session lock once the session is
// known to be free. An admit error aborts the start and leaves the session untouched.
func (s *Session) StartAdmitted(questions []domain.Question, timeLimitSeconds int, identity domain.Identity, mode domain.Mode, admit func() error) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", domain.ErrInvalidInput)
	}
	if timeLimitSeconds <= 0 {
		return fmt.Errorf("%w: time limit must be positive", domain.ErrInvalidInput)
	}
	if mode != domain.ModeStandard && mode != domain.ModeCompetition {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateInProgress {
		return domain.ErrAlreadyRunning
	}
	if s.result != nil && !s.saved {
		return fmt.Errorf("%w: previous attempt %s must be saved first", domain.ErrResultNotSaved, s.result.ID)
	}
	if admit != nil {
		if err := admit(); err != nil {
			return err
		}
	}

	// Any previous run is cancelled and its generation retired before state is reset.
	s.scheduler.Stop()
	s.gen++
	gen := s.gen

	s.attempt = Attempt{
		Questions:     s.shuffleLocked(questions),
		TimeRemaining: timeLimitSeconds,
		Mode:          mode,
		Identity:      identity,
		StartedAt:     s.now(),
	}
	s.result = nil
	s.saved = false
	s.state = StateInProgress

	s.log.Info("attempt started",
		zap.String("matric", identity.Matric),
		zap.String("mode", string(mode)),
		zap.Int("questions", len(questions)),
		zap.Int("timeLimit", timeLimitSeconds),
	)
	s.events.Publish(Event{Type: EventAttemptStarted, TimeRemaining: timeLimitSeconds})
	s.scheduler.Start(func() { s.tick(gen) })
	return nil
}

// shuffleLocked returns a Fisher–Yates permutation of questions, walking from the last index down.
func (s *Session) shuffleLocked(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := len(out) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SelectOption locks the current question with option and scores it.
func (s *Session) SelectOption(option string) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return Selection{}, err
	}
	if s.attempt.Locked {
		s.log.Warn("option ignored, question already answered",
			zap.Int("cursor", s.attempt.Cursor),
			zap.String("option", option),
		)
		return Selection{}, domain.ErrAlreadyLocked
	}

	q := s.attempt.Questions[s.attempt.Cursor]
	sel := Selection{
		Selected:      option,
		Correct:       option == q.CorrectOption,
		CorrectOption: q.CorrectOption,
	}
	s.attempt.Locked = true
	s.attempt.Selected = option
	if sel.Correct {
		s.attempt.Tally.Correct++
	} else {
		s.attempt.Tally.Wrong++
	}

	s.events.Publish(Event{Type: EventOptionLocked, Selection: &sel})
	return sel, nil
}

// Advance moves past a locked question, finishing the attempt after the last one.
// A completed attempt whose result could not be stored returns ErrResultNotSaved.
func (s *Session) Advance(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return Snapshot{}, err
	}
	if !s.attempt.Locked {
		return s.snapshotLocked(), domain.ErrSelectionRequired
	}

	s.attempt.Cursor++
	if s.attempt.Cursor == len(s.attempt.Questions) {
		err := s.finishLocked(ctx)
		return s.snapshotLocked(), err
	}
	s.attempt.Locked = false
	s.attempt.Selected = ""
	return s.snapshotLocked(), nil
}

// OnTick advances the countdown of the current attempt by one second.
func (s *Session) OnTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickLocked()
}

// tick is the scheduler callback; ticks from a retired run are dropped.
func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.tickLocked()
}

func (s *Session) tickLocked() {
	if s.state != StateInProgress {
		return
	}

	s.attempt.TimeRemaining--
	remaining := s.attempt.TimeRemaining
	s.events.Publish(Event{Type: EventTick, TimeRemaining: remaining})

	if remaining == s.warningAt && !s.attempt.warned {
		s.attempt.warned = true
		s.events.Publish(Event{Type: EventTimeWarning, TimeRemaining: remaining})
	}
	if remaining > 0 {
		return
	}

	s.scheduler.Stop()
	s.events.Publish(Event{Type: EventTimeExpired})

	// The locked current question already counts in the tally.
	unanswered := len(s.attempt.Questions) - s.attempt.Cursor
	if s.attempt.Locked {
		unanswered--
	}
	s.attempt.Tally.Wrong += unanswered
	s.attempt.Cursor = len(s.attempt.Questions)
	s.attempt.Expired = true

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTTL)
	defer cancel()
	if err := s.finishLocked(ctx); err != nil {
		s.log.Error("expired attempt not saved", zap.Error(err))
	}
}

// finishLocked moves to Completed and hands the result to the recorder.
func (s *Session) finishLocked(ctx context.Context) error {
	s.scheduler.Stop()
	s.state = StateCompleted
	s.attempt.Locked = false

	rec := Finalize(s.attempt, s.newID(), s.now())
	s.result = &rec

	s.log.Info("attempt completed",
		zap.String("matric", rec.Identity.Matric),
		zap.Int("correct", rec.Correct),
		zap.Int("total", rec.Total),
		zap.Float64("percentage", rec.Percentage),
		zap.Bool("expired", rec.Expired),
	)
	s.events.Publish(Event{Type: EventAttemptCompleted, Record: &rec})
	s.recorder.Forward(rec)
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) error {
	if err := s.recorder.Store(ctx, *s.result); err != nil {
		s.events.Publish(Event{Type: EventResultNotSaved, Record: s.result, Error: err.Error()})
		return err
	}
	s.saved = true
	return nil
}

// RetrySave writes the last result again if the previous write failed.
func (s *Session) RetrySave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCompleted || s.result == nil || s.saved {
		return nil
	}
	return s.saveLocked(ctx)
}

func (s *Session) requireInProgressLocked() error {
	switch s.state {
	case StateIdle:
		return domain.ErrNotStarted
	case StateCompleted:
		return domain.ErrSessionClosed
	}
	return nil
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State reports the lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:         s.state,
		Cursor:        s.attempt.Cursor,
		Total:         len(s.attempt.Questions),
		Tally:         s.attempt.Tally,
		Locked:        s.attempt.Locked,
		Selected:      s.attempt.Selected,
		TimeRemaining: s.attempt.TimeRemaining,
		Mode:          s.attempt.Mode,
		Identity:      s.attempt.Identity,
		ResultSaved:   s.saved,
	}
	if s.state == StateInProgress && s.attempt.Cursor < len(s.attempt.Questions) {
		q := s.attempt.Questions[s.attempt.Cursor]
		q.Options = append([]string(nil), q.Options...)
		snap.Question = &q
	}
	if s.result != nil {
		rec := *s.result
		snap.Result = &rec
	}
	return snap
}
