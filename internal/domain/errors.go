package domain

import "errors"

var (
	// ErrInvalidInput is returned when an attempt cannot start with the given parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyRunning is returned when starting while another attempt is in progress.
	ErrAlreadyRunning = errors.New("attempt already running")
	// ErrNotStarted is returned when acting on a session that never started an attempt.
	ErrNotStarted = errors.New("no attempt in progress")
	// ErrSessionClosed is returned when acting on a completed attempt.
	ErrSessionClosed = errors.New("attempt already completed")
	// ErrSelectionRequired is returned when advancing before an option was chosen.
	ErrSelectionRequired = errors.New("select an option first")
	// ErrAlreadyLocked indicates the current question was already answered; the selection was ignored.
	ErrAlreadyLocked = errors.New("question already answered")
	// ErrUnavailable indicates the question supplier could not be reached.
	ErrUnavailable = errors.New("questions unavailable")
	// ErrEmpty indicates the question supplier has no questions for the category.
	ErrEmpty = errors.New("no questions for this category")
	// ErrOnCooldown is returned when a competition attempt is requested too soon.
	ErrOnCooldown = errors.New("competition already attempted this week")
	// ErrResultNotSaved indicates a finished attempt could not be written to the ranking store.
	ErrResultNotSaved = errors.New("result not saved")
)
