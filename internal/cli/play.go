package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// NewPlayCmd runs one attempt in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		identity    domain.Identity
		competition bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a timed quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			rt, err := buildRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			mode := domain.ModeStandard
			if competition {
				mode = domain.ModeCompetition
			}
			return playAttempt(cmd.Context(), rt.service, os.Stdin, os.Stdout, identity, mode)
		},
	}
	cmd.Flags().StringVar(&identity.DisplayName, "name", "", "participant name")
	cmd.Flags().StringVar(&identity.Matric, "matric", "", "matric number")
	cmd.Flags().StringVar(&identity.Category, "field", "", "field of study")
	cmd.Flags().BoolVar(&competition, "competition", false, "take the weekly competition instead")
	return cmd
}

var (
	infoColor    = color.New(color.FgCyan)
	correctColor = color.New(color.FgGreen)
	wrongColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
)

// playAttempt drives one attempt from line-based input until it completes or input ends.
func playAttempt(ctx context.Context, service *app.QuizService, in io.Reader, out io.Writer, identity domain.Identity, mode domain.Mode) error {
	events, cancel := service.Subscribe()
	defer cancel()

	var (
		snap app.Snapshot
		err  error
	)
	if mode == domain.ModeCompetition {
		snap, err = service.StartCompetition(ctx, identity)
	} else {
		snap, err = service.StartStandard(ctx, identity)
	}
	if err != nil {
		return err
	}
	infoColor.Fprintf(out, "\n%d questions, %d seconds. Answer with the option number.\n", snap.Total, snap.TimeRemaining)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	shown := -1
	for snap.State == app.StateInProgress {
		if snap.Cursor != shown && snap.Question != nil {
			printQuestion(out, snap)
			shown = snap.Cursor
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev.Type {
			case app.EventTimeWarning:
				warnColor.Fprintf(out, "%d seconds left!\n", ev.TimeRemaining)
			case app.EventTimeExpired:
				wrongColor.Fprintln(out, "Time is up.")
				snap = service.Snapshot()
			}
		case line, ok := <-lines:
			if !ok {
				return errors.New("input closed before the attempt finished")
			}
			snap, err = answer(ctx, service, out, snap, line)
			if err != nil && !errors.Is(err, domain.ErrResultNotSaved) {
				if errors.Is(err, domain.ErrSessionClosed) {
					snap = service.Snapshot()
					continue
				}
				return err
			}
		}
	}

	return printResult(ctx, service, out, snap)
}

func printQuestion(out io.Writer, snap app.Snapshot) {
	q := snap.Question
	fmt.Fprintf(out, "\nQuestion %d/%d (%ds left)\n%s\n", snap.Cursor+1, snap.Total, snap.TimeRemaining, q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
}

// answer locks the chosen option and moves on. Unparseable input keeps the current question.
func answer(ctx context.Context, service *app.QuizService, out io.Writer, snap app.Snapshot, line string) (app.Snapshot, error) {
	if snap.Question == nil {
		return snap, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(snap.Question.Options) {
		warnColor.Fprintf(out, "Enter a number between 1 and %d.\n", len(snap.Question.Options))
		return snap, nil
	}

	sel, err := service.Select(ctx, snap.Question.Options[n-1])
	if err != nil {
		return snap, err
	}
	if sel.Correct {
		correctColor.Fprintln(out, "Correct!")
	} else {
		wrongColor.Fprintf(out, "Wrong. The answer was %s.\n", sel.CorrectOption)
	}
	return service.Advance(ctx)
}

func printResult(ctx context.Context, service *app.QuizService, out io.Writer, snap app.Snapshot) error {
	rec := snap.Result
	if rec == nil {
		return errors.New("attempt finished without a result")
	}
	infoColor.Fprintf(out, "\n%s (%s): %d correct, %d wrong, %.2f%%\n",
		rec.Identity.DisplayName, rec.Category, rec.Correct, rec.Wrong, rec.Percentage)

	if !snap.ResultSaved {
		warnColor.Fprintln(out, "Result not saved, retrying...")
		if err := service.RetrySave(ctx); err != nil {
			return err
		}
		correctColor.Fprintln(out, "Result saved.")
	}
	return nil
}
