package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	pgstore "timed-quiz-service/internal/infra/postgres"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "insert the bundled sample questions after migrating")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, seed bool) error {
	cfg, log, err := loadRuntime(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	applied, err := pgstore.Migrate(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.Strings("migrations", applied))

	if !seed {
		return nil
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := pgstore.NewQuestionLoader(pool)
	for _, q := range sampleQuestions() {
		if _, err := loader.InsertQuestion(ctx, q); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	log.Info("sample questions seeded", zap.Int("count", len(sampleQuestions())))
	return nil
}
