package postgres

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	pgmigrations "timed-quiz-service/internal/infra/postgres/migrations"
)

// Migrate applies pending schema migrations and returns the names of the ones it ran.
func Migrate(ctx context.Context, dsn string) ([]string, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, nil
	}
	var applied []string
	for _, m := range group.Migrations {
		applied = append(applied, m.Name)
	}
	return applied, nil
}
