// Package migrations embeds the PostgreSQL schema and applies it in file order.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
)

//go:embed *.sql
var files embed.FS

const versionsTable = "schema_migrations"

// Files returns the embedded migration names in apply order
func Files() ([]string, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Apply runs every migration not yet recorded in schema_migrations. Each file
// runs in its own transaction together with its version row.
func Apply(ctx context.Context, db *sql.DB) error {
	logger := observability.LoggerFromContext(ctx)
	dialect := goqu.Dialect("postgres")

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+versionsTable+` (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("failed to create %s: %w", versionsTable, err)
	}

	names, err := Files()
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}

	for _, name := range names {
		query, args, err := dialect.From(versionsTable).
			Prepared(true).
			Select(goqu.L("COUNT(*)")).
			Where(goqu.Ex{"version": name}).
			ToSQL()
		if err != nil {
			return fmt.Errorf("failed to build version query: %w", err)
		}
		var applied int
		if err := db.QueryRowContext(ctx, query, args...).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		body, err := files.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		insert, insertArgs, err := dialect.Insert(versionsTable).
			Prepared(true).
			Rows(goqu.Record{"version": name}).
			ToSQL()
		if err != nil {
			return fmt.Errorf("failed to build version insert: %w", err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, err)
		}
		logger.Info().Str("migration", name).Msg("applied migration")
	}
	return nil
}
