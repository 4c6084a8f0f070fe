// Package migrations embeds the goose SQL migrations and applies them.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

// FS exposes the embedded migration files.
func FS() embed.FS {
	return files
}

// Up applies every pending migration against the database at dsn.
func Up(ctx context.Context, dsn string) ([]*goose.MigrationResult, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("migrations: open: %w", err)
	}
	defer db.Close()
	return UpDB(ctx, db)
}

// UpDB applies pending migrations on an already opened handle.
func UpDB(ctx context.Context, db *sql.DB) ([]*goose.MigrationResult, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, files)
	if err != nil {
		return nil, fmt.Errorf("migrations: provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return results, fmt.Errorf("migrations: up: %w", err)
	}
	return results, nil
}
