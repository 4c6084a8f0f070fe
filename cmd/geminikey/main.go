package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"promptarchitect/internal/infra"
	"promptarchitect/internal/infra/credentials"
)

// geminikey stores the fallback Gemini API key used when GEMINI_API_KEY is unset.
func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "geminikey",
		Usage: "Store the Gemini API key in integration_tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "key",
				Usage:   "Gemini API key",
				EnvVars: []string{"GEMINI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:  "note",
				Usage: "Free-form note stored with the key",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	key := strings.TrimSpace(c.String("key"))
	if key == "" {
		return errors.New("GEMINI API key is required via --key or GEMINI_API_KEY")
	}
	dbURL := strings.TrimSpace(c.String("database-url"))
	if dbURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "").With().Str("cmd", "geminikey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	var props map[string]any
	if note := strings.TrimSpace(c.String("note")); note != "" {
		props = map[string]any{"note": note}
	}
	if err := store.SetGeminiAPIKey(ctx, key, props); err != nil {
		return fmt.Errorf("persist gemini api key: %w", err)
	}

	fmt.Println("GEMINI API key stored successfully")
	return nil
}
