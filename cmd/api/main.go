package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const version = "1.0.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "promptarchitect",
		Usage:   "Style DNA extraction and prompt sharing API",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
		Action: serve,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
