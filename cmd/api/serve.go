package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"promptarchitect/internal/adapter/repo"
	"promptarchitect/internal/devicestore"
	"promptarchitect/internal/http/handlers"
	"promptarchitect/internal/http/httpapi"
	"promptarchitect/internal/identity"
	"promptarchitect/internal/infra"
	"promptarchitect/internal/infra/credentials"
	"promptarchitect/internal/infra/geoip"
	"promptarchitect/internal/infra/google"
	"promptarchitect/internal/middleware"
	"promptarchitect/internal/migrations"
	"promptarchitect/internal/providers/genai"
	"promptarchitect/internal/providers/style"
	"promptarchitect/internal/storage"
	"promptarchitect/internal/studio"
	"promptarchitect/internal/validation"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API (default)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Apply pending migrations before serving",
			},
		},
		Action: serve,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)
			return migrate(c.Context, cfg, logger)
		},
	}
}

func migrate(ctx context.Context, cfg *infra.Config, logger infra.Logger) error {
	results, err := migrations.Up(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.Info().Str("migration", r.Source.Path).Dur("took", r.Duration).Msg("migration applied")
	}
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Bool("migrate") {
		if err := migrate(ctx, cfg, logger); err != nil {
			return err
		}
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	prompts := repo.NewPromptRepository(runner)
	users := repo.NewUserRepository(runner)
	keys := credentials.NewStore(runner)

	genLogger := logger.With().Str("component", "genai").Logger()
	client := genai.NewClient(genai.Options{
		APIKey:    cfg.GeminiAPIKey,
		KeySource: keys.GeminiAPIKey,
		BaseURL:   cfg.GeminiBaseURL,
		Logger:    &genLogger,
	})
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not set; using the stored key or synthetic images")
	}
	gateway := style.NewGateway(client, style.Options{
		TextModel:  cfg.GeminiTextModel,
		ImageModel: cfg.GeminiImageModel,
		Logger:     logger.With().Str("component", "style").Logger(),
	})

	devices, err := devicestore.Open(cfg.DeviceStorePath)
	if err != nil {
		return err
	}
	defer devices.Close()

	files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		return err
	}

	var countryLookup middleware.CountryLookup
	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if geo != nil {
		defer geo.Close()
		countryLookup = geo.CountryCode
	}

	broker := identity.NewBroker()
	tokens := identity.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)
	var providers []identity.Provider
	if cfg.GoogleClientID != "" {
		verifier := google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID)
		providers = append(providers, identity.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleRedirectURL, verifier))
	}
	if cfg.GitHubClientID != "" {
		providers = append(providers, identity.NewGitHubProvider(identity.GitHubOptions{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
		}))
	}
	if len(providers) == 0 {
		logger.Warn().Msg("no sign-in provider configured; publishing and likes are unavailable")
	}
	ident := identity.NewService(tokens, users, devices, devices, broker, logger, providers...)

	hub := studio.NewHub(studio.Deps{
		Style:   gateway,
		Prompts: prompts,
		Likes:   devices,
		Images:  files,
		Logger:  logger,
	}, broker, cfg.DraftIdleTTL)
	defer hub.Close()
	go hub.Run(ctx)

	app := &handlers.App{
		Studio:         hub,
		Identity:       ident,
		Preferences:    devices,
		DB:             pool,
		Logger:         logger,
		Validator:      validation.New(),
		AITimeout:      cfg.AITimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	if len(providers) > 0 {
		app.DefaultProvider = string(providers[0].Name())
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:        logger,
		CORSOrigins:   cfg.CORSOrigins,
		RateLimiter:   middleware.NewRateLimiter(cfg.RateLimitPerMin),
		Sessions:      ident,
		CountryLookup: countryLookup,
		StaticDir:     files.BasePath(),
	})
	server := infra.NewHTTPServer(cfg, router, logger)

	errc := make(chan error, 1)
	go func() { errc <- server.Start() }()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("failed to shut down server")
	}
	logger.Info().Msg("server stopped")
	return nil
}
