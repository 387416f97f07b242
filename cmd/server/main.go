package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tangled.org/tanager.social/tanager/internal/database/boltstore"
	"tangled.org/tanager.social/tanager/internal/database/sqlitestore"
	"tangled.org/tanager.social/tanager/internal/handlers"
	"tangled.org/tanager.social/tanager/internal/metrics"
	"tangled.org/tanager.social/tanager/internal/routing"
	"tangled.org/tanager.social/tanager/internal/tracing"
	"tangled.org/tanager.social/tanager/internal/trust"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	// Configure zerolog
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	log.Info().Msg("Starting Tanager Trust & Moderation Engine")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Get port from env or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "18920"
	}

	dataDir := os.Getenv("TANAGER_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get home directory")
		}
		dataDir = filepath.Join(home, ".local", "share", "tanager")
	}

	dbPath := os.Getenv("TANAGER_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "tanager.db")
	}
	sessionsPath := os.Getenv("TANAGER_SESSIONS_PATH")
	if sessionsPath == "" {
		sessionsPath = filepath.Join(dataDir, "sessions.db")
	}

	// Tracing is opt-in: it needs a collector to export to
	if os.Getenv("TRACING_ENABLED") == "true" {
		tp, err := tracing.Init(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Tracer provider shutdown failed")
			}
		}()
		log.Info().Msg("Tracing initialized")
	}

	// Open the system of record
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("Failed to open database")
	}
	defer store.Close()
	log.Info().Str("path", dbPath).Msg("Database opened")

	// Open the session store for the principal resolver
	sessions, err := boltstore.Open(boltstore.Options{Path: sessionsPath})
	if err != nil {
		log.Fatal().Err(err).Str("path", sessionsPath).Msg("Failed to open session store")
	}
	defer sessions.Close()
	log.Info().Str("path", sessionsPath).Msg("Session store opened")

	// Optional one-time bootstrap: grant the admin role to a principal so
	// a fresh deployment has at least one admin.
	if bootstrapAdmin := os.Getenv("TANAGER_BOOTSTRAP_ADMIN"); bootstrapAdmin != "" {
		isAdmin, err := store.IsAdmin(ctx, bootstrapAdmin)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to check bootstrap admin")
		}
		if !isAdmin {
			err := store.GrantRole(ctx, trust.RoleAssignment{
				ID:        uuid.NewString(),
				UserID:    bootstrapAdmin,
				RoleType:  trust.RoleAdmin,
				IsActive:  true,
				CreatedAt: time.Now().UTC(),
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to grant bootstrap admin role")
			}
			log.Info().Str("user_id", bootstrapAdmin).Msg("Bootstrap admin role granted")
		}
	}

	svc := trust.NewService(store, store.ContentStore())

	// Periodic gauge refresh for the /metrics surface
	metrics.StartCollector(ctx, metrics.StatsSource{
		ActiveRestrictions: store.CountActiveRestrictions,
		RecentActions: func(ctx context.Context) (int, error) {
			return store.CountActionsSince(ctx, time.Now().Add(-24*time.Hour))
		},
		RecentReports: func(ctx context.Context) (int, error) {
			return store.CountReportsSince(ctx, time.Now().Add(-24*time.Hour))
		},
	}, time.Minute)

	h := handlers.NewHandler(svc, store, handlers.Config{})

	handler := routing.SetupRouter(routing.Config{
		Handlers: h,
		Sessions: sessions.SessionStore(),
		Logger:   log.Logger,
	})

	server := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("address", server.Addr).
		Str("database", dbPath).
		Msg("Starting HTTP server")

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}
