package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/config"
	httpapi "github.com/tbourn/test-stack-api/internal/http"
	"github.com/tbourn/test-stack-api/internal/http/handlers"
	"github.com/tbourn/test-stack-api/internal/jobs"
	"github.com/tbourn/test-stack-api/internal/observability"
	"github.com/tbourn/test-stack-api/internal/repo"
	"github.com/tbourn/test-stack-api/internal/sysutil"
	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// shutdownTimeout bounds graceful shutdown of the server, jobs and exporters.
const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "api",
		Short:         handlers.ServiceDescription,
		Version:       handlers.ServiceVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(envFile)
		},
		RunE: runServe,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server and background jobs",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Reset the database to the sample data set",
			Args:  cobra.NoArgs,
			RunE:  runSeed,
		},
		newContractsCmd(),
	)
	return root
}

// loadEnv loads the dotenv file if it exists. Variables already set in the
// environment win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newContractsCmd() *cobra.Command {
	var openapi bool
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Print the published contract document as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any = contracts.Document()
			if openapi {
				v = contracts.OpenAPI()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
	cmd.Flags().BoolVar(&openapi, "openapi", false, "print the OpenAPI 3.1 document instead")
	return cmd
}

// openDB opens, migrates and instruments the configured database.
func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := observability.InstrumentDB(db, cfg.OTEL); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("instrument database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	restore := sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	defer restore()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := repo.Seed(cmd.Context(), db); err != nil {
		log.Error().Err(err).Msg("Seed failed")
		return err
	}
	log.Info().
		Int("items", len(repo.SeedItems)).
		Int("notes", len(repo.SeedNotes)).
		Msg("Database seeded")
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	restore := sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	defer restore()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.Setup(ctx, cfg.OTEL, handlers.ServiceVersion)
	if err != nil {
		log.Error().Err(err).Msg("OpenTelemetry setup failed")
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		_ = shutdownOTel(context.Background())
		return err
	}
	defer closeDB(db)

	sched := jobs.NewScheduler(db, cfg.Jobs)
	if err := sched.Start(ctx); err != nil {
		_ = shutdownOTel(context.Background())
		return err
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.Env).
			Str("base_path", cfg.APIBasePath).
			Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error().Err(serveErr).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Background jobs did not stop in time")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("OpenTelemetry shutdown failed")
	}
	log.Info().Msg("Server stopped")
	return serveErr
}
