package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/repolens/gatekeeper/internal/infrastructure/database"
	"github.com/repolens/gatekeeper/internal/infrastructure/migration"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/bootstrap"
	httpRouter "github.com/repolens/gatekeeper/internal/interfaces/http"
	sharedConfig "github.com/repolens/gatekeeper/internal/shared/config"
	"github.com/repolens/gatekeeper/internal/shared/logger"
	"github.com/repolens/gatekeeper/internal/shared/version"
)

var (
	env                string
	autoMigrate        bool
	skipMigrationCheck bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the gateway HTTP server with the configuration for the given environment.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Run database migrations on startup")
	cmd.Flags().BoolVar(&skipMigrationCheck, "skip-migration-check", false, "Skip migration status check on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	env = bootstrap.Environment(env)

	cfg, err := bootstrap.Load(env)
	if err != nil {
		return err
	}

	logger.Info("starting server",
		"environment", env,
		"version", version.Build,
		"auto_migrate", autoMigrate)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	if err := bootstrap.OpenDatabase(cfg); err != nil {
		return err
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := handleMigrations(ctx, env, &cfg.Database); err != nil {
		return err
	}

	redisClient, err := bootstrap.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient == nil {
		logger.Warn("redis disabled: subscription cache, rate limiting and cross-instance handoff are off")
	}

	container := httpRouter.NewContainer(database.Get(), redisClient, cfg, logger.NewLogger())
	container.SetupRoutes()
	container.Start(ctx)
	defer func() {
		if err := container.Shutdown(); err != nil {
			logger.Error("container shutdown failed", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.GetAddr(),
		Handler:           container.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
		// Handoff polls hold the connection until the handoff resolves.
		WriteTimeout: cfg.Handoff.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", srv.Addr, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

func handleMigrations(ctx context.Context, environment string, dbCfg *sharedConfig.DatabaseConfig) error {
	if skipMigrationCheck {
		logger.Info("skipping migration check")
		return nil
	}

	manager := migration.NewManager(dbCfg, logger.NewComponentLogger("migration"))

	// sqlite has no versioned scripts, so it always migrates on startup.
	if autoMigrate || dbCfg.AutoMigrate || dbCfg.Driver == "sqlite" {
		if environment == "production" {
			logger.Warn("running migrations on startup in production")
		}
		return manager.Migrate(ctx, database.Get())
	}

	versioned, err := manager.Versioned()
	if err != nil {
		logger.Info("migration status unavailable", "strategy", manager.Strategy().Name())
		return nil
	}
	v, err := versioned.Version(ctx, database.Get())
	if err != nil {
		logger.Warn("failed to check migration status", "error", err)
		return nil
	}
	logger.Info("current migration version", "version", v, "strategy", versioned.Name())
	return nil
}
