// Package bootstrap loads configuration and opens shared resources for the
// CLI commands.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/repolens/gatekeeper/internal/infrastructure/config"
	"github.com/repolens/gatekeeper/internal/infrastructure/database"
	"github.com/repolens/gatekeeper/internal/shared/biztime"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

// Environment returns ENV when set, otherwise the flag value.
func Environment(flag string) string {
	if v := os.Getenv("ENV"); v != "" {
		return v
	}
	return flag
}

// Load reads the configuration for env and initializes logging and the
// business timezone.
func Load(env string) (*config.Config, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = GinMode(env)

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := biztime.Init(cfg.Usage.Timezone); err != nil {
		return nil, fmt.Errorf("invalid usage timezone: %w", err)
	}
	return cfg, nil
}

// OpenDatabase initializes the process-wide database. Call database.Close when done.
func OpenDatabase(cfg *config.Config) error {
	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// OpenRedis returns nil when Redis is disabled.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
	}
	return client, nil
}

func GinMode(env string) string {
	switch env {
	case "production", "prod", "release":
		return gin.ReleaseMode
	case "test", "testing":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
