package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sharedConfig "github.com/repolens/gatekeeper/internal/shared/config"
)

type Config struct {
	Server    sharedConfig.ServerConfig    `mapstructure:"server"`
	Database  sharedConfig.DatabaseConfig  `mapstructure:"database"`
	Logger    sharedConfig.LoggerConfig    `mapstructure:"logger"`
	Auth      sharedConfig.AuthConfig      `mapstructure:"auth"`
	Redis     sharedConfig.RedisConfig     `mapstructure:"redis"`
	Stripe    sharedConfig.StripeConfig    `mapstructure:"stripe"`
	Usage     sharedConfig.UsageConfig     `mapstructure:"usage"`
	Timeouts  sharedConfig.TimeoutConfig   `mapstructure:"timeouts"`
	RateLimit sharedConfig.RateLimitConfig `mapstructure:"ratelimit"`
	Handoff   sharedConfig.HandoffConfig   `mapstructure:"handoff"`
	Admin     sharedConfig.AdminConfig     `mapstructure:"admin"`
	Plugin    sharedConfig.PluginConfig    `mapstructure:"plugin"`
	Reconcile sharedConfig.ReconcileConfig `mapstructure:"reconcile"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml, merges configs/config.<env>.yaml when present
// and applies GATEKEEPER_* environment overrides. A .env file in the working
// directory is loaded into the process environment first.
func Load(env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetEnvPrefix("GATEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to merge %s config: %w", env, err)
			}
		}
		v.Set("server.mode", env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.plugin_origin", "null")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "gatekeeper_dev")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("auth.jwt.secret", "change-me-in-production")
	v.SetDefault("auth.jwt.issuer", "gatekeeper")
	v.SetDefault("auth.jwt.token_ttl", "168h")
	v.SetDefault("auth.session.cookie_name", "session")
	v.SetDefault("auth.session.secret", "change-me-in-production")
	v.SetDefault("auth.session.issuer", "")
	v.SetDefault("auth.session.login_url", "http://localhost:3000/login")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "5m")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.success_url", "http://localhost:3000/billing/success")
	v.SetDefault("stripe.cancel_url", "http://localhost:3000/billing/cancel")
	v.SetDefault("stripe.portal_return_url", "http://localhost:3000/account")

	v.SetDefault("usage.metered_actions", []string{"resize"})
	v.SetDefault("usage.timezone", "UTC")
	v.SetDefault("usage.event_retention_days", 90)

	v.SetDefault("timeouts.read", "800ms")
	v.SetDefault("timeouts.webhook", "10s")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 60)

	v.SetDefault("handoff.timeout", "120s")
	v.SetDefault("handoff.trusted_origins", []string{})

	v.SetDefault("admin.api_key", "")
	v.SetDefault("plugin.min_version", "")

	v.SetDefault("reconcile.interval", "15m")
	v.SetDefault("reconcile.lookback", "24h")
}
