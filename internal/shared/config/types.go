package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	BaseURL      string `mapstructure:"base_url"`
	PluginOrigin string `mapstructure:"plugin_origin"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the gorm dialect through Driver: mysql, postgres or sqlite.
// For sqlite, Database is the file path (":memory:" for an in-process database).
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres":
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
	case "sqlite":
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	}
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// SessionConfig describes the upstream web application's session token, which
// GET /auth exchanges for a gateway access token.
type SessionConfig struct {
	CookieName string `mapstructure:"cookie_name"`
	Secret     string `mapstructure:"secret"`
	Issuer     string `mapstructure:"issuer"`
	LoginURL   string `mapstructure:"login_url"`
}

type AuthConfig struct {
	JWT     JWTConfig     `mapstructure:"jwt"`
	Session SessionConfig `mapstructure:"session"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type StripeConfig struct {
	SecretKey       string      `mapstructure:"secret_key"`
	WebhookSecret   string      `mapstructure:"webhook_secret"`
	SuccessURL      string      `mapstructure:"success_url"`
	CancelURL       string      `mapstructure:"cancel_url"`
	PortalReturnURL string      `mapstructure:"portal_return_url"`
	PricePlans      []PricePlan `mapstructure:"price_plans"`
}

// PricePlan binds a Stripe price ID to a plan slug. Kept as a list because
// viper lowercases map keys and price IDs are case sensitive.
type PricePlan struct {
	PriceID string `mapstructure:"price_id"`
	Plan    string `mapstructure:"plan"`
}

type UsageConfig struct {
	MeteredActions []string `mapstructure:"metered_actions"`
	Timezone       string   `mapstructure:"timezone"`
	// EventRetentionDays bounds the usage audit trail; 0 keeps it forever.
	EventRetentionDays int `mapstructure:"event_retention_days"`
}

type TimeoutConfig struct {
	Read    time.Duration `mapstructure:"read"`
	Webhook time.Duration `mapstructure:"webhook"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type HandoffConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	TrustedOrigins []string      `mapstructure:"trusted_origins"`
}

type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type PluginConfig struct {
	MinVersion string `mapstructure:"min_version"`
}

type ReconcileConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Lookback time.Duration `mapstructure:"lookback"`
}
