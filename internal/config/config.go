package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	SQL       SQLConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Snapshot  SnapshotConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type StoreConfig struct {
	Backend string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// SQLConfig is used by the sqlite and postgres backends.
type SQLConfig struct {
	DSN string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// KeycloakConfig enables SSO tokens on the admin routes. Only tokens with
// AdminRole or from AdminSubject are accepted.
type KeycloakConfig struct {
	URL          string
	Realm        string
	ClientID     string
	AdminRole    string
	AdminSubject string
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AdminConfig gates the dashboard routes. Auth is enabled once a username and
// a password (or bcrypt hash) are configured.
type AdminConfig struct {
	Username     string
	Password     string
	PasswordHash string
	Email        string
}

func (a AdminConfig) Enabled() bool {
	return a.Username != "" && (a.Password != "" || a.PasswordHash != "")
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Timeout  time.Duration
}

func (m MailConfig) Enabled() bool { return m.Host != "" }

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// SnapshotConfig controls object-storage snapshots of the memory backend.
type SnapshotConfig struct {
	Enabled  bool
	Key      string
	Interval time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 10)
	viper.SetDefault("STORE_BACKEND", BackendMemory)
	viper.SetDefault("MONGODB_DATABASE", "portfolio")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("SQL_DSN", "portfolio.db")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("KEYCLOAK_ADMIN_ROLE", "portfolio-admin")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	viper.SetDefault("MAIL_PORT", 587)
	viper.SetDefault("MAIL_TIMEOUT", 10)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 0.2)
	viper.SetDefault("RATE_LIMIT_BURST", 5)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("SNAPSHOT_KEY", "snapshots/portfolio.json")
	viper.SetDefault("SNAPSHOT_INTERVAL", 300)

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			Host:            viper.GetString("SERVER_HOST"),
			Environment:     viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: time.Duration(viper.GetInt("SERVER_SHUTDOWN_TIMEOUT")) * time.Second,
		},
		Store: StoreConfig{
			Backend: strings.ToLower(strings.TrimSpace(viper.GetString("STORE_BACKEND"))),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		SQL: SQLConfig{
			DSN: viper.GetString("SQL_DSN"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:          viper.GetString("KEYCLOAK_URL"),
			Realm:        viper.GetString("KEYCLOAK_REALM"),
			ClientID:     viper.GetString("KEYCLOAK_CLIENT_ID"),
			AdminRole:    viper.GetString("KEYCLOAK_ADMIN_ROLE"),
			AdminSubject: viper.GetString("KEYCLOAK_ADMIN_SUBJECT"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL: time.Duration(viper.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
		},
		Admin: AdminConfig{
			Username:     viper.GetString("ADMIN_USERNAME"),
			Password:     os.Getenv("ADMIN_PASSWORD"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			Email:        viper.GetString("ADMIN_EMAIL"),
		},
		Mail: MailConfig{
			Host:     viper.GetString("MAIL_HOST"),
			Port:     viper.GetInt("MAIL_PORT"),
			Username: viper.GetString("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     viper.GetString("MAIL_FROM"),
			To:       viper.GetString("MAIL_TO"),
			Timeout:  time.Duration(viper.GetInt("MAIL_TIMEOUT")) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Snapshot: SnapshotConfig{
			Enabled:  viper.GetBool("SNAPSHOT_ENABLED"),
			Key:      viper.GetString("SNAPSHOT_KEY"),
			Interval: time.Duration(viper.GetInt("SNAPSHOT_INTERVAL")) * time.Second,
		},
	}

	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}
	if cfg.Mail.To == "" {
		cfg.Mail.To = cfg.Mail.From
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("STORE_BACKEND=mongo requires MONGODB_URI")
		}
	case BackendPostgres:
		if c.SQL.DSN == "" || c.SQL.DSN == "portfolio.db" {
			return fmt.Errorf("STORE_BACKEND=postgres requires SQL_DSN")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Admin.Enabled() && c.JWT.Secret == "" {
		return fmt.Errorf("admin auth requires JWT_SECRET")
	}
	if c.Snapshot.Enabled && c.Snapshot.Interval <= 0 {
		return fmt.Errorf("SNAPSHOT_INTERVAL must be positive when SNAPSHOT_ENABLED is set")
	}
	if c.Mail.Enabled() && c.Mail.To == "" {
		return fmt.Errorf("MAIL_HOST is set but no MAIL_TO/MAIL_FROM recipient")
	}
	return nil
}
