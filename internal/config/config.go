// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links, redirects and as the
	// default token issuer.
	BaseURL string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds session and bootstrap account settings.
	Auth AuthConfig

	// Gate holds the one-time console login settings.
	Gate GateConfig

	// Protection holds the admin lockdown settings.
	Protection ProtectionConfig

	// Tokens holds the bearer token defaults used until an administrator
	// saves token settings.
	Tokens TokensConfig

	// TrustedProxies lists the CIDRs whose forwarding headers are believed
	// when resolving the client IP.
	TrustedProxies []string

	// CORSOrigins lists the front-end origins allowed to call /graphql.
	CORSOrigins []string

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SecretKey keys the login-hash HMAC and the form nonces. It is NOT the
	// bearer token secret, which lives in the options store.
	SecretKey string

	// SessionTTL is how long console sessions last before expiring.
	SessionTTL time.Duration

	// BootstrapLogin and BootstrapPassword create the first administrator
	// when the users table is empty. Both must be set.
	BootstrapLogin    string
	BootstrapPassword string
	BootstrapEmail    string
}

// GateConfig holds the one-time console login settings.
type GateConfig struct {
	// Path is where the console gate is mounted (default: "/console").
	Path string

	// RateLimit is the number of login links one IP may request per
	// RateWindow. Deployed copies of the gate drifted between 5 and 50;
	// 5 is the default.
	RateLimit  int
	RateWindow time.Duration

	// Attempts is the number of page loads and submissions one link allows.
	Attempts int

	// LinkTTL is the fixed lifetime of a login link.
	LinkTTL time.Duration

	// AccessLogPath is the append-only access log file ("" disables it).
	AccessLogPath string
}

// ProtectionConfig holds the admin lockdown settings.
type ProtectionConfig struct {
	// Enabled turns the admin lockdown filter on.
	Enabled bool

	// AdminPath is the path prefix of the admin area (default: "/wp-admin").
	AdminPath string

	// LegacyLoginEndpoint is the blocked legacy login script name.
	LegacyLoginEndpoint string

	// ConfigFile is the generated YAML file consulted first for the allow-list.
	ConfigFile string
}

// TokensConfig holds bearer token defaults.
type TokensConfig struct {
	// DefaultExpiry is the token lifetime when none is configured (default: 7 days).
	DefaultExpiry time.Duration

	// Issuer is the default "iss" claim (default: BaseURL).
	Issuer string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present; real
// environment variables win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", slog.Any("error", err))
	}

	cfg := &Config{
		Env:     getEnv("ENV", "development"),
		Port:    getEnvInt("PORT", 8080),
		BaseURL: strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "headless"),
			Password:        getEnv("DB_PASSWORD", "headless"),
			Name:            getEnv("DB_NAME", "headless"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SecretKey:         getEnv("SECRET_KEY", ""),
			SessionTTL:        getEnvDuration("SESSION_TTL", 48*time.Hour),
			BootstrapLogin:    getEnv("BOOTSTRAP_ADMIN_LOGIN", ""),
			BootstrapPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
			BootstrapEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		},

		Gate: GateConfig{
			Path:          getEnv("GATE_PATH", "/console"),
			RateLimit:     getEnvInt("GATE_RATE_LIMIT", 5),
			RateWindow:    getEnvDuration("GATE_RATE_WINDOW", time.Hour),
			Attempts:      getEnvInt("GATE_ATTEMPTS", 4),
			LinkTTL:       getEnvDuration("GATE_LINK_TTL", 30*time.Minute),
			AccessLogPath: getEnv("GATE_ACCESS_LOG", "./access.log"),
		},

		Protection: ProtectionConfig{
			Enabled:             getEnvBool("ADMIN_PROTECTION", true),
			AdminPath:           getEnv("ADMIN_PATH", "/wp-admin"),
			LegacyLoginEndpoint: getEnv("LEGACY_LOGIN_ENDPOINT", "wp-login.php"),
			ConfigFile:          getEnv("SETTINGS_FILE", "./config/settings.yaml"),
		},

		Tokens: TokensConfig{
			DefaultExpiry: getEnvDuration("TOKEN_DEFAULT_EXPIRY", 7*24*time.Hour),
			Issuer:        getEnv("TOKEN_ISSUER", ""),
		},

		TrustedProxies: getEnvList("TRUSTED_PROXIES", nil),
		CORSOrigins:    getEnvList("CORS_ORIGINS", nil),

		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
	}

	if cfg.Tokens.Issuer == "" {
		cfg.Tokens.Issuer = cfg.BaseURL
	}
	if cfg.Tokens.DefaultExpiry <= 0 {
		return nil, fmt.Errorf("TOKEN_DEFAULT_EXPIRY must be positive")
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
	}

	if cfg.Gate.RateLimit < 1 {
		return nil, fmt.Errorf("GATE_RATE_LIMIT must be at least 1")
	}
	if cfg.Gate.Attempts < 1 {
		return nil, fmt.Errorf("GATE_ATTEMPTS must be at least 1")
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", "false", "0", ...) or
// returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "30m") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var, dropping blank entries.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
