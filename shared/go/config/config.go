package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
	CORS     CORSConfig
	Logging  LoggingConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	USPS     USPSConfig
	Signup   SignupConfig

	// SeedDemoData loads the demo wine catalog when the wines table is empty.
	SeedDemoData bool
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string // Full PostgreSQL URL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds session signing settings
type SecurityConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// RedisConfig points at the session allowlist. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StripeConfig holds the payment processor key.
type StripeConfig struct {
	SecretKey string
}

// USPSConfig holds address validation credentials.
type USPSConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	BaseURL        string
}

// Enabled reports whether both credentials are present.
func (u USPSConfig) Enabled() bool {
	return u.ConsumerKey != "" && u.ConsumerSecret != ""
}

// SignupConfig tunes the wait for the trigger-created profile row.
type SignupConfig struct {
	ProfilePollAttempts int
	ProfilePollInterval time.Duration
}

// Load reads config/local.env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load("config/local.env")

	cfg := &Config{}

	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	if err := cfg.loadSecurity(); err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}
	if err := cfg.loadRedis(); err != nil {
		return nil, fmt.Errorf("load redis config: %w", err)
	}
	if err := cfg.loadSignup(); err != nil {
		return nil, fmt.Errorf("load signup config: %w", err)
	}

	cfg.loadCORS()
	cfg.loadLogging()

	cfg.Stripe.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.USPS = USPSConfig{
		ConsumerKey:    os.Getenv("USPS_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("USPS_CONSUMER_SECRET"),
		BaseURL:        getEnvOrDefault("USPS_BASE_URL", "https://apis.usps.com"),
	}
	cfg.SeedDemoData, _ = strconv.ParseBool(getEnvOrDefault("SEED_DEMO_DATA", "false"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadDatabase() error {
	c.Database.URL = os.Getenv("DATABASE_URL")

	if c.Database.URL == "" {
		c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
		c.Database.User = os.Getenv("DB_USER")
		c.Database.Password = os.Getenv("DB_PASSWORD")
		c.Database.Name = os.Getenv("DB_NAME")
		c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

		port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		c.Database.Port = port

		if c.Database.Host != "" && c.Database.User != "" && c.Database.Name != "" {
			c.Database.URL = fmt.Sprintf(
				"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
				c.Database.User,
				c.Database.Password,
				c.Database.Host,
				c.Database.Port,
				c.Database.Name,
				c.Database.SSLMode,
			)
		}
	}

	return nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")

	if c.Server.ReadTimeout, err = durationEnv("SERVER_READ_TIMEOUT", 10*time.Second); err != nil {
		return err
	}
	if c.Server.WriteTimeout, err = durationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second); err != nil {
		return err
	}
	if c.Server.IdleTimeout, err = durationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second); err != nil {
		return err
	}
	return nil
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")

	ttl, err := durationEnv("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return err
	}
	c.Security.SessionTTL = ttl
	return nil
}

func (c *Config) loadRedis() error {
	c.Redis.Addr = os.Getenv("REDIS_ADDR")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	db, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	c.Redis.DB = db
	return nil
}

func (c *Config) loadSignup() error {
	attempts, err := strconv.Atoi(getEnvOrDefault("PROFILE_POLL_ATTEMPTS", "10"))
	if err != nil {
		return fmt.Errorf("invalid PROFILE_POLL_ATTEMPTS: %w", err)
	}
	c.Signup.ProfilePollAttempts = attempts

	interval, err := durationEnv("PROFILE_POLL_INTERVAL", 200*time.Millisecond)
	if err != nil {
		return err
	}
	c.Signup.ProfilePollInterval = interval
	return nil
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
		return
	}

	for _, origin := range strings.Split(originsEnv, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			c.CORS.AllowedOrigins = append(c.CORS.AllowedOrigins, trimmed)
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	if c.Database.URL == "" {
		errors = append(errors, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}

	if c.Security.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.Security.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.SessionTTL <= 0 {
		errors = append(errors, "SESSION_TTL must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	if c.Stripe.SecretKey != "" && !strings.HasPrefix(c.Stripe.SecretKey, "sk_") {
		errors = append(errors, "STRIPE_SECRET_KEY must start with sk_test_ or sk_live_")
	}

	if c.Signup.ProfilePollAttempts < 1 {
		errors = append(errors, "PROFILE_POLL_ATTEMPTS must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return strings.ToLower(os.Getenv("ENV")) == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
