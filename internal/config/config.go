package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the CraftLink server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Mail     MailConfig
	Sweeper  SweeperConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret        string
	RefreshSecret    string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	LoginRatePerMin  int
	APIRatePerMinute int
}

type MailConfig struct {
	// Provider is "sendgrid" or "log". The log provider writes notifications
	// to the application log instead of sending mail.
	Provider string
	APIKey   string
	BaseURL  string
	From     string
	Timeout  time.Duration
}

type SweeperConfig struct {
	Interval time.Duration
}

var validMailProviders = map[string]bool{
	"sendgrid": true,
	"log":      true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("CRAFTLINK_PORT", 8080),
			Env:  envString("CRAFTLINK_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			JWTSecret:        os.Getenv("AUTH_JWT_SECRET"),
			RefreshSecret:    os.Getenv("AUTH_REFRESH_SECRET"),
			AccessTokenTTL:   envDuration("AUTH_ACCESS_TOKEN_TTL", 72*time.Hour),
			RefreshTokenTTL:  envDuration("AUTH_REFRESH_TOKEN_TTL", 168*time.Hour),
			LoginRatePerMin:  envInt("AUTH_LOGIN_RATE_PER_MIN", 10),
			APIRatePerMinute: envInt("API_RATE_PER_MIN", 60),
		},
		Mail: MailConfig{
			Provider: envString("MAIL_PROVIDER", "log"),
			APIKey:   os.Getenv("SENDGRID_API_KEY"),
			BaseURL:  envString("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
			From:     envString("MAIL_FROM", "no-reply@craftlink.app"),
			Timeout:  envDuration("MAIL_TIMEOUT", 10*time.Second),
		},
		Sweeper: SweeperConfig{
			Interval: envDuration("SWEEPER_INTERVAL", time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("AUTH_REFRESH_SECRET is required")
	}

	if !validMailProviders[c.Mail.Provider] {
		return fmt.Errorf("MAIL_PROVIDER must be one of sendgrid, log; got %q", c.Mail.Provider)
	}
	if c.Mail.Provider == "sendgrid" && c.Mail.APIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required when MAIL_PROVIDER is sendgrid")
	}

	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("SWEEPER_INTERVAL must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
