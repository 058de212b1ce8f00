package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port       string
	DBConn     string
	LogLevel   string
	JWTSecret  string
	HMACSecret string
	TokenTTL   time.Duration

	StoreBackend   string
	MigrateOnStart bool

	SchedulerSpec        string
	SchedulerTimezone    string
	SchedulerItemTimeout time.Duration
	SchedulerRunOnStart  bool

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	KafkaBrokers []string
	KafkaTopic   string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	var err error
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=finance sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		HMACSecret:    getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		SchedulerSpec: getEnv("SCHEDULER_SPEC", "@every 24h"),
		// empty means the local zone of the process
		SchedulerTimezone: getEnv("SCHEDULER_TIMEZONE", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", "noreply@finance-tracker.local"),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "ledger.transactions"),
	}

	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SchedulerItemTimeout, err = getDuration("SCHEDULER_ITEM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart, err = getBool("MIGRATE_ON_START", true); err != nil {
		return nil, err
	}
	if cfg.SchedulerRunOnStart, err = getBool("SCHEDULER_RUN_ON_START", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required values are present and parseable
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendPostgres:
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required")
		}
	case StoreBackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendPostgres, StoreBackendMemory, c.StoreBackend)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.HMACSecret == "" {
		return fmt.Errorf("HMAC_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.SchedulerItemTimeout < 0 {
		return fmt.Errorf("SCHEDULER_ITEM_TIMEOUT must not be negative")
	}
	if _, err := cron.ParseStandard(c.SchedulerSpec); err != nil {
		return fmt.Errorf("invalid SCHEDULER_SPEC %q: %w", c.SchedulerSpec, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// Location resolves SchedulerTimezone
func (c *Config) Location() (*time.Location, error) {
	if c.SchedulerTimezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.SchedulerTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TIMEZONE %q: %w", c.SchedulerTimezone, err)
	}
	return loc, nil
}

// NotificationsEnabled reports whether an SMTP server is configured
func (c *Config) NotificationsEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getBool(key string, defaultVal bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
