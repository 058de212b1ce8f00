package config

import (
	"strings"
	"testing"
	"time"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SchedulerSpec != "@every 24h" {
		t.Errorf("SchedulerSpec = %q", cfg.SchedulerSpec)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %s, want 24h", cfg.TokenTTL)
	}
	if cfg.NotificationsEnabled() {
		t.Error("notifications enabled without SMTP_HOST")
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("KafkaBrokers = %v, want none", cfg.KafkaBrokers)
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SCHEDULER_ITEM_TIMEOUT", "5s")
	t.Setenv("SCHEDULER_RUN_ON_START", "true")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.StoreBackend != StoreBackendMemory {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.SchedulerItemTimeout != 5*time.Second || !cfg.SchedulerRunOnStart {
		t.Errorf("scheduler settings = %s, %v", cfg.SchedulerItemTimeout, cfg.SchedulerRunOnStart)
	}
	if loc, _ := cfg.Location(); loc != time.UTC {
		t.Errorf("Location = %v, want UTC", loc)
	}
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"backend", "STORE_BACKEND", "redis", "STORE_BACKEND"},
		{"cron spec", "SCHEDULER_SPEC", "every day", "SCHEDULER_SPEC"},
		{"timezone", "SCHEDULER_TIMEZONE", "Mars/Olympus", "SCHEDULER_TIMEZONE"},
		{"ttl", "TOKEN_TTL", "soon", "TOKEN_TTL"},
		{"bool", "MIGRATE_ON_START", "maybe", "MIGRATE_ON_START"},
		{"jwt", "JWT_SECRET", "", "JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_BACKEND", "memory")
			t.Setenv(tt.key, tt.val)

			_, err := NewConfig()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
