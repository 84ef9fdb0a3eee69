package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const DefaultDatabasePath = "./shelfgate.db"

type (
	Config struct {
		HTTP
		Upstream
		Cache
		Database
		Auth
		Covers
		HealthProbe
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Upstream struct {
		BaseURL         string
		APIKey          string
		LibraryID       string        // Empty: first upstream library is used
		Timeout         time.Duration // Per-call timeout for API requests
		MaxRetries      int
		RetryDelay      time.Duration
		BreakerFailures uint32        // Consecutive failures before the breaker opens
		BreakerCooldown time.Duration // Open -> half-open cool-down
	}
	Cache struct {
		TTL      time.Duration
		Capacity int // Max cached responses before LRU eviction
	}
	Database struct {
		Path string
	}
	Auth struct {
		DeviceSecret string // Shared secret devices present; empty disables auth
		ProtectReads bool   // Require auth on read endpoints too, not only progress writes
	}
	Covers struct {
		Redirect bool // Redirect devices to upstream covers instead of proxying bytes
	}
	HealthProbe struct {
		Enabled  bool
		Schedule string // Cron format: "*/5 * * * *" = every 5 minutes
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Upstream defaults
	v.SetDefault("upstream_base_url", "")
	v.SetDefault("upstream_api_key", "")
	v.SetDefault("upstream_library_id", "")
	v.SetDefault("upstream_timeout", "10s")
	v.SetDefault("upstream_max_retries", 3)
	v.SetDefault("upstream_retry_delay", "500ms")
	v.SetDefault("upstream_breaker_failures", 5)
	v.SetDefault("upstream_breaker_cooldown", "30s")

	// Cache defaults
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("cache_capacity", 1024)

	// Auth defaults
	v.SetDefault("device_secret", "")
	v.SetDefault("auth_protect_reads", false)

	// Cover serving defaults
	v.SetDefault("covers_redirect", false)

	// Upstream health probe defaults
	v.SetDefault("health_probe_enabled", true)
	v.SetDefault("health_probe_schedule", "*/5 * * * *") // Every 5 minutes

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Upstream: Upstream{
			BaseURL:         v.GetString("UPSTREAM_BASE_URL"),
			APIKey:          v.GetString("UPSTREAM_API_KEY"),
			LibraryID:       v.GetString("UPSTREAM_LIBRARY_ID"),
			Timeout:         v.GetDuration("UPSTREAM_TIMEOUT"),
			MaxRetries:      v.GetInt("UPSTREAM_MAX_RETRIES"),
			RetryDelay:      v.GetDuration("UPSTREAM_RETRY_DELAY"),
			BreakerFailures: v.GetUint32("UPSTREAM_BREAKER_FAILURES"),
			BreakerCooldown: v.GetDuration("UPSTREAM_BREAKER_COOLDOWN"),
		},
		Cache: Cache{
			TTL:      v.GetDuration("CACHE_TTL"),
			Capacity: v.GetInt("CACHE_CAPACITY"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			DeviceSecret: v.GetString("DEVICE_SECRET"),
			ProtectReads: v.GetBool("AUTH_PROTECT_READS"),
		},
		Covers: Covers{
			Redirect: v.GetBool("COVERS_REDIRECT"),
		},
		HealthProbe: HealthProbe{
			Enabled:  v.GetBool("HEALTH_PROBE_ENABLED"),
			Schedule: v.GetString("HEALTH_PROBE_SCHEDULE"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}

// Validate rejects configurations the gateway cannot start with.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	return nil
}
