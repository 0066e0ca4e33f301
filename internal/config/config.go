package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the configuration for both FuelStream binaries. Everything is
// loaded from environment variables with working local defaults; only the
// upstream API credentials have no default and are validated at startup.
type Config struct {
	// NATS
	NATSURL    string
	Subject    string
	StreamName string

	// Feeder: upstream API
	APIBaseURL          string
	APIKey              string
	AuthorizationHeader string

	// Feeder: cycle scheduling
	PollCooldown    time.Duration
	RequestInterval time.Duration
	PublishInterval time.Duration

	// Feeder: optional CSV mirror of cleaned events ("" disables)
	MirrorPath string

	// Consumer
	ConsumerName        string
	MaxMessagesPerCycle int
	RefreshInterval     time.Duration
	HTTPAddr            string

	// Shared
	MetricsAddr string
	LogLevel    string
}

// Default returns the baseline configuration before env overrides.
func Default() Config {
	return Config{
		NATSURL:    "nats://localhost:4222",
		Subject:    "fuel.prices.update",
		StreamName: "FUEL_PRICES",

		APIBaseURL: "https://api.onegov.nsw.gov.au",

		PollCooldown:    60 * time.Second,
		RequestInterval: 5 * time.Second,
		PublishInterval: 100 * time.Millisecond,

		ConsumerName:        "fuelstream-index",
		MaxMessagesPerCycle: 200,
		RefreshInterval:     30 * time.Second,
		HTTPAddr:            ":8080",

		MetricsAddr: ":9091",
		LogLevel:    "info",
	}
}

// Load builds the configuration from defaults plus FUEL_* env overrides.
func Load() Config {
	cfg := Default()

	cfg.NATSURL = envOrDefault("FUEL_NATS_URL", cfg.NATSURL)
	cfg.Subject = envOrDefault("FUEL_SUBJECT", cfg.Subject)
	cfg.StreamName = envOrDefault("FUEL_STREAM_NAME", cfg.StreamName)

	cfg.APIBaseURL = envOrDefault("FUEL_API_BASE_URL", cfg.APIBaseURL)
	cfg.APIKey = envOrDefault("FUEL_API_KEY", cfg.APIKey)
	cfg.AuthorizationHeader = envOrDefault("FUEL_API_AUTH_HEADER", cfg.AuthorizationHeader)

	cfg.PollCooldown = envDurationOrDefault("FUEL_POLL_COOLDOWN", cfg.PollCooldown)
	cfg.RequestInterval = envDurationOrDefault("FUEL_REQUEST_INTERVAL", cfg.RequestInterval)
	cfg.PublishInterval = envDurationOrDefault("FUEL_PUBLISH_INTERVAL", cfg.PublishInterval)
	cfg.MirrorPath = envOrDefault("FUEL_MIRROR_PATH", cfg.MirrorPath)

	cfg.ConsumerName = envOrDefault("FUEL_CONSUMER_NAME", cfg.ConsumerName)
	cfg.MaxMessagesPerCycle = envIntOrDefault("FUEL_MAX_MESSAGES_PER_CYCLE", cfg.MaxMessagesPerCycle)
	cfg.RefreshInterval = envDurationOrDefault("FUEL_REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.HTTPAddr = envOrDefault("FUEL_HTTP_ADDR", cfg.HTTPAddr)

	cfg.MetricsAddr = envOrDefault("FUEL_METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = envOrDefault("FUEL_LOG_LEVEL", cfg.LogLevel)

	return cfg
}

// ValidateFeeder checks the settings the feeder cannot run without.
// A failure here is the only fatal error class: it must be reported before
// the first poll cycle begins.
func (c Config) ValidateFeeder() error {
	if c.APIKey == "" {
		return fmt.Errorf("missing FUEL_API_KEY")
	}
	if c.AuthorizationHeader == "" {
		return fmt.Errorf("missing FUEL_API_AUTH_HEADER")
	}
	if c.PollCooldown <= 0 {
		return fmt.Errorf("FUEL_POLL_COOLDOWN must be positive, got %s", c.PollCooldown)
	}
	return nil
}

// ValidateConsumer checks the settings the consumer cannot run without.
func (c Config) ValidateConsumer() error {
	if c.MaxMessagesPerCycle <= 0 {
		return fmt.Errorf("FUEL_MAX_MESSAGES_PER_CYCLE must be positive, got %d", c.MaxMessagesPerCycle)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("FUEL_REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var i int
	if _, err := fmt.Sscanf(v, "%d", &i); err != nil {
		return defaultVal
	}
	return i
}

func envDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
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
