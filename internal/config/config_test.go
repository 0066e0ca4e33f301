package config_test

import (
	"testing"
	"time"

	"FuelStream/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("nats url: got %q", cfg.NATSURL)
	}
	if cfg.Subject != "fuel.prices.update" {
		t.Errorf("subject: got %q", cfg.Subject)
	}
	if cfg.PollCooldown != 60*time.Second {
		t.Errorf("poll cooldown: got %s", cfg.PollCooldown)
	}
	if cfg.MaxMessagesPerCycle != 200 {
		t.Errorf("max messages per cycle: got %d", cfg.MaxMessagesPerCycle)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("refresh interval: got %s", cfg.RefreshInterval)
	}
	if cfg.MirrorPath != "" {
		t.Errorf("mirror should be disabled by default, got %q", cfg.MirrorPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FUEL_NATS_URL", "nats://broker:4222")
	t.Setenv("FUEL_POLL_COOLDOWN", "90s")
	t.Setenv("FUEL_MAX_MESSAGES_PER_CYCLE", "500")
	t.Setenv("FUEL_MIRROR_PATH", "/tmp/prices.csv")

	cfg := config.Load()
	if cfg.NATSURL != "nats://broker:4222" {
		t.Errorf("nats url: got %q", cfg.NATSURL)
	}
	if cfg.PollCooldown != 90*time.Second {
		t.Errorf("poll cooldown: got %s", cfg.PollCooldown)
	}
	if cfg.MaxMessagesPerCycle != 500 {
		t.Errorf("max messages per cycle: got %d", cfg.MaxMessagesPerCycle)
	}
	if cfg.MirrorPath != "/tmp/prices.csv" {
		t.Errorf("mirror path: got %q", cfg.MirrorPath)
	}
}

func TestLoad_InvalidOverridesFallBack(t *testing.T) {
	t.Setenv("FUEL_POLL_COOLDOWN", "soon")
	t.Setenv("FUEL_MAX_MESSAGES_PER_CYCLE", "many")

	cfg := config.Load()
	if cfg.PollCooldown != 60*time.Second {
		t.Errorf("unparseable duration should keep the default, got %s", cfg.PollCooldown)
	}
	if cfg.MaxMessagesPerCycle != 200 {
		t.Errorf("unparseable int should keep the default, got %d", cfg.MaxMessagesPerCycle)
	}
}

func TestValidateFeeder(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateFeeder(); err == nil {
		t.Error("missing credentials should fail validation")
	}

	cfg.APIKey = "key"
	if err := cfg.ValidateFeeder(); err == nil {
		t.Error("missing auth header should fail validation")
	}

	cfg.AuthorizationHeader = "Basic dGVzdA=="
	if err := cfg.ValidateFeeder(); err != nil {
		t.Errorf("complete config rejected: %v", err)
	}

	cfg.PollCooldown = 0
	if err := cfg.ValidateFeeder(); err == nil {
		t.Error("zero cooldown should fail validation")
	}
}

func TestValidateConsumer(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateConsumer(); err != nil {
		t.Errorf("default consumer config rejected: %v", err)
	}

	cfg.MaxMessagesPerCycle = 0
	if err := cfg.ValidateConsumer(); err == nil {
		t.Error("zero batch bound should fail validation")
	}

	cfg = config.Default()
	cfg.RefreshInterval = -time.Second
	if err := cfg.ValidateConsumer(); err == nil {
		t.Error("negative refresh interval should fail validation")
	}
}
