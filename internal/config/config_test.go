package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "untilbot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
telegram:
  token: "123456:ABC-def_ghi"
  channel_id: -1001234567890
schedule:
  timezone: Europe/Paris
storage:
  path: /tmp/state.json
`

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Telegram.Mode != "polling" {
		t.Errorf("mode default = %q, want polling", cfg.Telegram.Mode)
	}
	if cfg.Telegram.PollingTimeout != 30 {
		t.Errorf("polling_timeout default = %d, want 30", cfg.Telegram.PollingTimeout)
	}
	if cfg.Schedule.Anchor != "00:00" {
		t.Errorf("anchor default = %q, want 00:00", cfg.Schedule.Anchor)
	}
	if cfg.Gateway.Bind != ":8080" {
		t.Errorf("bind default = %q, want :8080", cfg.Gateway.Bind)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("UNTILBOT_TEST_TOKEN", "99:token-from-env")

	path := writeConfig(t, `
telegram:
  token: "${UNTILBOT_TEST_TOKEN}"
  channel_id: ${UNTILBOT_TEST_CHANNEL:--100200}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Telegram.Token != "99:token-from-env" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChannelID != -100200 {
		t.Errorf("channel_id default = %d, want -100200", cfg.Telegram.ChannelID)
	}
}

func TestLoad_UnresolvedEnvFails(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "${UNTILBOT_DEFINITELY_UNSET_VAR}"
`)

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "UNTILBOT_DEFINITELY_UNSET_VAR") {
		t.Fatalf("expected unresolved variable error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		cfg := &Config{}
		cfg.Telegram.Token = "123456:ABC-def_ghi"
		cfg.Telegram.ChannelID = -1001234567890
		cfg.defaults()
		return cfg
	}

	if err := Validate(base()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, "token is required"},
		{"bad token format", func(c *Config) { c.Telegram.Token = "not a token" }, "token format invalid"},
		{"missing channel", func(c *Config) { c.Telegram.ChannelID = 0 }, "channel_id is required"},
		{"bad mode", func(c *Config) { c.Telegram.Mode = "carrier-pigeon" }, "invalid telegram.mode"},
		{"webhook without url", func(c *Config) { c.Telegram.Mode = "webhook" }, "webhook_url is required"},
		{"polling timeout range", func(c *Config) { c.Telegram.PollingTimeout = 99 }, "polling_timeout"},
		{"bad api url", func(c *Config) { c.Telegram.APIURL = "ftp://api" }, "api_url"},
		{"unknown timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad anchor", func(c *Config) { c.Schedule.Anchor = "25:00" }, "anchor"},
		{"missing storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"bad bind", func(c *Config) { c.Gateway.Bind = "not-an-addr:port:port" }, "bind"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestScheduleConfig_Location(t *testing.T) {
	t.Parallel()

	loc, err := ScheduleConfig{Timezone: "Europe/Paris"}.Location()
	if err != nil {
		t.Fatalf("location failed: %v", err)
	}
	if loc.String() != "Europe/Paris" {
		t.Errorf("location = %v", loc)
	}

	if _, err := (ScheduleConfig{Timezone: "Nowhere/Void"}).Location(); err == nil {
		t.Error("unknown timezone should fail")
	}
}
