// Package config handles YAML configuration loading, environment variable
// expansion, defaults, and validation.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Storage  StorageConfig  `yaml:"storage"`
	Gateway  GatewayConfig  `yaml:"gateway"`
}

// TelegramConfig configures the bot channel.
type TelegramConfig struct {
	Token          string `yaml:"token"`
	ChannelID      int64  `yaml:"channel_id"`
	Mode           string `yaml:"mode"` // polling or webhook
	WebhookURL     string `yaml:"webhook_url"`
	WebhookSecret  string `yaml:"webhook_secret"`
	PollingTimeout int    `yaml:"polling_timeout"`
	APIURL         string `yaml:"api_url"`
}

// ScheduleConfig configures the daily tick timing.
type ScheduleConfig struct {
	Timezone string `yaml:"timezone"` // IANA zone name
	Anchor   string `yaml:"anchor"`   // HH:MM local time of the daily post
}

// StorageConfig configures the state file.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// GatewayConfig configures the HTTP surface.
type GatewayConfig struct {
	Bind            string        `yaml:"bind"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.Telegram.Mode == "" {
		c.Telegram.Mode = "polling"
	}
	if c.Telegram.PollingTimeout == 0 {
		c.Telegram.PollingTimeout = 30
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "Europe/Paris"
	}
	if c.Schedule.Anchor == "" {
		c.Schedule.Anchor = "00:00"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "state.json"
	}
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = ":8080"
	}
}
