package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"time"

	"untilbot/internal/cron"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Validate checks the structural validity of a Config after defaults have
// been applied. All problems are reported at once via errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Telegram.Token == "" {
		errs = append(errs, errors.New("config: telegram.token is required"))
	} else if !tokenPattern.MatchString(cfg.Telegram.Token) {
		errs = append(errs, errors.New("config: telegram.token format invalid (expected <bot_id>:<hash>)"))
	}

	if cfg.Telegram.ChannelID == 0 {
		errs = append(errs, errors.New("config: telegram.channel_id is required"))
	}

	switch cfg.Telegram.Mode {
	case "polling", "webhook":
	default:
		errs = append(errs, fmt.Errorf("config: invalid telegram.mode %q (must be \"polling\" or \"webhook\")", cfg.Telegram.Mode))
	}

	if cfg.Telegram.Mode == "webhook" && cfg.Telegram.WebhookURL == "" {
		errs = append(errs, errors.New("config: telegram.webhook_url is required when mode is \"webhook\""))
	}

	if cfg.Telegram.PollingTimeout < 0 || cfg.Telegram.PollingTimeout > 50 {
		errs = append(errs, fmt.Errorf("config: telegram.polling_timeout must be 0-50, got %d", cfg.Telegram.PollingTimeout))
	}

	if cfg.Telegram.APIURL != "" {
		u, err := url.Parse(cfg.Telegram.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("config: telegram.api_url must be a valid http/https URL, got %q", cfg.Telegram.APIURL))
		}
	}

	if _, err := time.LoadLocation(cfg.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("config: unknown schedule.timezone %q", cfg.Schedule.Timezone))
	}

	if _, err := cron.AnchorSpec(cfg.Schedule.Anchor); err != nil {
		errs = append(errs, fmt.Errorf("config: invalid schedule.anchor %q (want HH:MM)", cfg.Schedule.Anchor))
	}

	if cfg.Storage.Path == "" {
		errs = append(errs, errors.New("config: storage.path is required"))
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Gateway.Bind); err != nil {
		errs = append(errs, errors.New("config: invalid gateway.bind address: "+cfg.Gateway.Bind))
	}

	return errors.Join(errs...)
}

// Location resolves the configured timezone. Call after Validate.
func (c ScheduleConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
