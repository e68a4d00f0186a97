// Package cron runs registered jobs on cron schedules with per-job overlap
// protection, panic recovery, and timezone-aware timing.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Job is a unit of scheduled work.
type Job interface {
	// Name identifies the job in logs. Must be unique per scheduler.
	Name() string

	// Schedule returns the cron expression (minute hour dom month dow).
	Schedule() string

	// Run executes one tick. The context is cancelled on scheduler stop.
	Run(ctx context.Context) error
}

// AnchorSpec converts an "HH:MM" anchor time into a daily cron expression.
func AnchorSpec(anchor string) (string, error) {
	parts := strings.SplitN(anchor, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("cron: invalid anchor %q (want HH:MM)", anchor)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return "", fmt.Errorf("cron: invalid anchor hour in %q", anchor)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return "", fmt.Errorf("cron: invalid anchor minute in %q", anchor)
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}

// slogAdapter bridges robfig/cron's logger to slog. Used for the panic
// recovery chain.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Info(msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{"error", err}, keysAndValues...)
	a.logger.Error(msg, args...)
}
