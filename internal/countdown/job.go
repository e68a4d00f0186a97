// Package countdown implements the daily tick: the state machine that
// decides whether today's post is a countdown number, a trigger-day post
// that records the event, or a forecast inferred from past intervals.
package countdown

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"untilbot/internal/channel"
	"untilbot/internal/cron"
	"untilbot/internal/forecast"
	"untilbot/internal/metrics"
	"untilbot/internal/state"
)

// Config holds the daily job configuration.
type Config struct {
	ChannelID     int64
	Timezone      *time.Location // nil = UTC
	Anchor        string         // "HH:MM", default "00:00"
	RetryInterval time.Duration  // pause between retries of a failed tick
	MaxRetries    uint64         // retries after the first failed attempt
	Logger        *slog.Logger
	Now           func() time.Time // injectable for testing
}

func (c Config) withDefaults() Config {
	if c.Timezone == nil {
		c.Timezone = time.UTC
	}
	if c.Anchor == "" {
		c.Anchor = "00:00"
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Minute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Job posts the daily message. It implements cron.Job and runs once per
// day at the configured anchor time in the configured timezone.
type Job struct {
	cfg     Config
	store   state.Store
	sender  channel.Sender
	metrics *metrics.Set
}

// Compile-time interface check.
var _ cron.Job = (*Job)(nil)

// NewJob creates the daily job.
func NewJob(cfg Config, store state.Store, sender channel.Sender, set *metrics.Set) *Job {
	if set == nil {
		set = metrics.New()
	}
	return &Job{
		cfg:     cfg.withDefaults(),
		store:   store,
		sender:  sender,
		metrics: set,
	}
}

// Name implements cron.Job.
func (j *Job) Name() string { return "daily_post" }

// Schedule implements cron.Job.
func (j *Job) Schedule() string {
	spec, err := cron.AnchorSpec(j.cfg.Anchor)
	if err != nil {
		// Config validation rejects bad anchors before the job is built;
		// fall back to midnight if one slips through.
		return "0 0 * * *"
	}
	return spec
}

// Run executes one tick, retrying with a constant pause on unexpected
// failure so a transient problem never kills the day's post outright.
// Delivery failures are not retried here; the next day's tick is the retry.
func (j *Job) Run(ctx context.Context) error {
	op := func() error {
		if err := j.tick(ctx); err != nil {
			j.metrics.TickErrors.Inc()
			j.cfg.Logger.Error("daily tick failed, will retry",
				"retry_in", j.cfg.RetryInterval,
				"error", err,
			)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(j.cfg.RetryInterval), j.cfg.MaxRetries),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("countdown: tick abandoned after retries: %w", err)
	}
	return nil
}

// postKind classifies the outcome of one tick.
type postKind int

const (
	kindSkip postKind = iota
	kindCountdown
	kindForecast
	kindTrigger
)

func (k postKind) label() string {
	switch k {
	case kindCountdown:
		return metrics.PostCountdown
	case kindForecast:
		return metrics.PostForecast
	case kindTrigger:
		return metrics.PostTrigger
	default:
		return "skip"
	}
}

// outcome is the decision of one tick: what to post, if anything.
type outcome struct {
	kind postKind
	text string
}

// tick loads the state, advances the state machine for today, persists any
// changes, and posts the resulting message. State mutation and persistence
// happen inside one Store.Update critical section.
func (j *Job) tick(ctx context.Context) error {
	today := state.DateOf(j.cfg.Now().In(j.cfg.Timezone))

	var out outcome
	err := j.store.Update(func(s *state.State) error {
		out = advance(s, today, j.cfg.Logger)
		return nil
	})
	if err != nil {
		return fmt.Errorf("countdown: update state: %w", err)
	}

	if out.kind == kindSkip {
		j.metrics.LastTickUnix.SetToCurrentTime()
		return nil
	}

	if err := j.sender.SendText(ctx, j.cfg.ChannelID, out.text); err != nil {
		// Delivery failure: logged and counted, never escalated. Tomorrow's
		// tick is the retry.
		j.cfg.Logger.Error("daily post delivery failed",
			"kind", out.kind.label(),
			"error", err,
		)
		j.metrics.DeliveryFailures.Inc()
		j.metrics.LastTickUnix.SetToCurrentTime()
		return nil
	}

	j.cfg.Logger.Info("daily post sent",
		"kind", out.kind.label(),
		"text", out.text,
	)
	j.metrics.PostsSent.WithLabelValues(out.kind.label()).Inc()
	j.metrics.LastTickUnix.SetToCurrentTime()
	return nil
}

// advance applies one day of the Idle → Counting → Triggered → Idle state
// machine to s and returns what to post.
//
//   - Triggered (target == today): record the event. The interval since the
//     previous event is appended unless this is the first recorded event.
//     A second tick on the same calendar day is a no-op repeat: it must not
//     double-count an interval, so it is logged and skipped.
//   - Idle (no target): post the forecast, or the fixed no-data message.
//   - Counting (target in the future): post the days left as a bare number,
//     clamped at zero.
func advance(s *state.State, today state.Date, logger *slog.Logger) outcome {
	switch {
	case s.TargetDate != nil && s.TargetDate.Equal(today):
		if s.LastEventDate != nil && s.LastEventDate.Equal(today) {
			logger.Info("repeat trigger on the same day, skipping",
				"date", today.String(),
			)
			return outcome{kind: kindSkip}
		}

		if s.LastEventDate != nil {
			interval := today.DaysSince(*s.LastEventDate)
			s.Intervals = append(s.Intervals, interval)
			logger.Info("event recorded",
				"date", today.String(),
				"interval_days", interval,
			)
		} else {
			logger.Info("first event recorded, no interval yet",
				"date", today.String(),
			)
		}

		d := today
		s.LastEventDate = &d
		s.TargetDate = nil
		return outcome{kind: kindTrigger, text: "0"}

	case s.TargetDate == nil:
		res, ok := forecast.Compute(s.Intervals)
		if !ok {
			return outcome{kind: kindForecast, text: forecast.NoDataMessage}
		}
		return outcome{kind: kindForecast, text: res.Summary()}

	default:
		left := s.TargetDate.DaysSince(today)
		if left < 0 {
			left = 0
		}
		return outcome{kind: kindCountdown, text: fmt.Sprintf("%d", left)}
	}
}
