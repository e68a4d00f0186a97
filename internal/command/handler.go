// Package command parses inbound text messages, authorizes them against
// the channel's admin list, and mutates the persisted state through the
// store. It is thin glue: all state rules live in the store contract and
// the daily tick.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"untilbot/internal/channel"
	"untilbot/internal/metrics"
	"untilbot/internal/state"
)

// inputDateLayout is the date format admins type in chat (DD-MM-YYYY).
const inputDateLayout = "02-01-2006"

// Reply texts.
const (
	replyGreeting = "Hello! Send me a date (dd-mm-yyyy) to start the countdown or 'None' to reset. /state shows the stored state, /setstate <json> overwrites it."
	replyDenied   = "You are not authorized to do that."
	replyCleared  = "Countdown reset. Future posts will show the forecast."
	replyBadDate  = "Invalid format! Please use dd-mm-yyyy."
	replyNotAhead = "The date must be in the future."
)

// Admin answers "may this user administer the bot". The Telegram channel
// implements it via getChatMember.
type Admin interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// Handler routes inbound messages to the matching command.
type Handler struct {
	store   state.Store
	admin   Admin
	sender  channel.Sender
	metrics *metrics.Set
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

// Config holds the handler's collaborators and clock.
type Config struct {
	Store    state.Store
	Admin    Admin
	Sender   channel.Sender
	Metrics  *metrics.Set
	Logger   *slog.Logger
	Timezone *time.Location   // nil = UTC
	Now      func() time.Time // injectable for testing
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		store:   cfg.Store,
		admin:   cfg.Admin,
		sender:  cfg.Sender,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		loc:     cfg.Timezone,
		now:     cfg.Now,
	}
}

// Handle processes one inbound message and replies in the same chat.
func (h *Handler) Handle(ctx context.Context, in channel.Inbound) {
	text := strings.TrimSpace(in.Text)

	switch {
	case text == "/start":
		h.reply(ctx, in, replyGreeting)
		h.metrics.Commands.WithLabelValues("start", "ok").Inc()

	case text == "/state":
		h.inspectState(ctx, in)

	case strings.HasPrefix(text, "/setstate"):
		h.overwriteState(ctx, in, strings.TrimSpace(strings.TrimPrefix(text, "/setstate")))

	case strings.EqualFold(text, "none"):
		h.clearTarget(ctx, in)

	default:
		h.setTarget(ctx, in, text)
	}
}

// inspectState replies with the raw persisted document.
func (h *Handler) inspectState(ctx context.Context, in channel.Inbound) {
	if !h.authorize(ctx, in, "state") {
		return
	}

	data, err := json.Marshal(h.store.Load())
	if err != nil {
		h.logger.Error("state inspection failed", "error", err)
		h.metrics.Commands.WithLabelValues("state", "error").Inc()
		return
	}
	h.reply(ctx, in, string(data))
	h.metrics.Commands.WithLabelValues("state", "ok").Inc()
}

// overwriteState replaces the persisted document after full schema
// validation. On a validation error the state is left unchanged.
func (h *Handler) overwriteState(ctx context.Context, in channel.Inbound, payload string) {
	if !h.authorize(ctx, in, "setstate") {
		return
	}

	var next state.State
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		h.reply(ctx, in, "Invalid state payload: "+err.Error())
		h.metrics.Commands.WithLabelValues("setstate", "invalid").Inc()
		return
	}
	if err := state.Validate(next); err != nil {
		h.reply(ctx, in, "Invalid state payload: "+err.Error())
		h.metrics.Commands.WithLabelValues("setstate", "invalid").Inc()
		return
	}

	if err := h.store.Save(next); err != nil {
		h.logger.Error("state overwrite failed", "error", err)
		h.reply(ctx, in, "Failed to persist state.")
		h.metrics.Commands.WithLabelValues("setstate", "error").Inc()
		return
	}

	h.logger.Info("state overwritten by admin", "user", in.SenderID)
	h.reply(ctx, in, "State overwritten.")
	h.metrics.Commands.WithLabelValues("setstate", "ok").Inc()
}

// clearTarget resets the countdown. Clearing always nulls the last event
// date too, so the next trigger cannot compute an interval back to a
// pre-clear marker.
func (h *Handler) clearTarget(ctx context.Context, in channel.Inbound) {
	if !h.authorize(ctx, in, "clear") {
		return
	}

	err := h.store.Update(func(s *state.State) error {
		s.TargetDate = nil
		s.LastEventDate = nil
		return nil
	})
	if err != nil {
		h.logger.Error("countdown reset failed", "error", err)
		h.reply(ctx, in, "Failed to persist state.")
		h.metrics.Commands.WithLabelValues("clear", "error").Inc()
		return
	}

	h.logger.Info("countdown reset", "user", in.SenderID)
	h.reply(ctx, in, replyCleared)
	h.metrics.Commands.WithLabelValues("clear", "ok").Inc()
}

// setTarget parses a dd-mm-yyyy date and sets it as the countdown target.
// The date must be strictly in the future.
func (h *Handler) setTarget(ctx context.Context, in channel.Inbound, text string) {
	parsed, err := time.Parse(inputDateLayout, text)
	if err != nil {
		h.reply(ctx, in, replyBadDate)
		h.metrics.Commands.WithLabelValues("set", "invalid").Inc()
		return
	}

	if !h.authorize(ctx, in, "set") {
		return
	}

	target := state.DateOf(parsed)
	today := state.DateOf(h.now().In(h.loc))
	if !target.After(today) {
		h.reply(ctx, in, replyNotAhead)
		h.metrics.Commands.WithLabelValues("set", "invalid").Inc()
		return
	}

	err = h.store.Update(func(s *state.State) error {
		t := target
		s.TargetDate = &t
		return nil
	})
	if err != nil {
		h.logger.Error("set target failed", "error", err)
		h.reply(ctx, in, "Failed to persist state.")
		h.metrics.Commands.WithLabelValues("set", "error").Inc()
		return
	}

	h.logger.Info("countdown target set",
		"user", in.SenderID,
		"target", target.String(),
	)
	h.reply(ctx, in, fmt.Sprintf("Countdown set to %s.", parsed.Format(inputDateLayout)))
	h.metrics.Commands.WithLabelValues("set", "ok").Inc()
}

// authorize checks admin status and replies with a refusal if denied. An
// admin-check failure denies by default.
func (h *Handler) authorize(ctx context.Context, in channel.Inbound, command string) bool {
	ok, err := h.admin.IsAdmin(ctx, in.SenderID)
	if err != nil {
		h.logger.Error("admin check failed",
			"user", in.SenderID,
			"error", err,
		)
		h.metrics.Commands.WithLabelValues(command, "error").Inc()
		return false
	}
	if !ok {
		h.logger.Info("unauthorized command attempt",
			"user", in.SenderID,
			"command", command,
		)
		h.reply(ctx, in, replyDenied)
		h.metrics.Commands.WithLabelValues(command, "denied").Inc()
		return false
	}
	return true
}

// reply sends text back to the chat the message came from. Reply delivery
// failures are logged and swallowed.
func (h *Handler) reply(ctx context.Context, in channel.Inbound, text string) {
	if err := h.sender.SendText(ctx, in.ChatID, text); err != nil {
		h.logger.Error("reply delivery failed",
			"chat", in.ChatID,
			"error", err,
		)
	}
}
