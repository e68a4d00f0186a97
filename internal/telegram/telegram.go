package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"untilbot/internal/channel"
)

// Inbound message modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Options configures the Telegram channel.
type Options struct {
	Token          string
	APIURL         string // default https://api.telegram.org
	ChannelID      int64  // the channel daily posts go to and admin checks run against
	Mode           string // polling or webhook
	WebhookURL     string
	WebhookSecret  string
	PollingTimeout int // long-poll timeout in seconds
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.APIURL == "" {
		o.APIURL = "https://api.telegram.org"
	}
	if o.Mode == "" {
		o.Mode = ModePolling
	}
	if o.PollingTimeout == 0 {
		o.PollingTimeout = 30
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Handler consumes inbound text messages. Wired to the command layer.
type Handler func(ctx context.Context, in channel.Inbound)

// Channel is the Telegram implementation of the delivery boundary. It
// sends text to the configured channel and feeds inbound private messages
// to the command handler via polling or webhook, depending on the mode.
type Channel struct {
	opts    Options
	client  *Client
	logger  *slog.Logger
	handler Handler
	botUser *User

	poller   *Poller
	receiver *WebhookReceiver
}

// Compile-time interface check.
var _ channel.Sender = (*Channel)(nil)

// NewChannel creates the Telegram channel.
func NewChannel(opts Options) *Channel {
	opts = opts.withDefaults()
	return &Channel{
		opts:   opts,
		client: NewClient(opts.Token, opts.APIURL),
		logger: opts.Logger,
	}
}

// SetHandler wires the inbound message consumer. Must be called before
// Start.
func (c *Channel) SetHandler(h Handler) {
	c.handler = h
}

// WebhookHandler returns the HTTP handler for webhook mode, for the
// gateway to mount. Returns nil in polling mode.
func (c *Channel) WebhookHandler() *WebhookReceiver {
	if c.opts.Mode != ModeWebhook {
		return nil
	}
	if c.receiver == nil {
		c.receiver = NewWebhookReceiver(c.handleUpdate, c.logger, c.opts.WebhookSecret)
	}
	return c.receiver
}

// Start validates the bot token, then begins receiving updates in the
// configured mode.
func (c *Channel) Start(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("telegram: handler not set, call SetHandler before Start")
	}

	user, err := c.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	c.botUser = user
	c.logger.Info("telegram bot authenticated",
		"id", user.ID,
		"username", user.Username,
	)

	switch c.opts.Mode {
	case ModePolling:
		// Drop any stale webhook so getUpdates is allowed.
		if err := c.client.DeleteWebhook(ctx); err != nil {
			c.logger.Warn("telegram: deleteWebhook before polling failed", "error", err)
		}
		c.poller = NewPoller(c.client, c.handleUpdate, c.logger, c.opts.PollingTimeout)
		c.poller.Start()
		c.logger.Info("telegram polling started", "timeout", c.opts.PollingTimeout)

	case ModeWebhook:
		if c.opts.WebhookSecret == "" {
			c.logger.Warn("telegram webhook running without secret_token")
		}
		if err := c.client.SetWebhook(ctx, SetWebhookRequest{
			URL:            c.opts.WebhookURL,
			SecretToken:    c.opts.WebhookSecret,
			AllowedUpdates: []string{"message"},
		}); err != nil {
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		c.logger.Info("telegram webhook configured", "url", c.opts.WebhookURL)

	default:
		return fmt.Errorf("telegram: invalid mode %q", c.opts.Mode)
	}

	return nil
}

// Stop shuts down inbound delivery.
func (c *Channel) Stop(ctx context.Context) error {
	c.logger.Info("telegram channel stopping")

	switch c.opts.Mode {
	case ModePolling:
		if c.poller != nil {
			c.poller.Stop()
		}
	case ModeWebhook:
		if err := c.client.DeleteWebhook(ctx); err != nil {
			c.logger.Warn("telegram: failed to delete webhook on shutdown", "error", err)
		}
	}

	return nil
}

// SendText implements channel.Sender.
func (c *Channel) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.client.SendMessage(ctx, SendMessageRequest{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// IsAdmin reports whether the user is an administrator or the creator of
// the configured channel. The messaging platform is the authority here;
// the bot keeps no user database.
func (c *Channel) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	member, err := c.client.GetChatMember(ctx, c.opts.ChannelID, userID)
	if err != nil {
		return false, err
	}
	return member.IsAdmin(), nil
}

// handleUpdate converts an update into the boundary shape and hands it to
// the command handler. Non-text updates and bot messages are dropped.
func (c *Channel) handleUpdate(ctx context.Context, u *Update) {
	msg := u.Message
	if msg == nil || msg.Text == "" {
		c.logger.Debug("skipping update without text", "update_id", u.UpdateID)
		return
	}
	if msg.From == nil || msg.From.IsBot {
		return
	}

	c.handler(ctx, channel.Inbound{
		SenderID: msg.From.ID,
		ChatID:   msg.Chat.ID,
		Text:     msg.Text,
	})
}
