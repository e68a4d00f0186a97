// Package app wires the bot's components together and drives their
// lifecycle: gateway first, then the channel, then the scheduler; stopped
// in reverse order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"untilbot/internal/command"
	"untilbot/internal/config"
	"untilbot/internal/countdown"
	"untilbot/internal/cron"
	"untilbot/internal/gateway"
	"untilbot/internal/metrics"
	"untilbot/internal/state"
	"untilbot/internal/telegram"
)

// stopTimeout bounds each component's shutdown.
const stopTimeout = 15 * time.Second

// App is the assembled bot.
type App struct {
	logger    *slog.Logger
	store     *state.FileStore
	channel   *telegram.Channel
	scheduler *cron.Scheduler
	gateway   *gateway.Server
}

// New builds the App from a validated config.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, err
	}

	set := metrics.New()
	store := state.NewFileStore(cfg.Storage.Path, logger)

	ch := telegram.NewChannel(telegram.Options{
		Token:          cfg.Telegram.Token,
		APIURL:         cfg.Telegram.APIURL,
		ChannelID:      cfg.Telegram.ChannelID,
		Mode:           cfg.Telegram.Mode,
		WebhookURL:     cfg.Telegram.WebhookURL,
		WebhookSecret:  cfg.Telegram.WebhookSecret,
		PollingTimeout: cfg.Telegram.PollingTimeout,
		Logger:         logger,
	})

	handler := command.NewHandler(command.Config{
		Store:    store,
		Admin:    ch,
		Sender:   ch,
		Metrics:  set,
		Logger:   logger,
		Timezone: loc,
	})
	ch.SetHandler(handler.Handle)

	job := countdown.NewJob(countdown.Config{
		ChannelID: cfg.Telegram.ChannelID,
		Timezone:  loc,
		Anchor:    cfg.Schedule.Anchor,
		Logger:    logger,
	}, store, ch, set)

	scheduler := cron.NewScheduler(loc, logger)
	if err := scheduler.RegisterJob(job); err != nil {
		return nil, err
	}

	// In webhook mode the channel's receiver must exist before the router
	// is built, so the handler has to be wired first (done above).
	var webhookHandler *telegram.WebhookReceiver
	if cfg.Telegram.Mode == telegram.ModeWebhook {
		webhookHandler = ch.WebhookHandler()
	}

	gwCfg := gateway.Config{
		Bind:            cfg.Gateway.Bind,
		ReadTimeout:     cfg.Gateway.ReadTimeout,
		WriteTimeout:    cfg.Gateway.WriteTimeout,
		ShutdownTimeout: cfg.Gateway.ShutdownTimeout,
	}
	var gw *gateway.Server
	if webhookHandler != nil {
		gw = gateway.NewServer(gwCfg, logger, set.Handler(), webhookHandler)
	} else {
		gw = gateway.NewServer(gwCfg, logger, set.Handler(), nil)
	}

	return &App{
		logger:    logger,
		store:     store,
		channel:   ch,
		scheduler: scheduler,
		gateway:   gw,
	}, nil
}

// Run starts everything and blocks until ctx is cancelled, then stops the
// components in reverse order.
func (a *App) Run(ctx context.Context) error {
	if err := a.gateway.Start(); err != nil {
		return fmt.Errorf("app: start gateway: %w", err)
	}

	if err := a.channel.Start(ctx); err != nil {
		a.stopGateway()
		return fmt.Errorf("app: start channel: %w", err)
	}

	if err := a.scheduler.Start(); err != nil {
		a.stopChannel()
		a.stopGateway()
		return fmt.Errorf("app: start scheduler: %w", err)
	}

	a.logger.Info("untilbot running")
	<-ctx.Done()
	a.logger.Info("shutdown requested")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop failed", "error", err)
	}
	a.stopChannel()
	a.stopGateway()

	a.logger.Info("untilbot stopped")
	return nil
}

func (a *App) stopChannel() {
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := a.channel.Stop(stopCtx); err != nil {
		a.logger.Warn("channel stop failed", "error", err)
	}
}

func (a *App) stopGateway() {
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := a.gateway.Stop(stopCtx); err != nil {
		a.logger.Warn("gateway stop failed", "error", err)
	}
}
