package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// Poller implements long-polling for receiving Telegram updates.
type Poller struct {
	client   *Client
	deliver  func(ctx context.Context, u *Update)
	logger   *slog.Logger
	timeout  int
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a new Poller. deliver is called for every update.
func NewPoller(client *Client, deliver func(ctx context.Context, u *Update), logger *slog.Logger, timeout int) *Poller {
	return &Poller{
		client:  client,
		deliver: deliver,
		logger:  logger,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.loop(ctx)
}

// Stop signals the polling loop to stop and waits for it to finish. It is
// safe to call Stop multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
	<-p.done
}

// loop runs the long-polling loop until the context is cancelled. After
// too many consecutive errors it pauses before polling again so a broken
// network does not turn into a tight loop.
func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	var offset int
	var consecutiveErrors int

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.timeout,
			AllowedUpdates: []string{"message"},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.logger.Warn("polling paused after consecutive errors",
					"pause", errorPauseDuration,
				)
				select {
				case <-ctx.Done():
					return
				case <-time.After(errorPauseDuration):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for i := range updates {
			offset = updates[i].UpdateID + 1
			p.deliver(ctx, &updates[i])
		}
	}
}
