package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// maxWebhookBody caps the accepted webhook payload size.
const maxWebhookBody = 1 << 20

// WebhookReceiver processes incoming Telegram webhook payloads. It is
// mounted by the gateway at POST /webhook/telegram.
type WebhookReceiver struct {
	deliver func(ctx context.Context, u *Update)
	logger  *slog.Logger
	secret  string
}

// NewWebhookReceiver creates a new WebhookReceiver. deliver is called for
// every accepted update.
func NewWebhookReceiver(deliver func(ctx context.Context, u *Update), logger *slog.Logger, secret string) *WebhookReceiver {
	return &WebhookReceiver{
		deliver: deliver,
		logger:  logger,
		secret:  secret,
	}
}

// ServeHTTP implements http.Handler. It validates Telegram's secret token
// header, decodes the update, and hands it to the channel. Telegram is
// answered 200 for every accepted request; processing happens before the
// response so a crash mid-handling surfaces as a retry from Telegram.
func (w *WebhookReceiver) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if w.secret != "" {
		token := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			w.logger.Warn("webhook request with invalid secret token rejected")
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		w.logger.Warn("webhook update with invalid JSON rejected", "error", err)
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}

	w.deliver(r.Context(), &update)
	rw.WriteHeader(http.StatusOK)
}
