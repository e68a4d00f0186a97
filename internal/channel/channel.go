// Package channel defines the boundary between the bot core and the
// messaging platform: one operation out (send a text message) and one
// shape in (an inbound text message).
package channel

import "context"

// Sender delivers a plain text message to a chat. Implemented by the
// Telegram channel; mocked in tests.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Inbound is an inbound text message reduced to what the command layer
// needs: who sent it, where, and what it says.
type Inbound struct {
	SenderID int64
	ChatID   int64
	Text     string
}
