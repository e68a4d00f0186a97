package channel

import (
	"context"
	"sync"
)

// Mock is a test double for Sender. It records every send and can be
// primed to fail.
type Mock struct {
	mu   sync.Mutex
	sent []SentMessage
	err  error
}

// SentMessage is one recorded SendText call.
type SentMessage struct {
	ChatID int64
	Text   string
}

// Compile-time interface check.
var _ Sender = (*Mock)(nil)

// NewMock creates an empty Mock.
func NewMock() *Mock {
	return &Mock{}
}

// SendText implements Sender.
func (m *Mock) SendText(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, SentMessage{ChatID: chatID, Text: text})
	return nil
}

// Fail makes every subsequent SendText return err. Pass nil to heal.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Sent returns a copy of the recorded sends.
func (m *Mock) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
