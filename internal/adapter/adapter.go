package adapter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aivistech/infrabot/internal/bot"
	"github.com/aivistech/infrabot/internal/errors"
)

// EventHandler is the callback adapters invoke for each inbound message.
// It keeps adapters decoupled from the dispatch queue.
type EventHandler func(ctx context.Context, evt *bot.Event) error

// InputAdapter receives messages from a chat platform.
type InputAdapter interface {
	Name() string

	// Start begins listening (long-poll or server). Must respect context
	// cancellation.
	Start(ctx context.Context) error

	Stop(ctx context.Context) error
}

// OutputAdapter sends reply text back to a chat platform.
type OutputAdapter interface {
	Name() string
	Send(ctx context.Context, chatID int64, content string) error
}

// Mux routes replies to the output adapter matching the event's source.
type Mux struct {
	mu       sync.RWMutex
	adapters map[string]OutputAdapter
}

func NewMux() *Mux {
	return &Mux{adapters: make(map[string]OutputAdapter)}
}

func (m *Mux) Register(out OutputAdapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adapters[out.Name()] = out
	slog.Info("Output adapter registered", "name", out.Name())
}

func (m *Mux) Send(ctx context.Context, source string, chatID int64, content string) error {
	m.mu.RLock()
	out, ok := m.adapters[source]
	m.mu.RUnlock()
	if !ok {
		return errors.NotFound("no output adapter for source " + source)
	}
	return out.Send(ctx, chatID, content)
}
