package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aivistech/infrabot/internal/adapter"
	"github.com/aivistech/infrabot/internal/bot"
	"github.com/aivistech/infrabot/internal/concurrency"
	"github.com/aivistech/infrabot/internal/errors"
)

type RuntimeConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// Pool consumes the inbound event queue on a fixed set of goroutines. A
// slow report only occupies one worker; per-chat locks inside the
// dispatcher keep same-chat messages serialized while unrelated chats stay
// responsive.
type Pool struct {
	queue      chan *bot.Event
	dispatcher *bot.Dispatcher
	mux        *adapter.Mux

	workers         int
	shutdownTimeout time.Duration

	mu      sync.Mutex
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

func NewPool(dispatcher *bot.Dispatcher, mux *adapter.Mux, cfg RuntimeConfig) *Pool {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	return &Pool{
		queue:           make(chan *bot.Event, cfg.QueueSize),
		dispatcher:      dispatcher,
		mux:             mux,
		workers:         cfg.Workers,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Submit enqueues an event without blocking the adapter's receive loop. A
// full queue sheds the event.
func (p *Pool) Submit(ctx context.Context, evt *bot.Event) error {
	if evt == nil {
		return errors.InvalidInput("event is nil")
	}

	select {
	case p.queue <- evt:
		slog.Debug("Event queued", "id", evt.ID, "chat", evt.ChatID, "source", evt.Source)
		return nil
	default:
		slog.Warn("Dispatch queue full, dropping event", "id", evt.ID, "chat", evt.ChatID)
		return errors.Storage("dispatch queue full")
	}
}

func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("pool already started")
	}
	p.started = true
	p.quit = make(chan struct{})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		worker := i
		concurrency.SafeGo(func() {
			defer p.wg.Done()
			p.loop(ctx, worker)
		}, nil)
	}

	slog.Info("Dispatch pool started", "workers", p.workers, "queue", cap(p.queue))
	return nil
}

func (p *Pool) loop(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case evt := <-p.queue:
			p.process(ctx, evt)
		}
	}
}

func (p *Pool) process(ctx context.Context, evt *bot.Event) {
	start := time.Now()
	reply := p.dispatcher.Handle(ctx, evt)
	if reply == "" {
		return
	}

	if err := p.mux.Send(ctx, evt.Source, evt.ChatID, reply); err != nil {
		slog.Error("Failed to send reply", "id", evt.ID, "chat", evt.ChatID, "error", err)
		return
	}

	slog.Debug("Event processed", "id", evt.ID, "duration_ms", time.Since(start).Milliseconds())
}

func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}

	close(p.quit)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Dispatch pool stopped")
		p.started = false
		return nil
	case <-time.After(p.shutdownTimeout):
		slog.Warn("Dispatch pool shutdown timeout")
		p.started = false
		return fmt.Errorf("dispatch pool shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}
