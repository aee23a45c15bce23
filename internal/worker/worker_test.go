package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aivistech/infrabot/internal/adapter"
	"github.com/aivistech/infrabot/internal/auth"
	"github.com/aivistech/infrabot/internal/bot"
	"github.com/aivistech/infrabot/internal/concurrency"
	"github.com/aivistech/infrabot/internal/convo"
	"github.com/aivistech/infrabot/internal/errors"
	"github.com/aivistech/infrabot/internal/registry"
	"github.com/aivistech/infrabot/internal/sshexec"
	"github.com/aivistech/infrabot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssistant struct{}

func (stubAssistant) CreateThread(ctx context.Context) (string, error) { return "thread_1", nil }

func (stubAssistant) PostTurn(ctx context.Context, threadID, text string) (string, error) {
	return "ok", nil
}

type stubDialer struct{}

func (stubDialer) Dial(ctx context.Context, target sshexec.Target) (sshexec.Conn, error) {
	return nil, errors.ConnectionFailed("unreachable in tests")
}

type recordingOutput struct {
	mu       sync.Mutex
	contents []string
	received chan string
}

func newRecordingOutput() *recordingOutput {
	return &recordingOutput{received: make(chan string, 10)}
}

func (r *recordingOutput) Name() string { return "test" }

func (r *recordingOutput) Send(ctx context.Context, chatID int64, content string) error {
	r.mu.Lock()
	r.contents = append(r.contents, content)
	r.mu.Unlock()
	r.received <- content
	return nil
}

func newTestDispatcher(t *testing.T) *bot.Dispatcher {
	t.Helper()
	dir := t.TempDir()

	cfgStore, err := store.OpenConfigStore(dir)
	require.NoError(t, err)
	sessStore, err := store.OpenSessionStore(dir)
	require.NoError(t, err)

	return bot.NewDispatcher(
		auth.NewGuard(cfgStore, 1000),
		registry.New(cfgStore),
		sshexec.New(stubDialer{}, 0),
		convo.NewController(sessStore, stubAssistant{}, ""),
		concurrency.NewChatLockManager(),
	)
}

func TestPool_ProcessesEventAndRepliesThroughMux(t *testing.T) {
	out := newRecordingOutput()
	mux := adapter.NewMux()
	mux.Register(out)

	pool := NewPool(newTestDispatcher(t), mux, RuntimeConfig{QueueSize: 8, Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop(context.Background())

	evt := bot.NewEvent("test", -100, 1000, "/help")
	require.NoError(t, pool.Submit(ctx, evt))

	select {
	case content := <-out.received:
		assert.Contains(t, content, "/set_server")
	case <-time.After(2 * time.Second):
		t.Fatal("no reply delivered")
	}
}

func TestPool_FullQueueShedsEvents(t *testing.T) {
	mux := adapter.NewMux()
	pool := NewPool(newTestDispatcher(t), mux, RuntimeConfig{QueueSize: 1, Workers: 1})

	// Not started, so the single slot fills and stays full.
	ctx := context.Background()
	require.NoError(t, pool.Submit(ctx, bot.NewEvent("test", -100, 1000, "/help")))

	err := pool.Submit(ctx, bot.NewEvent("test", -100, 1000, "/help"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrStorage))
}

func TestPool_SubmitRejectsNil(t *testing.T) {
	pool := NewPool(newTestDispatcher(t), adapter.NewMux(), RuntimeConfig{})

	err := pool.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.ErrInvalidInput))
}

func TestPool_StartTwiceFails(t *testing.T) {
	pool := NewPool(newTestDispatcher(t), adapter.NewMux(), RuntimeConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop(context.Background())

	assert.Error(t, pool.Start(ctx))
}

func TestPool_StopDrainsWorkers(t *testing.T) {
	pool := NewPool(newTestDispatcher(t), adapter.NewMux(), RuntimeConfig{Workers: 3})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	require.NoError(t, pool.Stop(context.Background()))
	// Stopping again is a no-op.
	require.NoError(t, pool.Stop(context.Background()))
}
