package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/aivistech/infrabot/internal/config"
	"github.com/aivistech/infrabot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	report string
	err    error
	calls  int
}

func (r *stubRunner) RunScheduledReport(ctx context.Context, chatID int64) (string, error) {
	r.calls++
	return r.report, r.err
}

type stubSender struct {
	source  string
	chatID  int64
	content string
	sends   int
}

func (s *stubSender) Send(ctx context.Context, source string, chatID int64, content string) error {
	s.source = source
	s.chatID = chatID
	s.content = content
	s.sends++
	return nil
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{Enabled: true, CronSpec: "7 5 * * *", Source: "telegram", ChatID: -100}
}

func TestNew_RejectsBadCronSpec(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.CronSpec = "every day at five"

	_, err := New(&stubRunner{}, &stubSender{}, cfg)
	assert.Error(t, err)
}

func TestNew_RequiresChatID(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.ChatID = 0

	_, err := New(&stubRunner{}, &stubSender{}, cfg)
	assert.Error(t, err)
}

func TestNew_DefaultsSpecAndSource(t *testing.T) {
	cfg := config.SchedulerConfig{ChatID: -100}

	e, err := New(&stubRunner{}, &stubSender{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSchedulerCronSpec, e.spec)
	assert.Equal(t, config.DefaultSchedulerSource, e.source)
}

func TestJob_DeliversReport(t *testing.T) {
	runner := &stubRunner{report: "all good"}
	sender := &stubSender{}

	e, err := New(runner, sender, testSchedulerConfig())
	require.NoError(t, err)

	e.job()

	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, sender.sends)
	assert.Equal(t, "telegram", sender.source)
	assert.Equal(t, int64(-100), sender.chatID)
	assert.Equal(t, "all good", sender.content)
}

func TestJob_SkipsWhenNoServerSelected(t *testing.T) {
	runner := &stubRunner{err: errors.NoServerSelected("nothing selected")}
	sender := &stubSender{}

	e, err := New(runner, sender, testSchedulerConfig())
	require.NoError(t, err)

	e.job()

	assert.Equal(t, 1, runner.calls)
	assert.Zero(t, sender.sends)
}

func TestJob_SwallowsRunnerFailure(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("ssh exploded")}
	sender := &stubSender{}

	e, err := New(runner, sender, testSchedulerConfig())
	require.NoError(t, err)

	e.job()

	assert.Zero(t, sender.sends)
}
