package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aivistech/infrabot/internal/config"
	"github.com/aivistech/infrabot/internal/errors"

	"github.com/robfig/cron/v3"
)

// ReportRunner produces the formatted daily report for a chat.
type ReportRunner interface {
	RunScheduledReport(ctx context.Context, chatID int64) (string, error)
}

// Sender delivers the report to the chat platform.
type Sender interface {
	Send(ctx context.Context, source string, chatID int64, content string) error
}

// Engine runs the daily report on a cron spec and posts it to the
// configured chat. A chat without a selected server is skipped with a log,
// not an error loop.
type Engine struct {
	cron   *cron.Cron
	runner ReportRunner
	sender Sender
	spec   string
	source string
	chatID int64
}

func New(runner ReportRunner, sender Sender, cfg config.SchedulerConfig) (*Engine, error) {
	spec := cfg.CronSpec
	if spec == "" {
		spec = config.DefaultSchedulerCronSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("scheduler requires a target chat_id")
	}

	source := cfg.Source
	if source == "" {
		source = config.DefaultSchedulerSource
	}

	return &Engine{
		cron:   cron.New(),
		runner: runner,
		sender: sender,
		spec:   spec,
		source: source,
		chatID: cfg.ChatID,
	}, nil
}

func (e *Engine) Start() error {
	if _, err := e.cron.AddFunc(e.spec, e.job); err != nil {
		return fmt.Errorf("schedule report job: %w", err)
	}
	e.cron.Start()
	slog.Info("Report scheduler started", "spec", e.spec, "chat", e.chatID)
	return nil
}

func (e *Engine) Stop() {
	ctx := e.cron.Stop()
	<-ctx.Done()
	slog.Info("Report scheduler stopped")
}

func (e *Engine) job() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := e.runner.RunScheduledReport(ctx, e.chatID)
	if err != nil {
		if errors.IsCategory(err, errors.ErrNoServerSelected) {
			slog.Info("Scheduled report skipped, no server selected", "chat", e.chatID)
			return
		}
		slog.Error("Scheduled report failed", "chat", e.chatID, "category", errors.Category(err), "error", err)
		return
	}

	if err := e.sender.Send(ctx, e.source, e.chatID, report); err != nil {
		slog.Error("Failed to deliver scheduled report", "chat", e.chatID, "error", err)
	}
}
