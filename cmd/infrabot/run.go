package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aivistech/infrabot/internal/adapter"
	"github.com/aivistech/infrabot/internal/assistant"
	"github.com/aivistech/infrabot/internal/auth"
	"github.com/aivistech/infrabot/internal/bot"
	"github.com/aivistech/infrabot/internal/concurrency"
	"github.com/aivistech/infrabot/internal/config"
	"github.com/aivistech/infrabot/internal/convo"
	"github.com/aivistech/infrabot/internal/registry"
	"github.com/aivistech/infrabot/internal/scheduler"
	"github.com/aivistech/infrabot/internal/sshexec"
	"github.com/aivistech/infrabot/internal/store"
	"github.com/aivistech/infrabot/internal/worker"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot daemon",
	Long:  `Starts the bot as a long-running service: acquires the state lock, connects the chat adapters and serves events until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		return runDaemon(cfg)
	},
}

func runDaemon(cfg *config.Config) error {
	if cfg.Admin.UserID == 0 {
		return fmt.Errorf("admin.user_id is required, set it in the config file or INFRABOT_ADMIN_USER_ID")
	}
	if !cfg.Adapters.Telegram.Enabled {
		return fmt.Errorf("no adapter enabled, set adapters.telegram.enabled")
	}
	if cfg.Adapters.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required, set adapters.telegram.bot_token or TELEGRAM_BOT_TOKEN")
	}

	lockTimeout, err := config.DurationOrDefault(cfg.State.LockTimeout, config.DefaultStateLockTimeout)
	if err != nil {
		return err
	}
	lockRetry, err := config.DurationOrDefault(cfg.State.LockRetry, config.DefaultStateLockRetry)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.State.Dir, 0700); err != nil {
		return fmt.Errorf("create state dir %s: %w", cfg.State.Dir, err)
	}

	stateLock, err := store.AcquireStateLock(cfg.State.Dir, store.StateLockConfig{
		Timeout:  lockTimeout,
		Retry:    lockRetry,
		MaxRetry: cfg.State.LockMaxRetry,
	})
	if err != nil {
		return fmt.Errorf("another instance may be running: %w", err)
	}
	defer stateLock.Unlock()

	configStore, err := store.OpenConfigStore(cfg.State.Dir)
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	sessionStore, err := store.OpenSessionStore(cfg.State.Dir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	guard := auth.NewGuard(configStore, cfg.Admin.UserID)
	reg := registry.New(configStore)

	connectTimeout, err := config.DurationOrDefault(cfg.SSH.ConnectTimeout, config.DefaultSSHConnectTimeout)
	if err != nil {
		return err
	}
	commandTimeout, err := config.DurationOrDefault(cfg.SSH.CommandTimeout, config.DefaultSSHCommandTimeout)
	if err != nil {
		return err
	}
	dialer, err := sshexec.NewSSHDialer(cfg.SSH.KeyPath, cfg.SSH.KnownHostsPath, connectTimeout)
	if err != nil {
		return fmt.Errorf("load ssh key: %w", err)
	}
	executor := sshexec.New(dialer, commandTimeout)

	pollInterval, err := config.DurationOrDefault(cfg.Assistant.PollInterval, config.DefaultAssistantPollInterval)
	if err != nil {
		return err
	}
	pollTimeout, err := config.DurationOrDefault(cfg.Assistant.PollTimeout, config.DefaultAssistantPollTimeout)
	if err != nil {
		return err
	}
	assistantClient := assistant.NewOpenAIClient(assistant.OpenAIConfig{
		APIKey:       cfg.Assistant.APIKey,
		AssistantID:  cfg.Assistant.AssistantID,
		BaseURL:      cfg.Assistant.BaseURL,
		PollInterval: pollInterval,
		PollTimeout:  pollTimeout,
	})

	conv := convo.NewController(sessionStore, assistantClient, cfg.Assistant.TerminationMarker)
	locks := concurrency.NewChatLockManager()
	dispatcher := bot.NewDispatcher(guard, reg, executor, conv, locks)

	shutdownTimeout, err := config.DurationOrDefault(cfg.Dispatch.ShutdownTimeout, config.DefaultDispatchShutdownTimeout)
	if err != nil {
		return err
	}

	mux := adapter.NewMux()
	pool := worker.NewPool(dispatcher, mux, worker.RuntimeConfig{
		QueueSize:       cfg.Dispatch.QueueSize,
		Workers:         cfg.Dispatch.Workers,
		ShutdownTimeout: shutdownTimeout,
	})

	handler := func(ctx context.Context, evt *bot.Event) error {
		return pool.Submit(ctx, evt)
	}

	telegram, err := adapter.NewTelegramAdapter(
		cfg.Adapters.Telegram.BotToken,
		cfg.Adapters.Telegram.UpdateTimeout,
		cfg.Adapters.Telegram.KeywordPattern,
		handler,
	)
	if err != nil {
		return fmt.Errorf("configure telegram adapter: %w", err)
	}
	mux.Register(telegram)

	sig := NewSignalHandler(context.Background())
	sig.Start()
	ctx := sig.Context()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start dispatch pool: %w", err)
	}
	if err := telegram.Start(ctx); err != nil {
		return fmt.Errorf("start telegram adapter: %w", err)
	}

	var reportEngine *scheduler.Engine
	if cfg.Scheduler.Enabled {
		reportEngine, err = scheduler.New(dispatcher, mux, cfg.Scheduler)
		if err != nil {
			return fmt.Errorf("configure scheduler: %w", err)
		}
		if err := reportEngine.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	slog.Info("Infrabot started", "state_dir", cfg.State.Dir, "scheduler", cfg.Scheduler.Enabled)

	<-ctx.Done()
	sig.Stop()
	sig.Wait()

	slog.Info("Infrabot shutting down")

	if reportEngine != nil {
		reportEngine.Stop()
	}
	if err := telegram.Stop(context.Background()); err != nil {
		slog.Error("Failed to stop telegram adapter", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout+time.Second)
	defer cancel()
	if err := pool.Stop(stopCtx); err != nil {
		slog.Error("Failed to stop dispatch pool", "error", err)
	}

	slog.Info("Infrabot stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
