package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Admin     AdminConfig     `koanf:"admin"`
	State     StateConfig     `koanf:"state"`
	Adapters  AdaptersConfig  `koanf:"adapters"`
	Assistant AssistantConfig `koanf:"assistant"`
	SSH       SSHConfig       `koanf:"ssh"`
	Dispatch  DispatchConfig  `koanf:"dispatch"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
}

type ServerConfig struct {
	LogLevel string `koanf:"log_level"`
}

type AdminConfig struct {
	UserID int64 `koanf:"user_id"`
}

type StateConfig struct {
	Dir          string `koanf:"dir"`
	LockTimeout  string `koanf:"lock_timeout"`
	LockRetry    string `koanf:"lock_retry"`
	LockMaxRetry int    `koanf:"lock_max_retry"`
}

type AdaptersConfig struct {
	Telegram TelegramConfig `koanf:"telegram"`
}

type TelegramConfig struct {
	Enabled        bool   `koanf:"enabled"`
	BotToken       string `koanf:"bot_token"`
	UpdateTimeout  int    `koanf:"update_timeout"`
	KeywordPattern string `koanf:"keyword_pattern"`
}

type AssistantConfig struct {
	APIKey            string `koanf:"api_key"`
	AssistantID       string `koanf:"assistant_id"`
	BaseURL           string `koanf:"base_url"`
	PollInterval      string `koanf:"poll_interval"`
	PollTimeout       string `koanf:"poll_timeout"`
	TerminationMarker string `koanf:"termination_marker"`
}

type SSHConfig struct {
	KeyPath        string `koanf:"key_path"`
	KnownHostsPath string `koanf:"known_hosts_path"`
	ConnectTimeout string `koanf:"connect_timeout"`
	CommandTimeout string `koanf:"command_timeout"`
}

type DispatchConfig struct {
	QueueSize       int    `koanf:"queue_size"`
	Workers         int    `koanf:"workers"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type SchedulerConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CronSpec string `koanf:"cron_spec"`
	Source   string `koanf:"source"`
	ChatID   int64  `koanf:"chat_id"`
}

const (
	DefaultServerLogLevel          = "info"
	DefaultStateLockTimeout        = "5s"
	DefaultStateLockRetry          = "100ms"
	DefaultStateLockMaxRetry       = 50
	DefaultTelegramUpdateTimeout   = 60
	DefaultAssistantPollInterval   = "2s"
	DefaultAssistantPollTimeout    = "30s"
	DefaultTerminationMarker       = "#fimdepapo"
	DefaultSSHConnectTimeout       = "10s"
	DefaultSSHCommandTimeout       = "30s"
	DefaultDispatchQueueSize       = 100
	DefaultDispatchWorkers         = 4
	DefaultDispatchShutdownTimeout = "30s"
	DefaultSchedulerCronSpec       = "7 5 * * *"
	DefaultSchedulerSource         = "telegram"
)

// Load builds the configuration from hardcoded defaults, an optional yaml
// file, INFRABOT_ environment variables and CLI flags, in that precedence
// order.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":                 DefaultServerLogLevel,
		"state.dir":                        filepath.Join(os.Getenv("HOME"), ".infrabot"),
		"state.lock_timeout":               DefaultStateLockTimeout,
		"state.lock_retry":                 DefaultStateLockRetry,
		"state.lock_max_retry":             DefaultStateLockMaxRetry,
		"adapters.telegram.update_timeout": DefaultTelegramUpdateTimeout,
		"assistant.poll_interval":          DefaultAssistantPollInterval,
		"assistant.poll_timeout":           DefaultAssistantPollTimeout,
		"assistant.termination_marker":     DefaultTerminationMarker,
		"ssh.key_path":                     filepath.Join(os.Getenv("HOME"), ".infrabot", "id_ed25519"),
		"ssh.connect_timeout":              DefaultSSHConnectTimeout,
		"ssh.command_timeout":              DefaultSSHCommandTimeout,
		"dispatch.queue_size":              DefaultDispatchQueueSize,
		"dispatch.workers":                 DefaultDispatchWorkers,
		"dispatch.shutdown_timeout":        DefaultDispatchShutdownTimeout,
		"scheduler.cron_spec":              DefaultSchedulerCronSpec,
		"scheduler.source":                 DefaultSchedulerSource,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".infrabot", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	k.Load(env.Provider("INFRABOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "INFRABOT_")), "_", ".", -1)
	}), nil)

	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Inject standard env vars if the file left them blank.
	if cfg.Assistant.APIKey == "" {
		cfg.Assistant.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Assistant.AssistantID == "" {
		cfg.Assistant.AssistantID = os.Getenv("ASSISTANT_ID")
	}
	if cfg.Adapters.Telegram.BotToken == "" {
		cfg.Adapters.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}

	return &cfg, nil
}
