package main

import (
	"fmt"
	"os"

	"github.com/aivistech/infrabot/internal/config"
	"github.com/aivistech/infrabot/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "infrabot",
	Short: "Infrabot operations assistant",
	Long:  `Infrabot is a chat-driven operations assistant that manages per-chat server inventories and runs health-check commands over SSH.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.infrabot/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64("admin.user_id", 0, "user id with admin privileges")
	rootCmd.PersistentFlags().String("state.dir", "", "state directory (default is $HOME/.infrabot)")
}
