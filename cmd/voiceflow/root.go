package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/voiceflow/internal/cli"
	"github.com/aretw0/voiceflow/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voiceflow",
	Short: "Voiceflow runs structured voice conversations",
	Long: `Voiceflow drives a voice assistant through a graph of conversation nodes.
Each node briefs the model and exposes the functions it may call; calls move
the conversation forward until the flow ends the call.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("flow", "", "Flow document (YAML or JSON); defaults to the bundled travel flow")
	rootCmd.PersistentFlags().String("handlers", "", "YAML or JSON file declaring command-backed function handlers")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig resolves defaults, the config file, the environment and then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if cmd.Flags().Changed("flow") {
		cfg.Flow, _ = cmd.Flags().GetString("flow")
	}
	if cmd.Flags().Changed("handlers") {
		cfg.Handlers, _ = cmd.Flags().GetString("handlers")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}

	logger, err := cli.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
