package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/voiceflow/internal/cli"
	"github.com/aretw0/voiceflow/internal/config"
	"github.com/aretw0/voiceflow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the flow in the terminal",
	Long: `Runs the flow with a real language model, using the terminal in place of
the speech pipeline. Spoken phrases and model replies are printed; your lines
are sent as the caller's utterances.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("provider") {
			cfg.Model.Provider, _ = cmd.Flags().GetString("provider")
		}
		if cmd.Flags().Changed("model") {
			cfg.Model.Name, _ = cmd.Flags().GetString("model")
		}
		if key, _ := cmd.Flags().GetString("token"); key != "" {
			if cfg.Model.Provider == config.ProviderOpenAI {
				cfg.Model.OpenAIAPIKey = key
			} else {
				cfg.Model.AnthropicAPIKey = key
			}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		model, err := cli.NewModel(cfg)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("url")

		console := tui.NewConsole()
		tui.PrintBanner(cmd.OutOrStdout())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.RunChat(ctx, cfg, logger, model, console, sessionID)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("url", "u", "", "Session (room) identifier; generated when empty")
	chatCmd.Flags().StringP("token", "t", "", "API key of the model provider")
	chatCmd.Flags().String("provider", "", "Model provider: anthropic or openai")
	chatCmd.Flags().String("model", "", "Model name")
}
