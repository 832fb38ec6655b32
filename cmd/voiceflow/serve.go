package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/voiceflow/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long: `Serves the flow over HTTP: REST endpoints for sessions and function calls,
Server-Sent Events and a WebSocket stream per session, the Mermaid graph and
Prometheus metrics. With --redis-addr, finished sessions are recorded in Redis
and calls are serialized across replicas.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("token") {
			cfg.Server.Token, _ = cmd.Flags().GetString("token")
		}
		if cmd.Flags().Changed("redis-addr") {
			cfg.Redis.Addr, _ = cmd.Flags().GetString("redis-addr")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.RunServe(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "Interface to bind (default from HOST or 0.0.0.0)")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default from FAST_API_PORT or 7860)")
	serveCmd.Flags().String("token", "", "Bearer token required by the API")
	serveCmd.Flags().String("redis-addr", "", "Redis address for session records and locks")
}
