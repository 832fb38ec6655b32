package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/voiceflow"
	"github.com/aretw0/voiceflow/internal/config"
	"github.com/aretw0/voiceflow/pkg/adapters/mcp"
	"github.com/aretw0/voiceflow/pkg/adapters/memory"
)

// MCPOptions selects the MCP transport.
type MCPOptions struct {
	Transport string // "stdio" or "sse"
	Addr      string // listen address for sse
	BaseURL   string
}

// RunMCP exposes the flow as MCP tools until ctx is cancelled or stdin closes.
func RunMCP(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts MCPOptions) error {
	rec, err := wrapRecorder(cfg, memory.NewRecorder())
	if err != nil {
		return err
	}
	engine, err := createEngine(cfg, logger, voiceflow.WithRecorder(rec))
	if err != nil {
		return err
	}
	defer engine.Close(context.WithoutCancel(ctx))

	srv := mcp.NewServer(engine, voiceflow.Version, logger)
	switch opts.Transport {
	case "", "stdio":
		logger.Info("starting MCP server", "transport", "stdio")
		return srv.ServeStdio()
	case "sse":
		logger.Info("starting MCP server", "transport", "sse", "addr", opts.Addr)
		if err := srv.ServeSSE(ctx, opts.Addr, opts.BaseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
	return fmt.Errorf("unknown transport %q: supported are stdio, sse", opts.Transport)
}
