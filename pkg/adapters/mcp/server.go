// Package mcp exposes the session hub as Model Context Protocol tools, so an
// MCP-capable assistant can drive a conversation flow directly.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
	"github.com/aretw0/voiceflow/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource exposing the flow configuration.
const GraphURI = "voiceflow://graph"

// CallResponse is the structured result of the session tools.
type CallResponse struct {
	Outcome  *domain.Outcome  `json:"outcome,omitempty" jsonschema_description:"What the call did to the session"`
	Briefing *domain.Briefing `json:"briefing,omitempty" jsonschema_description:"Current instructions and legal functions"`
	State    *domain.State    `json:"state,omitempty" jsonschema_description:"Snapshot of the session state"`
	Error    string           `json:"error,omitempty" jsonschema_description:"Why the call was rejected"`
}

// Engine is what the MCP server needs from the session hub.
type Engine interface {
	ports.Sessions
	Flow() *flow.Flow
}

// Server wraps the session hub and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("voiceflow-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a conversation in the initial node. Returns the first briefing."),
		mcp.WithString("session_id", mcp.Description("Session ID (optional, generated when omitted)")),
		mcp.WithOutputSchema[CallResponse](),
	), mcp.NewStructuredToolHandler(s.handleStartSession))

	s.mcpServer.AddTool(mcp.NewTool("call_function",
		mcp.WithDescription("Invoke one of the functions legal in the session's current node."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("function", mcp.Required(), mcp.Description("Function name from the current briefing")),
		mcp.WithString("arguments", mcp.Description("JSON object with the function arguments")),
		mcp.WithOutputSchema[CallResponse](),
	), mcp.NewStructuredToolHandler(s.handleCallFunction))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get a snapshot of a live session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[CallResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Release a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := request.GetArguments()["session_id"].(string)
		if err := s.engine.End(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("end failed: %v", err)), nil
		}
		return mcp.NewToolResultText("session " + id + " ended"), nil
	})
}

func (s *Server) handleStartSession(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (CallResponse, error) {
	id, _ := args["session_id"].(string)
	briefing, err := s.engine.Start(ctx, id)
	if err != nil {
		return CallResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return CallResponse{Briefing: &briefing}, nil
}

func (s *Server) handleCallFunction(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (CallResponse, error) {
	id, _ := args["session_id"].(string)
	function, _ := args["function"].(string)

	var callArgs map[string]any
	switch raw := args["arguments"].(type) {
	case string:
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &callArgs); err != nil {
				return CallResponse{}, fmt.Errorf("arguments must be a JSON object: %w", err)
			}
		}
	case map[string]any:
		callArgs = raw
	}

	outcome, err := s.engine.Call(ctx, id, function, callArgs)
	if err != nil && outcome.Kind == "" {
		return CallResponse{}, fmt.Errorf("call failed: %w", err)
	}
	resp := CallResponse{Outcome: &outcome, Briefing: outcome.Briefing}
	if err != nil {
		s.logger.Info("MCP call rejected", "session_id", id, "function", function, "error", err)
		resp.Error = err.Error()
	}
	return resp, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ mcp.CallToolRequest, args map[string]interface{}) (CallResponse, error) {
	id, _ := args["session_id"].(string)
	state, err := s.engine.Get(ctx, id)
	if err != nil {
		return CallResponse{}, fmt.Errorf("get failed: %w", err)
	}
	briefing := s.engine.Flow().Briefing(state.CurrentNodeID, state.RoleMessages)
	briefing.SessionID = id
	return CallResponse{State: state, Briefing: &briefing}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Conversation flow definition",
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.engine.Flow().Config())
	if err != nil {
		return nil, fmt.Errorf("failed to encode flow: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
