package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/aretw0/voiceflow/internal/travel"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	f, err := travel.Compile()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(session.NewHub(f, session.WithLogger(logger)), "test", logger)
}

func TestServer_SessionTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	started, err := s.handleStartSession(ctx, req, map[string]interface{}{"session_id": "mcp-1"})
	require.NoError(t, err)
	require.NotNil(t, started.Briefing)
	assert.Equal(t, "start", started.Briefing.NodeID)

	resp, err := s.handleCallFunction(ctx, req, map[string]interface{}{
		"session_id": "mcp-1",
		"function":   "choose_beach",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTransitioned, resp.Outcome.Kind)
	assert.Equal(t, "choose_beach", resp.Briefing.NodeID)

	resp, err = s.handleCallFunction(ctx, req, map[string]interface{}{
		"session_id": "mcp-1",
		"function":   "select_destination",
		"arguments":  `{"destination":"Narnia"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRejected, resp.Outcome.Kind)
	assert.Contains(t, resp.Error, "destination")

	resp, err = s.handleCallFunction(ctx, req, map[string]interface{}{
		"session_id": "mcp-1",
		"function":   "select_destination",
		"arguments":  `{"destination":"Maui"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "get_dates", resp.Outcome.NodeID)

	got, err := s.handleGetSession(ctx, req, map[string]interface{}{"session_id": "mcp-1"})
	require.NoError(t, err)
	assert.Equal(t, "get_dates", got.State.CurrentNodeID)
	assert.Equal(t, "Maui", got.State.Results["destination"])
	assert.Equal(t, []string{"record_dates"}, functionNames(got.Briefing))
	assert.NotEmpty(t, got.Briefing.Messages[0].Content, "role messages are inherited")
}

func TestServer_CallErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleCallFunction(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "ghost", "function": "choose_beach",
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.handleStartSession(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "x"})
	require.NoError(t, err)
	_, err = s.handleCallFunction(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": "x", "function": "choose_beach", "arguments": "{not json",
	})
	assert.Error(t, err)
}

func TestServer_GraphResource(t *testing.T) {
	s := newTestServer(t)

	contents, err := s.readGraph(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, GraphURI, text.URI)

	var cfg domain.FlowConfig
	require.NoError(t, json.Unmarshal([]byte(text.Text), &cfg))
	assert.Equal(t, "start", cfg.InitialNode)
	assert.Contains(t, cfg.Nodes, "verify_itinerary")
}

func functionNames(b *domain.Briefing) []string {
	names := make([]string, 0, len(b.Functions))
	for _, fn := range b.Functions {
		names = append(names, fn.Name)
	}
	return names
}
