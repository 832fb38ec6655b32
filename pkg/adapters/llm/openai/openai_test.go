package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/voiceflow/pkg/adapters/llm/openai"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "Recording your dates.",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "record_dates", "arguments": "{\"check_in\":\"2025-06-01\",\"check_out\":\"2025-06-08\"}"}
      }]
    }
  }]
}`

func newModel(t *testing.T, handler http.HandlerFunc) *openai.Model {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openai.NewModel(func(o *openai.Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL
	})
}

func TestModel_Generate(t *testing.T) {
	var captured map[string]any
	m := newModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion)
	})
	assert.Equal(t, "openai/gpt-4o-mini", m.Name())

	resp, err := m.Generate(context.Background(), ports.ModelRequest{
		Instructions: []domain.Message{
			{Role: domain.RoleSystem, Content: "You are a travel assistant."},
			{Role: domain.RoleUser, Content: "Collect travel dates."},
		},
		Turns: []ports.Turn{
			{Role: domain.RoleUser, Text: "June 1st to 8th"},
			{Role: domain.RoleAssistant, ToolCalls: []ports.ToolCall{{ID: "call_0", Name: "choose_beach", Arguments: map[string]any{}}}},
			{Role: ports.RoleTool, ToolResults: []ports.ToolResult{{CallID: "call_0", Content: "ok"}}},
		},
		Tools: []domain.FunctionSpec{{
			Name:       "record_dates",
			Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Recording your dates.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "2025-06-01", resp.ToolCalls[0].Arguments["check_in"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 5)
	roles := make([]string, len(messages))
	for i, msg := range messages {
		roles[i] = msg.(map[string]any)["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "user", "assistant", "tool"}, roles)

	tools := captured["tools"].([]any)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "record_dates", fn["name"])
}

func TestModel_MalformedArguments(t *testing.T) {
	m := newModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, strings.Replace(completion, `{\"check_in\"`, `{check_in`, 1))
	})
	_, err := m.Generate(context.Background(), ports.ModelRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed arguments")
}

func TestModel_NoChoices(t *testing.T) {
	m := newModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`)
	})
	_, err := m.Generate(context.Background(), ports.ModelRequest{})
	assert.ErrorContains(t, err, "no choices")
}
