package ports

import (
	"context"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// ToolCall is a function call emitted by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult answers a ToolCall.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Turn is one entry of the conversation transcript.
// User turns carry Text, assistant turns carry Text and/or ToolCalls,
// tool turns carry ToolResults.
type Turn struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// RoleTool marks a turn carrying tool results.
const RoleTool = "tool"

// ModelRequest is everything a model needs for its next turn.
type ModelRequest struct {
	Instructions []domain.Message
	Turns        []Turn
	Tools        []domain.FunctionSpec
}

// ModelResponse is the next assistant turn.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is a tool-calling language model.
type Model interface {
	Name() string
	Generate(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}
