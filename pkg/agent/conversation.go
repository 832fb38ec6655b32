package agent

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/ports"
)

// Conversation is the transcript of one session.
type Conversation struct {
	id       string
	agent    *Agent
	sessions ports.Sessions

	// turnMu serializes Send; mu guards the fields below and is released
	// while the model or the hub is working.
	turnMu   sync.Mutex
	mu       sync.Mutex
	briefing domain.Briefing
	turns    []ports.Turn
	done     bool
}

// SessionID returns the session the conversation belongs to.
func (c *Conversation) SessionID() string {
	return c.id
}

// Briefing returns the current briefing.
func (c *Conversation) Briefing() domain.Briefing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.briefing
}

// Transcript returns a copy of the turns so far.
func (c *Conversation) Transcript() []ports.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.turns)
}

// Done reports whether the session has terminated.
func (c *Conversation) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Conversation) setBriefing(b domain.Briefing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.briefing = b
}

func (c *Conversation) append(t ports.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
}

func (c *Conversation) request() ports.ModelRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ports.ModelRequest{
		Instructions: slices.Clone(c.briefing.Messages),
		Turns:        slices.Clone(c.turns),
		Tools:        slices.Clone(c.briefing.Functions),
	}
}

// Greet lets the model open the conversation, as a voice bot does when the
// caller joins. It is Send without user input.
func (c *Conversation) Greet(ctx context.Context) (string, error) {
	return c.run(ctx, "")
}

// Send delivers a user utterance and runs the model until it answers.
// It returns everything the assistant said.
func (c *Conversation) Send(ctx context.Context, text string) (string, error) {
	return c.run(ctx, text)
}

func (c *Conversation) run(ctx context.Context, text string) (string, error) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	if c.Done() {
		return "", ErrConversationOver
	}
	if text != "" {
		c.append(ports.Turn{Role: domain.RoleUser, Text: text})
	} else if len(c.Transcript()) == 0 {
		// Models expect the transcript to open with a user turn.
		c.append(ports.Turn{Role: domain.RoleUser, Text: "(the caller has joined)"})
	}

	var said []string
	for step := 0; step < c.agent.maxSteps; step++ {
		resp, err := c.agent.model.Generate(ctx, c.request())
		if err != nil {
			return strings.Join(said, " "), err
		}
		c.append(ports.Turn{Role: domain.RoleAssistant, Text: resp.Text, ToolCalls: resp.ToolCalls})

		if resp.Text != "" {
			said = append(said, resp.Text)
			if err := c.agent.speaker.Say(ctx, resp.Text); err != nil {
				c.agent.logger.Warn("speaker failed", "session_id", c.id, "error", err)
			}
		}
		if len(resp.ToolCalls) == 0 {
			return strings.Join(said, " "), nil
		}

		results := make([]ports.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			results = append(results, c.dispatch(ctx, call))
		}
		c.append(ports.Turn{Role: ports.RoleTool, ToolResults: results})

		if c.Done() {
			return strings.Join(said, " "), nil
		}
	}
	return strings.Join(said, " "), ErrTooManySteps
}

// dispatch sends one tool call to the hub and converts the outcome into a
// tool result the model can read.
func (c *Conversation) dispatch(ctx context.Context, call ports.ToolCall) ports.ToolResult {
	res := ports.ToolResult{CallID: call.ID, Name: call.Name}

	outcome, err := c.sessions.Call(ctx, c.id, call.Name, call.Arguments)
	if err != nil {
		c.agent.logger.Info("function call rejected", "session_id", c.id, "function", call.Name, "error", err)
		res.IsError = true
		res.Content = err.Error()
		return res
	}

	body := map[string]any{"status": outcome.Kind, "node": outcome.NodeID}
	if len(outcome.Result) > 0 {
		body["result"] = outcome.Result
	}
	data, err := json.Marshal(body)
	if err != nil {
		res.Content = string(outcome.Kind)
		return res
	}
	res.Content = string(data)
	return res
}
