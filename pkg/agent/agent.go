package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/ports"
	"github.com/google/uuid"
)

// ErrConversationOver is returned by Send once the session has terminated.
var ErrConversationOver = errors.New("conversation is over")

// ErrTooManySteps is returned when the model keeps calling functions without
// ever answering the user.
var ErrTooManySteps = errors.New("model exceeded the tool step limit")

// Speaker renders assistant speech.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, text string) error

func (f SpeakerFunc) Say(ctx context.Context, text string) error { return f(ctx, text) }

// Agent drives conversations with a language model.
type Agent struct {
	model    ports.Model
	speaker  Speaker
	logger   *slog.Logger
	maxSteps int

	mu       sync.Mutex
	sessions ports.Sessions
	convs    map[string]*Conversation
}

var _ ports.SessionDriver = (*Agent)(nil)

// Option configures the Agent.
type Option func(*Agent)

// WithLogger sets the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithMaxSteps bounds the number of model calls per user message.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// New creates an agent. A nil speaker discards speech.
func New(model ports.Model, speaker Speaker, opts ...Option) *Agent {
	a := &Agent{
		model:    model,
		speaker:  speaker,
		logger:   slog.Default(),
		maxSteps: 8,
		convs:    make(map[string]*Conversation),
	}
	if a.speaker == nil {
		a.speaker = SpeakerFunc(func(context.Context, string) error { return nil })
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bind attaches the session hub the agent sends function calls to.
func (a *Agent) Bind(sessions ports.Sessions) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = sessions
}

// Start opens a session and its conversation. An empty id is generated.
func (a *Agent) Start(ctx context.Context, sessionID string) (*Conversation, error) {
	a.mu.Lock()
	sessions := a.sessions
	a.mu.Unlock()
	if sessions == nil {
		return nil, errors.New("agent is not bound to a session hub")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conv := &Conversation{id: sessionID, agent: a, sessions: sessions}
	a.mu.Lock()
	if _, exists := a.convs[sessionID]; exists {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
	}
	a.convs[sessionID] = conv
	a.mu.Unlock()

	briefing, err := sessions.Start(ctx, sessionID)
	if err != nil {
		a.forget(sessionID)
		return nil, err
	}
	conv.setBriefing(briefing)
	return conv, nil
}

// Conversation returns the conversation of a session.
func (a *Agent) Conversation(sessionID string) (*Conversation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.convs[sessionID]
	return c, ok
}

func (a *Agent) forget(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.convs, sessionID)
}

// UpdateBriefing replaces the instructions and tools of the conversation.
func (a *Agent) UpdateBriefing(_ context.Context, sessionID string, b domain.Briefing) error {
	conv, ok := a.Conversation(sessionID)
	if !ok {
		return nil
	}
	conv.setBriefing(b)
	return nil
}

// Speak says a fixed phrase without involving the model.
func (a *Agent) Speak(ctx context.Context, sessionID string, text string) error {
	if _, ok := a.Conversation(sessionID); !ok {
		return nil
	}
	return a.speaker.Say(ctx, text)
}

// Terminate closes the conversation. The transcript stays readable.
func (a *Agent) Terminate(_ context.Context, sessionID string) error {
	conv, ok := a.Conversation(sessionID)
	if !ok {
		return nil
	}
	conv.mu.Lock()
	conv.done = true
	conv.mu.Unlock()
	a.forget(sessionID)
	return nil
}
