package flow

import (
	"context"
	"fmt"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// ActionContext is the slice of a session an action may touch.
type ActionContext interface {
	SessionID() string
	// Speak hands text to the speech synthesizer.
	Speak(ctx context.Context, text string) error
	// Terminate marks the session as finished and tells the driver to tear down.
	Terminate(ctx context.Context) error
}

// Executor runs one configured action.
type Executor interface {
	Kind() domain.ActionKind
	Execute(ctx context.Context, ac ActionContext) error
}

// NewExecutor binds a declared action to its implementation.
// Unknown kinds are rejected here, at load time.
func NewExecutor(a domain.Action) (Executor, error) {
	switch a.Type {
	case domain.ActionSpeak:
		if a.Text == "" {
			return nil, fmt.Errorf("%s requires text", a.Type)
		}
		return speakPhrase{text: a.Text}, nil
	case domain.ActionEndConversation:
		return endConversation{}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}

type speakPhrase struct {
	text string
}

func (speakPhrase) Kind() domain.ActionKind { return domain.ActionSpeak }

func (s speakPhrase) Execute(ctx context.Context, ac ActionContext) error {
	return ac.Speak(ctx, s.text)
}

type endConversation struct{}

func (endConversation) Kind() domain.ActionKind { return domain.ActionEndConversation }

func (endConversation) Execute(ctx context.Context, ac ActionContext) error {
	return ac.Terminate(ctx)
}
