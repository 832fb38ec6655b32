package ports

import (
	"context"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// Sessions is the inbound surface of the engine used by every driver adapter.
type Sessions interface {
	// Start creates a session in the initial node and returns its first briefing.
	// An empty sessionID asks the engine to generate one; it is returned in the briefing.
	Start(ctx context.Context, sessionID string) (domain.Briefing, error)

	// Call dispatches a function call emitted by the model.
	// Recoverable failures return a Rejected outcome together with the typed error.
	Call(ctx context.Context, sessionID, function string, args map[string]any) (domain.Outcome, error)

	// End releases the session. In-flight calls complete first.
	End(ctx context.Context, sessionID string) error

	// Get returns a snapshot of the session state.
	Get(ctx context.Context, sessionID string) (*domain.State, error)

	// List returns the IDs of the live sessions.
	List(ctx context.Context) ([]string, error)
}
