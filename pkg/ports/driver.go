package ports

import (
	"context"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// SessionDriver is the real-time pipeline the engine calls back into.
type SessionDriver interface {
	// UpdateBriefing replaces the model instructions and callable functions.
	// It is called whenever the active node changes.
	UpdateBriefing(ctx context.Context, sessionID string, briefing domain.Briefing) error

	// Speak hands a fixed phrase to the speech synthesizer.
	Speak(ctx context.Context, sessionID string, text string) error

	// Terminate tears down the transport and model context of the session.
	Terminate(ctx context.Context, sessionID string) error
}
