package ports

import (
	"context"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// Recorder persists the summary of finished sessions (the booking record).
type Recorder interface {
	// Save writes the record, replacing any previous one with the same session ID.
	Save(ctx context.Context, record *domain.SessionRecord) error

	// Load retrieves a record.
	// Returns domain.ErrSessionNotFound if it does not exist.
	Load(ctx context.Context, sessionID string) (*domain.SessionRecord, error)

	// List returns the recorded session IDs, most recent first.
	List(ctx context.Context) ([]string, error)

	// Delete removes a record.
	Delete(ctx context.Context, sessionID string) error
}
