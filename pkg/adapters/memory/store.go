// Package memory provides in-process implementations of the voiceflow ports,
// used by tests, the chat command and single-replica deployments.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// Recorder implements ports.Recorder in memory.
// Safe for concurrent use.
type Recorder struct {
	data map[string]*domain.SessionRecord
	mu   sync.RWMutex
}

// NewRecorder creates a new in-memory recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		data: make(map[string]*domain.SessionRecord),
	}
}

// Save stores a copy of the record.
func (r *Recorder) Save(ctx context.Context, record *domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[record.SessionID] = clone(record)
	return nil
}

// Load retrieves a copy of the record so callers can't mutate it by pointer.
func (r *Recorder) Load(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return clone(rec), nil
}

// Delete removes the record.
func (r *Recorder) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, sessionID)
	return nil
}

// List returns recorded sessions, most recent first.
func (r *Recorder) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]*domain.SessionRecord, 0, len(r.data))
	for _, rec := range r.data {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].EndedAt.After(recs[j].EndedAt)
	})

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.SessionID)
	}
	return ids, nil
}

func clone(rec *domain.SessionRecord) *domain.SessionRecord {
	c := *rec
	c.Results = maps.Clone(rec.Results)
	c.History = slices.Clone(rec.History)
	c.Calls = slices.Clone(rec.Calls)
	return &c
}
