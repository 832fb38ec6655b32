package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/ports"
)

// Event types pushed to stream subscribers.
const (
	EventBriefing   = "briefing"
	EventSpeak      = "speak"
	EventDiff       = "diff"
	EventTerminated = "terminate"
	EventOutcome    = "outcome"
	EventError      = "error"
)

// Event is the envelope of every frame written to SSE and websocket clients.
type Event struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	ID        string            `json:"id,omitempty"`
	Briefing  *domain.Briefing  `json:"briefing,omitempty"`
	Text      string            `json:"text,omitempty"`
	Diff      *domain.StateDiff `json:"diff,omitempty"`
	Outcome   *domain.Outcome   `json:"outcome,omitempty"`
	Error     *APIError         `json:"error,omitempty"`
}

// StreamManager fans session events out to the connected stream clients.
// It implements ports.SessionDriver so the session hub can publish briefings,
// phrases and terminations directly.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

var _ ports.SessionDriver = (*StreamManager)(nil)

// NewStreamManager creates an empty stream manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for a session. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
			close(ch)
		})
	}
}

// Subscribers returns the number of listeners of a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Publish marshals e and broadcasts it to the session's listeners.
func (sm *StreamManager) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		sm.logger.Error("stream: failed to encode event", "type", e.Type, "error", err)
		return
	}
	sm.Broadcast(e.SessionID, data)
}

// Broadcast sends msg to every listener of the session.
// Slow clients lose the frame instead of blocking the engine.
func (sm *StreamManager) Broadcast(sessionID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("stream: client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// UpdateBriefing publishes the new briefing.
func (sm *StreamManager) UpdateBriefing(_ context.Context, sessionID string, b domain.Briefing) error {
	sm.Publish(Event{Type: EventBriefing, SessionID: sessionID, Briefing: &b})
	return nil
}

// Speak publishes a fixed phrase for the client's synthesizer.
func (sm *StreamManager) Speak(_ context.Context, sessionID string, text string) error {
	sm.Publish(Event{Type: EventSpeak, SessionID: sessionID, Text: text})
	return nil
}

// Terminate tells the clients the session is over.
func (sm *StreamManager) Terminate(_ context.Context, sessionID string) error {
	sm.Publish(Event{Type: EventTerminated, SessionID: sessionID})
	return nil
}
