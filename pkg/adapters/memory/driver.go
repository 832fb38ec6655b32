package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// DriverEvent is one callback received by a Driver.
type DriverEvent struct {
	SessionID string
	Type      string // "briefing", "speak" or "terminate"
	Briefing  *domain.Briefing
	Text      string
}

// Driver is a ports.SessionDriver that records every callback.
type Driver struct {
	mu     sync.Mutex
	events []DriverEvent
}

// NewDriver creates an empty recording driver.
func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) record(e DriverEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

// UpdateBriefing records the briefing.
func (d *Driver) UpdateBriefing(_ context.Context, sessionID string, b domain.Briefing) error {
	d.record(DriverEvent{SessionID: sessionID, Type: "briefing", Briefing: &b})
	return nil
}

// Speak records the phrase.
func (d *Driver) Speak(_ context.Context, sessionID string, text string) error {
	d.record(DriverEvent{SessionID: sessionID, Type: "speak", Text: text})
	return nil
}

// Terminate records the teardown request.
func (d *Driver) Terminate(_ context.Context, sessionID string) error {
	d.record(DriverEvent{SessionID: sessionID, Type: "terminate"})
	return nil
}

// Events returns the callbacks received for a session, or all of them when sessionID is empty.
func (d *Driver) Events(sessionID string) []DriverEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sessionID == "" {
		return slices.Clone(d.events)
	}
	var out []DriverEvent
	for _, e := range d.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// Spoken returns the phrases spoken in a session.
func (d *Driver) Spoken(sessionID string) []string {
	var out []string
	for _, e := range d.Events(sessionID) {
		if e.Type == "speak" {
			out = append(out, e.Text)
		}
	}
	return out
}

// Terminated reports whether the session was told to tear down.
func (d *Driver) Terminated(sessionID string) bool {
	for _, e := range d.Events(sessionID) {
		if e.Type == "terminate" {
			return true
		}
	}
	return false
}
