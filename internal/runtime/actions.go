package runtime

import (
	"context"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
)

// actionContext binds actions to the state being built by the current step.
type actionContext struct {
	m     *Manager
	state *domain.State
}

func (a *actionContext) SessionID() string { return a.m.id }

func (a *actionContext) Speak(ctx context.Context, text string) error {
	return a.m.driver.Speak(ctx, a.m.id, text)
}

func (a *actionContext) Terminate(ctx context.Context) error {
	a.state.Status = domain.StatusTerminated
	return a.m.driver.Terminate(ctx, a.m.id)
}

// runActions executes actions in order. A failing action is logged and reported
// to hooks; the remaining actions still run.
func (m *Manager) runActions(ctx context.Context, nodeID, phase string, actions []flow.Executor, next *domain.State) {
	ac := &actionContext{m: m, state: next}
	for _, ex := range actions {
		err := ex.Execute(ctx, ac)
		if err != nil {
			err = &domain.ActionError{NodeID: nodeID, Kind: ex.Kind(), Err: err}
			m.logger.Warn("action failed", "node_id", nodeID, "phase", phase, "kind", ex.Kind(), "error", err)
		}
		m.emitAction(ctx, nodeID, phase, ex.Kind(), err)
	}
}

type nopDriver struct{}

func (nopDriver) UpdateBriefing(context.Context, string, domain.Briefing) error { return nil }
func (nopDriver) Speak(context.Context, string, string) error                 { return nil }
func (nopDriver) Terminate(context.Context, string) error                     { return nil }
