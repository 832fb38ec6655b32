package runtime

import (
	"context"
	"time"

	"github.com/aretw0/voiceflow/pkg/domain"
)

func (m *Manager) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: m.now(), Type: t, SessionID: m.id}
}

func (m *Manager) emitSessionStart(ctx context.Context, s *domain.State) {
	if m.hooks.OnSessionStart != nil {
		m.hooks.OnSessionStart(ctx, &domain.SessionEvent{EventBase: m.base(domain.EventSessionStart), NodeID: s.CurrentNodeID, Status: s.Status})
	}
}

func (m *Manager) emitSessionEnd(ctx context.Context, s *domain.State) {
	if m.hooks.OnSessionEnd != nil {
		m.hooks.OnSessionEnd(ctx, &domain.SessionEvent{EventBase: m.base(domain.EventSessionEnd), NodeID: s.CurrentNodeID, Status: s.Status})
	}
}

func (m *Manager) emitNodeEnter(ctx context.Context, nodeID string) {
	if m.hooks.OnNodeEnter != nil {
		m.hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: m.base(domain.EventNodeEnter), NodeID: nodeID})
	}
}

func (m *Manager) emitNodeLeave(ctx context.Context, nodeID string) {
	if m.hooks.OnNodeLeave != nil {
		m.hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: m.base(domain.EventNodeLeave), NodeID: nodeID})
	}
}

func (m *Manager) emitFunctionCall(ctx context.Context, nodeID, name string, args map[string]any) {
	if m.hooks.OnFunctionCall != nil {
		m.hooks.OnFunctionCall(ctx, &domain.FunctionEvent{EventBase: m.base(domain.EventFunctionCall), NodeID: nodeID, Function: name, Args: args})
	}
}

func (m *Manager) emitFunctionReturn(ctx context.Context, nodeID, name string, args map[string]any, o domain.Outcome, d time.Duration, err error) {
	if m.hooks.OnFunctionReturn != nil {
		m.hooks.OnFunctionReturn(ctx, &domain.FunctionEvent{
			EventBase: m.base(domain.EventFunctionReturn),
			NodeID:    nodeID,
			Function:  name,
			Args:      args,
			Outcome:   o.Kind,
			Result:    o.Result,
			Duration:  d,
			Err:       err,
		})
	}
}

func (m *Manager) emitAction(ctx context.Context, nodeID, phase string, kind domain.ActionKind, err error) {
	if m.hooks.OnAction != nil {
		m.hooks.OnAction(ctx, &domain.ActionEvent{EventBase: m.base(domain.EventAction), NodeID: nodeID, Kind: kind, Phase: phase, Err: err})
	}
}

func (m *Manager) emitLate(ctx context.Context, nodeID, name string, args map[string]any) {
	err := &domain.LateEventError{SessionID: m.id, Function: name}
	m.logger.Info("ignoring late event", "node_id", nodeID, "function", name, "error", err)
	if m.hooks.OnLateEvent != nil {
		m.hooks.OnLateEvent(ctx, &domain.FunctionEvent{
			EventBase: m.base(domain.EventLate),
			NodeID:    nodeID,
			Function:  name,
			Args:      args,
			Outcome:   domain.OutcomeTerminated,
			Err:       err,
		})
	}
}
