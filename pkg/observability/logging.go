package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/voiceflow/pkg/domain"
)

// LogHooks returns lifecycle hooks that write an audit trail to logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_start", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_end", "session_id", e.SessionID, "node_id", e.NodeID, "status", e.Status)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnFunctionReturn: func(ctx context.Context, e *domain.FunctionEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"function", e.Function,
				"outcome", e.Outcome,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "function_return", append(attrs, "error", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "function_return", attrs...)
		},
		OnAction: func(ctx context.Context, e *domain.ActionEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "action_failed", "session_id", e.SessionID, "node_id", e.NodeID, "kind", e.Kind, "phase", e.Phase, "error", e.Err)
			}
		},
	}
}
