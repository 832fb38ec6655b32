package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/aretw0/voiceflow/internal/logging"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
	"github.com/aretw0/voiceflow/pkg/ports"
	"github.com/aretw0/voiceflow/pkg/schema"
)

// ErrNotStarted is returned when an event reaches a manager before Start.
var ErrNotStarted = errors.New("session not started")

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("session already started")

// Manager drives one conversation session through a flow.
//
// Events are processed one at a time under a mutex; every step is computed on a
// copy of the state and committed at once, so no caller ever observes a node
// pointer without the actions that go with it.
type Manager struct {
	mu     sync.Mutex
	flow   *flow.Flow
	id     string
	driver ports.SessionDriver
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time

	state  *domain.State
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Session and flow identifiers are added to it.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates the manager of one session. A nil driver discards every callback.
func NewManager(f *flow.Flow, sessionID string, driver ports.SessionDriver, opts ...Option) *Manager {
	m := &Manager{
		flow:   f,
		id:     sessionID,
		driver: driver,
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.driver == nil {
		m.driver = nopDriver{}
	}
	m.logger = m.logger.With("session_id", sessionID, "flow", f.Name())
	return m
}

// SessionID returns the identifier of the managed session.
func (m *Manager) SessionID() string { return m.id }

// Start enters the initial node, runs its pre-actions and briefs the driver.
func (m *Manager) Start(ctx context.Context) (domain.Briefing, error) {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != nil {
		return domain.Briefing{}, ErrAlreadyStarted
	}

	initial, ok := m.flow.Node(m.flow.InitialNode())
	if !ok {
		// Compile guarantees the initial node exists.
		return domain.Briefing{}, fmt.Errorf("initial node %q not found", m.flow.InitialNode())
	}

	next := domain.NewState(m.id, initial.ID)
	next.StartedAt = m.now()
	next.UpdatedAt = next.StartedAt
	next.RoleMessages = initial.RoleMessages

	m.emitSessionStart(ctx, next)
	m.enter(ctx, initial, next)
	m.state = next

	m.logger.Info("session started", "node_id", initial.ID)

	if next.Terminated() {
		m.finish(ctx, next)
		b := m.flow.Briefing(initial.ID, next.RoleMessages)
		b.SessionID = m.id
		return b, nil
	}
	return m.brief(ctx, next), nil
}

// Call processes one function call emitted by the model.
//
// Rejections (unknown function, invalid arguments, failing handler) leave the
// session untouched and return a Rejected outcome together with the typed error.
// Calls arriving after termination are ignored: they return a Terminated outcome
// and a nil error.
func (m *Manager) Call(ctx context.Context, name string, args map[string]any) (domain.Outcome, error) {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return domain.Outcome{}, ErrNotStarted
	}

	current := m.state.CurrentNodeID
	if m.closed || m.state.Terminated() {
		m.emitLate(ctx, current, name, args)
		return domain.Outcome{Kind: domain.OutcomeTerminated, NodeID: current, Function: name}, nil
	}

	node, _ := m.flow.Node(current)
	started := m.now()
	m.emitFunctionCall(ctx, current, name, args)

	outcome, err := m.step(ctx, node, name, args)

	m.emitFunctionReturn(ctx, current, name, args, outcome, m.now().Sub(started), err)
	if err != nil {
		m.logger.Warn("function call rejected", "node_id", current, "function", name, "error", err)
	} else {
		m.logger.Debug("function call handled", "node_id", current, "function", name, "outcome", outcome.Kind, "next_node_id", outcome.NodeID)
	}
	return outcome, err
}

func (m *Manager) step(ctx context.Context, node *flow.Node, name string, args map[string]any) (domain.Outcome, error) {
	reject := func(err error) (domain.Outcome, error) {
		return domain.Outcome{
			Kind:     domain.OutcomeRejected,
			NodeID:   node.ID,
			Function: name,
			Reason:   err.Error(),
		}, err
	}

	// 1. Resolve within the current node only.
	fn, ok := node.Function(name)
	if !ok {
		return reject(&domain.UnknownFunctionError{
			NodeID:    node.ID,
			Function:  name,
			Available: node.FunctionNames(),
		})
	}

	// 2. Validate and invoke.
	normalized, err := fn.Args.Validate(args)
	if err != nil {
		return reject(argumentError(node.ID, name, err))
	}

	var result map[string]any
	if fn.Handler != nil {
		result, err = fn.Handler(ctx, normalized)
		if err != nil {
			return reject(&domain.HandlerExecutionError{NodeID: node.ID, Function: name, Err: err})
		}
	}

	next := m.state.Clone()
	next.UpdatedAt = m.now()
	maps.Copy(next.Results, result)
	next.Calls = append(next.Calls, domain.CallRecord{
		NodeID:    node.ID,
		Function:  name,
		Arguments: normalized,
		Result:    result,
	})

	outcome := domain.Outcome{NodeID: node.ID, Function: name, Result: result}

	// 3. No target: stay, unless the node ends the conversation once its work is done.
	if fn.TransitionTo == "" {
		if node.Terminates() {
			m.runActions(ctx, node.ID, "post", node.PostActions(), next)
			m.emitNodeLeave(ctx, node.ID)
		}
		m.state = next
		if next.Terminated() {
			m.finish(ctx, next)
			outcome.Kind = domain.OutcomeTerminated
			return outcome, nil
		}
		outcome.Kind = domain.OutcomeStayed
		return outcome, nil
	}

	// 4. Transition: leave, move, enter, brief.
	target, _ := m.flow.Node(fn.TransitionTo)

	m.runActions(ctx, node.ID, "post", node.PostActions(), next)
	m.emitNodeLeave(ctx, node.ID)

	if next.Terminated() {
		// A post-action ended the session on the way out; there is nothing to enter.
		m.state = next
		m.finish(ctx, next)
		outcome.Kind = domain.OutcomeTerminated
		return outcome, nil
	}

	next.CurrentNodeID = target.ID
	next.History = append(next.History, target.ID)
	if len(target.RoleMessages) > 0 {
		next.RoleMessages = target.RoleMessages
	}
	m.enter(ctx, target, next)
	m.state = next

	outcome.NodeID = target.ID
	if next.Terminated() {
		m.finish(ctx, next)
		outcome.Kind = domain.OutcomeTerminated
		return outcome, nil
	}

	briefing := m.brief(ctx, next)
	outcome.Kind = domain.OutcomeTransitioned
	outcome.Briefing = &briefing
	return outcome, nil
}

// enter runs the pre-actions of node against next. A sink node also runs its
// post-actions right away, since no function can ever be called there.
func (m *Manager) enter(ctx context.Context, node *flow.Node, next *domain.State) {
	m.emitNodeEnter(ctx, node.ID)
	m.runActions(ctx, node.ID, "pre", node.PreActions(), next)
	if node.IsSink() {
		m.runActions(ctx, node.ID, "post", node.PostActions(), next)
		m.emitNodeLeave(ctx, node.ID)
	}
}

func (m *Manager) brief(ctx context.Context, s *domain.State) domain.Briefing {
	b := m.flow.Briefing(s.CurrentNodeID, s.RoleMessages)
	b.SessionID = m.id
	if err := m.driver.UpdateBriefing(ctx, m.id, b); err != nil {
		m.logger.Warn("failed to update briefing", "node_id", s.CurrentNodeID, "error", err)
	}
	return b
}

func (m *Manager) finish(ctx context.Context, s *domain.State) {
	m.logger.Info("session terminated", "node_id", s.CurrentNodeID)
	m.emitSessionEnd(ctx, s)
}

// End refuses every later event and returns the final state.
// An in-flight call completes before End returns.
func (m *Manager) End(ctx context.Context) *domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return m.state.Clone()
	}
	m.closed = true
	if m.state != nil && !m.state.Terminated() {
		m.emitSessionEnd(context.WithoutCancel(ctx), m.state)
	}
	m.logger.Debug("session released")
	return m.state.Clone()
}

// State returns a snapshot of the session state, or nil before Start.
func (m *Manager) State() *domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Terminated reports whether the session reached a sink.
func (m *Manager) Terminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != nil && m.state.Terminated()
}

func argumentError(nodeID, function string, err error) *domain.ArgumentValidationError {
	out := &domain.ArgumentValidationError{NodeID: nodeID, Function: function}
	for _, e := range schema.ValidationErrors(err) {
		var ve *schema.ValidationError
		if errors.As(e, &ve) {
			out.Details = append(out.Details, domain.FieldError{Field: ve.Key, Reason: ve.Reason})
			continue
		}
		out.Details = append(out.Details, domain.FieldError{Reason: e.Error()})
	}
	if len(out.Details) == 0 {
		out.Details = []domain.FieldError{{Reason: err.Error()}}
	}
	return out
}
