package voiceflow

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/voiceflow/internal/logging"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
	"github.com/aretw0/voiceflow/pkg/observability"
	"github.com/aretw0/voiceflow/pkg/ports"
	"github.com/aretw0/voiceflow/pkg/registry"
	"github.com/aretw0/voiceflow/pkg/session"
)

// ErrNoFlow is returned by New when neither a flow file nor a configuration was given.
var ErrNoFlow = errors.New("no flow configured")

// Engine is the high-level entry point for the voiceflow library.
// It compiles a flow and serves its sessions through an embedded session.Hub.
type Engine struct {
	*session.Hub

	Name string

	path     string
	config   *domain.FlowConfig
	registry *registry.Registry
	logger   *slog.Logger
	hooks    []domain.LifecycleHooks
	hubOpts  []session.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithFlowFile loads the flow from a YAML or JSON document.
func WithFlowFile(path string) Option {
	return func(e *Engine) {
		e.path = path
	}
}

// WithFlowConfig uses an already parsed flow, e.g. one built with the dsl package.
func WithFlowConfig(cfg *domain.FlowConfig) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithRegistry sets the handlers the flow's functions resolve against.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithMetrics records Prometheus metrics for every session.
func WithMetrics(m *observability.Metrics) Option {
	return WithLifecycleHooks(m.Hooks())
}

// WithDriver sets the session driver.
func WithDriver(d ports.SessionDriver) Option {
	return func(e *Engine) {
		e.hubOpts = append(e.hubOpts, session.WithDriver(d))
	}
}

// WithRecorder persists a record of every finished session.
func WithRecorder(r ports.Recorder) Option {
	return func(e *Engine) {
		e.hubOpts = append(e.hubOpts, session.WithRecorder(r))
	}
}

// WithLocker serializes calls across processes sharing the same sessions.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.hubOpts = append(e.hubOpts, session.WithLocker(l))
		if ttl > 0 {
			e.hubOpts = append(e.hubOpts, session.WithLockTTL(ttl))
		}
	}
}

// WithRecoverableHandlerErrors keeps a session alive when a handler fails.
func WithRecoverableHandlerErrors() Option {
	return func(e *Engine) {
		e.hubOpts = append(e.hubOpts, session.WithHandlerErrorPolicy(session.HandlerErrorsRecoverable))
	}
}

// New compiles the configured flow and prepares the session hub.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	cfg := eng.config
	if cfg == nil {
		if eng.path == "" {
			return nil, ErrNoFlow
		}
		loaded, err := flow.Load(eng.path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	eng.Name = cfg.Name
	if eng.Name == "" && eng.path != "" {
		base := filepath.Base(eng.path)
		eng.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("flow", eng.Name)
	}

	f, err := flow.Compile(cfg, eng.registry, flow.WithName(eng.Name), flow.WithLogger(eng.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to compile flow: %w", err)
	}

	hubOpts := append([]session.Option{
		session.WithLogger(eng.logger),
		session.WithLifecycleHooks(domain.MergeHooks(eng.hooks...)),
	}, eng.hubOpts...)
	eng.Hub = session.NewHub(f, hubOpts...)
	return eng, nil
}
