package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/voiceflow/internal/logging"
	"github.com/aretw0/voiceflow/internal/runtime"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
	"github.com/aretw0/voiceflow/pkg/ports"
	"github.com/google/uuid"
)

// HandlerErrorPolicy decides what a failing handler does to its session.
type HandlerErrorPolicy int

const (
	// HandlerErrorsFatal ends the session and tells the driver to tear down.
	HandlerErrorsFatal HandlerErrorPolicy = iota
	// HandlerErrorsRecoverable keeps the session in its node so the model can retry.
	HandlerErrorsRecoverable
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultTombstone = 5 * time.Minute
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Hub orchestrates the sessions of a flow, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Hub struct {
	flow     *flow.Flow
	driver   ports.SessionDriver
	recorder ports.Recorder
	hooks    domain.LifecycleHooks
	policy   HandlerErrorPolicy

	mu       sync.RWMutex
	sessions map[string]*runtime.Manager
	ended    map[string]time.Time // terminated sessions, kept to absorb late events

	lockMu sync.Mutex
	locks  map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Ensure Hub implements ports.Sessions
var _ ports.Sessions = (*Hub)(nil)

// Option configures the Hub.
type Option func(*Hub)

// WithDriver sets the session driver every manager calls back into.
func WithDriver(driver ports.SessionDriver) Option {
	return func(h *Hub) {
		h.driver = driver
	}
}

// WithRecorder persists a record of every finished session.
func WithRecorder(rec ports.Recorder) Option {
	return func(h *Hub) {
		h.recorder = rec
	}
}

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(h *Hub) {
		h.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(h *Hub) {
		h.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Hub and its managers.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithLifecycleHooks registers observability callbacks on every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Hub) {
		h.hooks = hooks
	}
}

// WithHandlerErrorPolicy overrides the default HandlerErrorsFatal policy.
func WithHandlerErrorPolicy(p HandlerErrorPolicy) Option {
	return func(h *Hub) {
		h.policy = p
	}
}

// NewHub creates a Hub serving the given flow.
func NewHub(f *flow.Flow, opts ...Option) *Hub {
	h := &Hub{
		flow:     f,
		sessions: make(map[string]*runtime.Manager),
		ended:    make(map[string]time.Time),
		locks:    make(map[string]*lockEntry),
		lockTTL:  defaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Flow returns the flow served by the hub.
func (h *Hub) Flow() *flow.Flow {
	return h.flow
}

// Start creates a session and returns its first briefing.
func (h *Hub) Start(ctx context.Context, sessionID string) (domain.Briefing, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var briefing domain.Briefing
	err := h.WithLock(ctx, sessionID, func(ctx context.Context) error {
		h.mu.Lock()
		if _, exists := h.sessions[sessionID]; exists {
			h.mu.Unlock()
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
		}
		m := runtime.NewManager(h.flow, sessionID, h.driver,
			runtime.WithLogger(h.logger),
			runtime.WithLifecycleHooks(h.hooks),
		)
		h.sessions[sessionID] = m
		delete(h.ended, sessionID)
		h.mu.Unlock()

		var err error
		briefing, err = m.Start(ctx)
		if err != nil {
			h.remove(sessionID)
			return err
		}
		if m.Terminated() {
			h.finalize(ctx, sessionID, m)
		}
		return nil
	})
	return briefing, err
}

// Call dispatches a model function call to the session's manager.
func (h *Hub) Call(ctx context.Context, sessionID, function string, args map[string]any) (domain.Outcome, error) {
	var (
		outcome domain.Outcome
		callErr error
	)
	err := h.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m, ok := h.lookup(sessionID)
		if !ok {
			if h.recentlyEnded(sessionID) {
				h.logger.Info("ignoring late event", "session_id", sessionID, "function", function,
					"error", &domain.LateEventError{SessionID: sessionID, Function: function})
				outcome = domain.Outcome{Kind: domain.OutcomeTerminated, Function: function}
				return nil
			}
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}

		before := m.State()
		outcome, callErr = m.Call(ctx, function, args)
		outcome.Diff = domain.Diff(before, m.State())

		var herr *domain.HandlerExecutionError
		if errors.As(callErr, &herr) && h.policy == HandlerErrorsFatal {
			h.logger.Error("handler failed, ending session", "session_id", sessionID, "function", function, "error", callErr)
			if err := h.terminate(ctx, sessionID); err != nil {
				h.logger.Warn("failed to terminate driver", "session_id", sessionID, "error", err)
			}
			h.finalize(ctx, sessionID, m)
			outcome.Kind = domain.OutcomeTerminated
			return nil
		}

		if m.Terminated() {
			h.finalize(ctx, sessionID, m)
		}
		return nil
	})
	if err != nil {
		return domain.Outcome{}, err
	}
	return outcome, callErr
}

// End releases a session. In-flight calls complete first.
func (h *Hub) End(ctx context.Context, sessionID string) error {
	return h.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m, ok := h.lookup(sessionID)
		if !ok {
			if h.recentlyEnded(sessionID) {
				return nil
			}
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		h.finalize(ctx, sessionID, m)
		return nil
	})
}

// Get returns a snapshot of a live session.
func (h *Hub) Get(ctx context.Context, sessionID string) (*domain.State, error) {
	m, ok := h.lookup(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return m.State(), nil
}

// List returns the IDs of the live sessions, sorted.
func (h *Hub) List(ctx context.Context) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close ends every live session.
func (h *Hub) Close(ctx context.Context) error {
	ids, _ := h.List(ctx)
	var errs []error
	for _, id := range ids {
		if err := h.End(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Hub) lookup(sessionID string) (*runtime.Manager, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.sessions[sessionID]
	return m, ok
}

func (h *Hub) remove(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

func (h *Hub) recentlyEnded(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.ended[sessionID]
	return ok
}

func (h *Hub) terminate(ctx context.Context, sessionID string) error {
	if h.driver == nil {
		return nil
	}
	return h.driver.Terminate(ctx, sessionID)
}

// finalize removes the session, waits for its manager and records it.
func (h *Hub) finalize(ctx context.Context, sessionID string, m *runtime.Manager) {
	now := time.Now()

	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.ended[sessionID] = now
	for id, at := range h.ended {
		if now.Sub(at) > defaultTombstone {
			delete(h.ended, id)
		}
	}
	h.mu.Unlock()

	final := m.End(ctx)
	if final == nil || h.recorder == nil {
		return
	}
	rec := domain.NewSessionRecord(h.flow.Name(), final, now)
	if err := h.recorder.Save(context.WithoutCancel(ctx), rec); err != nil {
		h.logger.Error("failed to record session", "session_id", sessionID, "error", err)
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (h *Hub) acquire(sessionID string) *lockEntry {
	h.lockMu.Lock()
	defer h.lockMu.Unlock()

	entry, exists := h.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		h.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (h *Hub) release(sessionID string) {
	h.lockMu.Lock()
	defer h.lockMu.Unlock()

	entry, exists := h.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(h.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (h *Hub) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := h.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		h.release(sessionID)
	}()

	if h.locker != nil {
		unlock, err := h.locker.Lock(ctx, sessionID, h.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				h.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
