// Package http exposes the voiceflow session hub over REST, server-sent events
// and websockets.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/voiceflow/internal/presentation/graph"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/flow"
	"github.com/aretw0/voiceflow/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// Engine is what the HTTP server needs from the session hub.
type Engine interface {
	ports.Sessions
	Flow() *flow.Flow
}

// APIError is the error body returned to clients.
type APIError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// CallRequest is the body of POST /sessions/{id}/calls.
type CallRequest struct {
	Function  string         `json:"function"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallResponse reports the outcome of a function call.
type CallResponse struct {
	Outcome domain.Outcome `json:"outcome"`
	Error   *APIError      `json:"error,omitempty"`
}

// Server serves the hub over HTTP.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger  *slog.Logger
	token   string
	metrics http.Handler
	version string
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithToken requires "Authorization: Bearer <token>" on every route but /health.
// Stream routes also accept a "token" query parameter.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewHandler creates the HTTP handler. streams must be the driver the hub
// publishes to; a nil value disables the push routes' content.
func NewHandler(engine Engine, streams *StreamManager, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: streams,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(enableCORS)
	r.Get("/health", s.GetHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		if s.metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.metrics)
		}
		r.Get("/graph", s.GetGraph)
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.ListSessions)
			r.Post("/", s.StartSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.GetSession)
				r.Delete("/", s.EndSession)
				r.Post("/calls", s.CallFunction)
				r.Get("/events", s.SubscribeEvents)
				r.Get("/stream", s.Stream)
			})
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got == "" {
			got = r.URL.Query().Get("token")
		}
		if got != s.token {
			writeError(w, http.StatusUnauthorized, &APIError{Code: "unauthorized", Message: "missing or invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.version != "" {
		resp["version"] = s.version
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetGraph handles GET /graph. It renders Mermaid by default, or the flow
// configuration with ?format=json. ?session_id= highlights a live session's path.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	cfg := s.Engine.Flow().Config()
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, cfg)
		return
	}

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session_id"); id != "" {
		state, err := s.Engine.Get(r.Context(), id)
		if err != nil {
			s.fail(w, "GetGraph", err)
			return
		}
		overlay = &graph.GraphOverlay{VisitedNodes: state.History, CurrentNode: state.CurrentNodeID}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(cfg, overlay))
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.List(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// StartSession handles POST /sessions. The body is optional.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.logger.Warn("StartSession: invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, &APIError{Code: "bad_request", Message: "invalid request body"})
			return
		}
	}

	briefing, err := s.Engine.Start(r.Context(), body.SessionID)
	if err != nil {
		s.fail(w, "StartSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, briefing)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// EndSession handles DELETE /sessions/{id}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.End(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.fail(w, "EndSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CallFunction handles POST /sessions/{id}/calls.
func (s *Server) CallFunction(w http.ResponseWriter, r *http.Request) {
	var body CallRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Function == "" {
		writeError(w, http.StatusBadRequest, &APIError{Code: "bad_request", Message: "body must carry a function name"})
		return
	}

	resp, err := s.call(r.Context(), chi.URLParam(r, "sessionID"), body)
	if err != nil {
		s.fail(w, "CallFunction", err)
		return
	}
	status := http.StatusOK
	if resp.Outcome.Kind == domain.OutcomeRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// call dispatches a function call and broadcasts the resulting state diff.
// Only lookup failures are returned as errors; call failures travel in the response.
// The diff is published before the caller replies, so stream clients see it first.
func (s *Server) call(ctx context.Context, sessionID string, req CallRequest) (CallResponse, error) {
	outcome, err := s.Engine.Call(ctx, sessionID, req.Function, req.Arguments)
	if err != nil && outcome.Kind == "" {
		return CallResponse{}, err
	}

	if outcome.Diff != nil {
		s.Streams.Publish(Event{Type: EventDiff, SessionID: sessionID, Diff: outcome.Diff})
	}

	resp := CallResponse{Outcome: outcome}
	if err != nil {
		resp.Error = toAPIError(err)
	}
	return resp, nil
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	apiErr := toAPIError(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExists):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	}
	writeError(w, status, apiErr)
}

func toAPIError(err error) *APIError {
	var (
		unknown *domain.UnknownFunctionError
		invalid *domain.ArgumentValidationError
		handler *domain.HandlerExecutionError
	)
	switch {
	case errors.As(err, &unknown):
		return &APIError{Code: "unknown_function", Message: err.Error()}
	case errors.As(err, &invalid):
		return &APIError{Code: "invalid_arguments", Message: err.Error(), Details: invalid.Details}
	case errors.As(err, &handler):
		return &APIError{Code: "handler_error", Message: err.Error()}
	case errors.Is(err, domain.ErrSessionNotFound):
		return &APIError{Code: "not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrSessionExists):
		return &APIError{Code: "conflict", Message: err.Error()}
	}
	return &APIError{Code: "internal", Message: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, e *APIError) {
	writeJSON(w, status, map[string]*APIError{"error": e})
}
