package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// ClientMessage is a frame sent by a websocket client.
//
//	{"type":"function_call","id":"1","function":"record_dates","arguments":{...}}
//	{"type":"end"}
type ClientMessage struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	Function  string         `json:"function,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Stream handles GET /sessions/{id}/stream. The client sends function calls
// and receives outcomes along with every event published for the session.
// Closing the last stream of a session ends it.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := s.Engine.Get(r.Context(), sessionID); err != nil {
		s.fail(w, "Stream", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}

	events, unsubscribe := s.Streams.Subscribe(sessionID)
	replies := make(chan []byte, 16)
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(ctx, conn, events, replies)
	}()
	s.readPump(ctx, conn, sessionID, replies, writerDone)

	cancel()
	<-writerDone
	unsubscribe()

	// The participant left: release the session once nobody else is listening.
	if s.Streams.Subscribers(sessionID) == 0 {
		if err := s.Engine.End(context.WithoutCancel(r.Context()), sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Warn("failed to end session after disconnect", "session_id", sessionID, "error", err)
		}
	}
}

// readPump processes client frames until the connection drops.
// It is the only reader of conn.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, sessionID string, replies chan<- []byte, writerDone <-chan struct{}) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	reply := func(e Event) {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		select {
		case replies <- data:
		case <-writerDone:
		}
	}

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "session_id", sessionID, "error", err)
			}
			return
		}

		switch msg.Type {
		case "function_call":
			resp, err := s.call(ctx, sessionID, CallRequest{Function: msg.Function, Arguments: msg.Arguments})
			if err != nil {
				reply(Event{Type: EventError, SessionID: sessionID, ID: msg.ID, Error: toAPIError(err)})
				continue
			}
			reply(Event{Type: EventOutcome, SessionID: sessionID, ID: msg.ID, Outcome: &resp.Outcome, Error: resp.Error})
		case "end":
			if err := s.Engine.End(ctx, sessionID); err != nil {
				reply(Event{Type: EventError, SessionID: sessionID, ID: msg.ID, Error: toAPIError(err)})
			}
		default:
			reply(Event{Type: EventError, SessionID: sessionID, ID: msg.ID,
				Error: &APIError{Code: "bad_request", Message: "unknown message type " + msg.Type}})
		}
	}
}

// writePump is the only writer of conn. It closes the connection once the
// session terminates or the reader goes away.
// Events published before a reply was queued are written ahead of it.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, events <-chan []byte, replies <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(data []byte) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data) == nil
	}
	closeTerminated := func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session terminated"), time.Now().Add(writeWait))
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case data := <-replies:
			ok, terminated := s.flush(events, write)
			if !ok || !write(data) {
				return
			}
			if terminated {
				closeTerminated()
				return
			}
		case data, ok := <-events:
			if !ok || !write(data) {
				return
			}
			if isTerminated(data) {
				s.drain(replies, write)
				closeTerminated()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// flush writes the events already queued for the session without blocking.
// It reports whether the writes succeeded and whether a termination was among them.
func (s *Server) flush(events <-chan []byte, write func([]byte) bool) (ok, terminated bool) {
	for {
		select {
		case data, open := <-events:
			if !open {
				return true, terminated
			}
			if !write(data) {
				return false, terminated
			}
			terminated = terminated || isTerminated(data)
		default:
			return true, terminated
		}
	}
}

func isTerminated(data []byte) bool {
	var e Event
	return json.Unmarshal(data, &e) == nil && e.Type == EventTerminated
}

// drain flushes the outcome of the call that terminated the session.
func (s *Server) drain(replies <-chan []byte, write func([]byte) bool) {
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case data := <-replies:
			write(data)
		case <-timeout:
			return
		}
	}
}
