package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
//
// The optional "watch" query parameter is a comma separated filter over diff
// fields: results, history, status, node. Non-diff events are always sent.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	s.logger.Info("SSE: subscribing to session updates", "session_id", sessionID)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !wanted(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func wanted(msg []byte, watchList []string) bool {
	var e Event
	if err := json.Unmarshal(msg, &e); err != nil || e.Type != EventDiff || e.Diff == nil {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "results":
			if len(e.Diff.Results) > 0 {
				return true
			}
		case "history":
			if e.Diff.History != nil {
				return true
			}
		case "status":
			if e.Diff.Status != nil {
				return true
			}
		case "node":
			if e.Diff.CurrentNodeID != nil {
				return true
			}
		}
	}
	return false
}
