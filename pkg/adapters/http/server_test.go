package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/voiceflow/internal/travel"
	vfhttp "github.com/aretw0/voiceflow/pkg/adapters/http"
	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...vfhttp.Option) (*httptest.Server, *vfhttp.StreamManager) {
	t.Helper()
	f, err := travel.Compile()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	streams := vfhttp.NewStreamManager(logger)
	hub := session.NewHub(f, session.WithDriver(streams), session.WithLogger(logger))

	opts = append([]vfhttp.Option{vfhttp.WithLogger(logger)}, opts...)
	srv := httptest.NewServer(vfhttp.NewHandler(hub, streams, opts...))
	t.Cleanup(srv.Close)
	return srv, streams
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_BookingOverREST(t *testing.T) {
	srv, _ := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"session_id": "room-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	briefing := decode[domain.Briefing](t, resp)
	assert.Equal(t, "room-1", briefing.SessionID)
	assert.Equal(t, "start", briefing.NodeID)
	require.Len(t, briefing.Functions, 2)

	calls := []vfhttp.CallRequest{
		{Function: "choose_mountain"},
		{Function: "select_destination", Arguments: map[string]any{"destination": "Himalayas"}},
		{Function: "record_dates", Arguments: map[string]any{"check_in": "2025-09-01", "check_out": "2025-09-10"}},
		{Function: "record_activities", Arguments: map[string]any{"activities": []string{"hiking"}}},
		{Function: "confirm_booking"},
		{Function: "end"},
	}
	for _, c := range calls {
		resp := do(t, http.MethodPost, srv.URL+"/sessions/room-1/calls", c)
		require.Equal(t, http.StatusOK, resp.StatusCode, c.Function)
		out := decode[vfhttp.CallResponse](t, resp)
		assert.Equal(t, domain.OutcomeTransitioned, out.Outcome.Kind, c.Function)
	}

	resp = do(t, http.MethodGet, srv.URL+"/sessions/room-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[domain.State](t, resp)
	assert.Equal(t, "end", state.CurrentNodeID)
	assert.Equal(t, "Himalayas", state.Results["destination"])

	resp = do(t, http.MethodPost, srv.URL+"/sessions/room-1/calls",
		vfhttp.CallRequest{Function: "end_conversation", Arguments: map[string]any{"summary": "Himalayas in September"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[vfhttp.CallResponse](t, resp)
	assert.Equal(t, domain.OutcomeTerminated, out.Outcome.Kind)

	resp = do(t, http.MethodGet, srv.URL+"/sessions/room-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Rejections(t *testing.T) {
	srv, _ := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"session_id": "s"}).StatusCode)
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/sessions/s/calls", vfhttp.CallRequest{Function: "choose_beach"}).StatusCode)

	tests := []struct {
		name string
		call vfhttp.CallRequest
		code string
	}{
		{"unknown function", vfhttp.CallRequest{Function: "book_flight"}, "unknown_function"},
		{"enum violation", vfhttp.CallRequest{Function: "select_destination", Arguments: map[string]any{"destination": "Paris"}}, "invalid_arguments"},
		{"missing argument", vfhttp.CallRequest{Function: "select_destination"}, "invalid_arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/sessions/s/calls", tt.call)
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			out := decode[vfhttp.CallResponse](t, resp)
			assert.Equal(t, domain.OutcomeRejected, out.Outcome.Kind)
			assert.Equal(t, "choose_beach", out.Outcome.NodeID)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.code, out.Error.Code)
		})
	}

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, srv.URL+"/sessions/s/calls", map[string]string{}).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, srv.URL+"/sessions/ghost/calls", vfhttp.CallRequest{Function: "x"}).StatusCode)
	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"session_id": "s"}).StatusCode)
}

func TestServer_ListAndEnd(t *testing.T) {
	srv, _ := newServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[domain.Briefing](t, resp).SessionID
	require.NotEmpty(t, id)

	list := decode[map[string][]string](t, do(t, http.MethodGet, srv.URL+"/sessions", nil))
	assert.Equal(t, []string{id}, list["sessions"])

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, srv.URL+"/sessions/"+id, nil).StatusCode)
	list = decode[map[string][]string](t, do(t, http.MethodGet, srv.URL+"/sessions", nil))
	assert.Empty(t, list["sessions"])
}

func TestServer_GraphAndHealth(t *testing.T) {
	srv, _ := newServer(t, vfhttp.WithVersion("1.2.3"))

	health := decode[map[string]string](t, do(t, http.MethodGet, srv.URL+"/health", nil))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "1.2.3", health["version"])

	cfg := decode[domain.FlowConfig](t, do(t, http.MethodGet, srv.URL+"/graph?format=json", nil))
	assert.Equal(t, "start", cfg.InitialNode)
	assert.Len(t, cfg.Nodes, 8)

	resp := do(t, http.MethodGet, srv.URL+"/graph", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "graph TD"))

	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"session_id": "g"}).StatusCode)
	do(t, http.MethodPost, srv.URL+"/sessions/g/calls", vfhttp.CallRequest{Function: "choose_mountain"})
	resp = do(t, http.MethodGet, srv.URL+"/graph?session_id=g", nil)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "class choose_mountain current;")

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/graph?session_id=ghost", nil).StatusCode)
}

func TestServer_Token(t *testing.T) {
	srv, _ := newServer(t, vfhttp.WithToken("secret"))

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/health", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodGet, srv.URL+"/sessions", nil).StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_SubscribeEvents(t *testing.T) {
	srv, streams := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"session_id": "sse"}).StatusCode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/sse/events?watch=results", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())
	require.Eventually(t, func() bool { return streams.Subscribers("sse") == 1 }, time.Second, 10*time.Millisecond)

	// choose_beach changes no results; its diff is filtered but its briefing is not.
	do(t, http.MethodPost, srv.URL+"/sessions/sse/calls", vfhttp.CallRequest{Function: "choose_beach"})
	do(t, http.MethodPost, srv.URL+"/sessions/sse/calls",
		vfhttp.CallRequest{Function: "select_destination", Arguments: map[string]any{"destination": "Cancun"}})

	var frames []vfhttp.Event
	for len(frames) < 3 && lines.Scan() {
		line := lines.Text()
		if !strings.HasPrefix(line, "data: ") || line == "data: connected" {
			continue
		}
		var e vfhttp.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		frames = append(frames, e)
	}
	require.Len(t, frames, 3)
	assert.Equal(t, vfhttp.EventBriefing, frames[0].Type)
	assert.Equal(t, "choose_beach", frames[0].Briefing.NodeID)
	assert.Equal(t, vfhttp.EventBriefing, frames[1].Type)
	assert.Equal(t, "get_dates", frames[1].Briefing.NodeID)
	assert.Equal(t, vfhttp.EventDiff, frames[2].Type)
	assert.Equal(t, "Cancun", frames[2].Diff.Results["destination"])
}

func TestServer_WebsocketStream(t *testing.T) {
	srv, _ := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"session_id": "ws"}).StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/ws/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(id, fn string, args map[string]any) {
		require.NoError(t, conn.WriteJSON(vfhttp.ClientMessage{Type: "function_call", ID: id, Function: fn, Arguments: args}))
	}
	// waitFor reads frames until one of type typ arrives, returning everything seen.
	waitFor := func(typ string) []vfhttp.Event {
		var seen []vfhttp.Event
		for {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var e vfhttp.Event
			require.NoError(t, conn.ReadJSON(&e))
			seen = append(seen, e)
			if e.Type == typ {
				return seen
			}
		}
	}

	send("1", "choose_beach", nil)
	seen := waitFor(vfhttp.EventOutcome)
	last := seen[len(seen)-1]
	assert.Equal(t, "1", last.ID)
	assert.Equal(t, domain.OutcomeTransitioned, last.Outcome.Kind)
	assert.Equal(t, vfhttp.EventBriefing, seen[0].Type)

	send("2", "select_destination", map[string]any{"destination": "Atlantis"})
	seen = waitFor(vfhttp.EventOutcome)
	last = seen[len(seen)-1]
	assert.Equal(t, "2", last.ID)
	assert.Equal(t, domain.OutcomeRejected, last.Outcome.Kind)
	require.NotNil(t, last.Error)
	assert.Equal(t, "invalid_arguments", last.Error.Code)

	for i, step := range []struct {
		fn   string
		args map[string]any
	}{
		{"select_destination", map[string]any{"destination": "Maldives"}},
		{"record_dates", map[string]any{"check_in": "2025-12-01", "check_out": "2025-12-08"}},
		{"record_activities", map[string]any{"activities": []string{"snorkeling", "sunset cruise"}}},
		{"confirm_booking", nil},
	} {
		send(string(rune('a'+i)), step.fn, step.args)
		waitFor(vfhttp.EventOutcome)
	}

	send("end", "end", nil)
	seen = waitFor(vfhttp.EventOutcome)
	var spoken []string
	for _, e := range seen {
		if e.Type == vfhttp.EventSpeak {
			spoken = append(spoken, e.Text)
		}
	}
	assert.Empty(t, spoken, "the end node has no pre-actions")

	send("bye", "end_conversation", map[string]any{"summary": "Maldives in December"})
	seen = waitFor(vfhttp.EventTerminated)
	assert.Equal(t, "ws", seen[len(seen)-1].SessionID)

	// The terminating call's outcome is flushed before the close frame.
	var outcome *domain.Outcome
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var e vfhttp.Event
		if err := conn.ReadJSON(&e); err != nil {
			break
		}
		if e.Type == vfhttp.EventOutcome {
			outcome = e.Outcome
		}
	}
	require.NotNil(t, outcome)
	assert.Equal(t, domain.OutcomeTerminated, outcome.Kind)
}

func TestServer_WebsocketFrameOrder(t *testing.T) {
	srv, _ := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"session_id": "order"}).StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/order/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() vfhttp.Event {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var e vfhttp.Event
		require.NoError(t, conn.ReadJSON(&e))
		return e
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, conn.WriteJSON(vfhttp.ClientMessage{Type: "function_call", ID: "bad", Function: "record_dates"}))
		e := read()
		assert.Equal(t, vfhttp.EventOutcome, e.Type)
		assert.Equal(t, "bad", e.ID)
	}

	require.NoError(t, conn.WriteJSON(vfhttp.ClientMessage{Type: "function_call", ID: "1", Function: "choose_beach"}))
	var types []string
	for {
		e := read()
		types = append(types, e.Type)
		if e.Type == vfhttp.EventOutcome {
			break
		}
	}
	assert.Equal(t, []string{vfhttp.EventBriefing, vfhttp.EventDiff, vfhttp.EventOutcome}, types)
}

func TestServer_StreamDisconnectEndsSession(t *testing.T) {
	srv, streams := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/sessions", map[string]string{"session_id": "gone"}).StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/gone/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return streams.Subscribers("gone") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/sessions/gone")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_StreamUnknownSession(t *testing.T) {
	srv, _ := newServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/ghost/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
