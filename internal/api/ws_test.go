package api

import (
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bbernstein/sbsp-go/internal/model"
)

func TestWebSocket_InitialStateSnapshotArrivesOnConnect(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	conn, _ := dialWS(t, s)
	defer conn.Close()

	readUntilType(t, conn, "state")
}

func TestWebSocket_AddCueCommandBroadcastsCueAddedEvent(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	conn, _ := dialWS(t, s)
	defer conn.Close()

	cueID := model.NewCueID()
	writeJSON(t, conn, map[string]interface{}{
		"type": "model",
		"data": map[string]interface{}{
			"command": "addCue",
			"params": map[string]interface{}{
				"cue": map[string]interface{}{
					"id":       cueID.String(),
					"name":     "intro",
					"sequence": "DO_NOT_CONTINUE",
					"type":     "wait",
					"params":   map[string]interface{}{"duration": 2.5},
				},
				"atIndex": 0,
			},
		},
	})

	env := readUntilType(t, conn, "event")
	uiEvent, ok := env.Data.(map[string]interface{})
	if !ok || uiEvent["type"] != "cueAdded" {
		t.Fatalf("expected a cueAdded event, got %#v", env.Data)
	}
	data, ok := uiEvent["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected cueAdded data to be an object, got %#v", uiEvent["data"])
	}
	cue, ok := data["cue"].(map[string]interface{})
	if !ok || cue["id"] != cueID.String() {
		t.Fatalf("expected cueAdded event for %s, got %#v", cueID, data)
	}
}

func dialWS(t *testing.T, s *Server) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	return conn, ts
}

func writeJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write json: %v", err)
	}
}

func readUntilType(t *testing.T, conn *websocket.Conn, wantType string) wireEnvelope {
	t.Helper()
	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		var env wireEnvelope
		err := conn.ReadJSON(&env)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.Fatalf("connection closed unexpectedly: %v", err)
			}
			t.Fatalf("read json: %v", err)
		}
		if env.Type == wantType {
			return env
		}
	}
	t.Fatalf("timed out waiting for a %q message", wantType)
	return wireEnvelope{}
}
