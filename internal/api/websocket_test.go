package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"wormarena/internal/game"
)

func newWSServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	e := game.NewEngine(game.EngineOptions{Seed: 42})
	e.StartRun("tester", 0)

	srv := NewServer(e, ServerConfig{DisableLogging: true})
	srv.StartBackground()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return srv, ts, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestWebSocketInitialStateAndAck(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket round trip in short mode")
	}
	_, _, url := newWSServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read first frame: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("Expected binary state frame first, got kind %d", kind)
	}
	snap, err := DecodeState(data)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if p, ok := snap.Player(); !ok || p.Name != "tester" {
		t.Errorf("Expected the live run in the first frame")
	}

	msg := `{"t":"start","d":{"name":"Second","color":2}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Event and notify envelopes may arrive ahead of the ack.
	for i := 0; i < 50; i++ {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var env struct {
			T string `json:"t"`
			D struct {
				Cmd    string            `json:"cmd"`
				Result map[string]string `json:"result"`
			} `json:"d"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("Bad envelope %q: %v", data, err)
		}
		if env.T != MsgAck {
			continue
		}
		if env.D.Cmd != MsgStart || env.D.Result["runId"] == "" {
			t.Errorf("Unexpected ack %s", data)
		}
		return
	}
	t.Error("Expected an ack for the start command")
}

func TestWebSocketBadCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket round trip in short mode")
	}
	_, _, url := newWSServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"skill","d":{"index":0}}`))
	for i := 0; i < 50; i++ {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if kind == websocket.TextMessage && strings.Contains(string(data), `"t":"error"`) {
			if !strings.Contains(string(data), ErrNoSkillOffer.Error()) {
				t.Errorf("Expected no-offer error, got %s", data)
			}
			return
		}
	}
	t.Error("Expected an error envelope")
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, _, url := newWSServer(t)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("Expected dial to fail for a foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

func TestWebSocketPerIPLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket limit test in short mode")
	}
	_, _, url := newWSServer(t)

	var conns []*websocket.Conn
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()
	for i := 0; i < MaxWSConnectionsPerIP; i++ {
		c, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("Dial %d: %v", i, err)
		}
		conns = append(conns, c)
	}

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Expected the connection over the per-IP limit to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %v", resp)
	}

	var stats struct {
		Connections int               `json:"connections"`
		Limiter     map[string]uint64 `json:"limiter"`
	}
	r, err := http.Get(strings.Replace(url, "ws", "http", 1) + "/stats")
	if err != nil {
		t.Fatalf("Stats request failed: %v", err)
	}
	defer r.Body.Close()
	json.NewDecoder(r.Body).Decode(&stats)
	if stats.Connections != MaxWSConnectionsPerIP || stats.Limiter["rejected"] != 1 {
		t.Errorf("Expected %d connections and 1 rejection, got %+v", MaxWSConnectionsPerIP, stats)
	}
}

func TestEnqueueAfterDisconnect(t *testing.T) {
	hub := NewWebSocketHub(NewMockEngine(), nil)
	go hub.Run()
	defer hub.Stop()

	c := newWSClient(hub, nil, "10.0.0.1")
	hub.wsLimiter.Acquire(c.ip)
	hub.register <- c

	for i := 0; i < sendBufSize; i++ {
		if !c.enqueue(outMessage{data: []byte("x")}) {
			t.Fatalf("Expected frame %d queued", i)
		}
	}
	if c.enqueue(outMessage{data: []byte("x")}) {
		t.Error("Expected a full buffer to drop the frame")
	}
	<-c.send

	// Replies racing the disconnect must never panic.
	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-stop:
				return
			default:
				c.enqueue(outMessage{data: []byte("reply")})
			}
		}
	}()

	hub.unregister <- c
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the hub to mark the client done")
	}
	close(stop)
	<-finished

	if c.enqueue(outMessage{data: []byte("late")}) {
		t.Error("Expected enqueue to refuse a disconnected client")
	}
	if n := hub.wsLimiter.Count(c.ip); n != 0 {
		t.Errorf("Expected the IP slot released, got %d", n)
	}
}

func TestHubStopMarksClientsDone(t *testing.T) {
	hub := NewWebSocketHub(NewMockEngine(), nil)
	go hub.Run()

	c := newWSClient(hub, nil, "10.0.0.2")
	hub.register <- c
	hub.Stop()
	<-hub.done

	select {
	case <-c.done:
	default:
		t.Fatal("Expected stop to mark the client done")
	}
	if c.enqueue(outMessage{data: []byte("late")}) {
		t.Error("Expected enqueue to refuse after stop")
	}
}
