package wsserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trayhop/internal/gesture"
	"trayhop/internal/hotkeys"
)

const testListenAddr = "127.0.0.1:0"

type recordingHandler struct {
	mu      sync.Mutex
	scrolls []gesture.Event
	widths  []float64
	actions []hotkeys.Action
}

func (r *recordingHandler) HandleScroll(ev gesture.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrolls = append(r.scrolls, ev)
}

func (r *recordingHandler) HandleResize(width float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widths = append(r.widths, width)
}

func (r *recordingHandler) HandleAction(action hotkeys.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *recordingHandler) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scrolls), len(r.widths), len(r.actions)
}

// waitForCondition polls fn every 10ms until it returns true or the timeout expires.
func waitForCondition(t *testing.T, timeout time.Duration, fn func() bool) bool {
	t.Helper()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-ticker.C:
			if fn() {
				return true
			}
		case <-deadline.C:
			return false
		}
	}
}

func startTestHub(t *testing.T, handler InputHandler) *Hub {
	t.Helper()
	hub := NewHub(HubOptions{Addr: testListenAddr, Handler: handler})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = hub.Stop() })
	return hub
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(hub.URL(), nil)
	if err != nil {
		t.Fatalf("failed to dial hub: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if !waitForCondition(t, 2*time.Second, func() bool { return hub.HasActiveConnection() }) {
		t.Fatal("timed out waiting for hub to register connection")
	}
	return conn
}

func sendText(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

func TestHubURLBeforeAndAfterStart(t *testing.T) {
	hub := NewHub(HubOptions{})
	if hub.URL() != "" {
		t.Fatalf("URL() before Start = %q", hub.URL())
	}
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer hub.Stop()
	if hub.URL() == "" {
		t.Fatal("URL() empty after Start")
	}
	if err := hub.Start(context.Background()); err == nil {
		t.Fatal("second Start() expected error")
	}
}

func TestHubDispatchesClientInput(t *testing.T) {
	handler := &recordingHandler{}
	hub := startTestHub(t, handler)
	conn := dialHub(t, hub)

	sendText(t, conn, `{"type":"scroll","deltaX":-10,"phase":"began"}`)
	sendText(t, conn, `{"type":"resize","width":420}`)
	sendText(t, conn, `{"type":"action","action":"toggle-visibility"}`)

	if !waitForCondition(t, 2*time.Second, func() bool {
		s, w, a := handler.counts()
		return s == 1 && w == 1 && a == 1
	}) {
		t.Fatal("handler did not receive all messages")
	}
	handler.mu.Lock()
	defer handler.mu.Unlock()
	if handler.scrolls[0].Phase != gesture.PhaseBegan || handler.widths[0] != 420 || handler.actions[0] != hotkeys.ToggleVisibility {
		t.Fatalf("handler saw %+v %v %v", handler.scrolls, handler.widths, handler.actions)
	}
}

func TestHubRepliesWithErrorOnBadMessage(t *testing.T) {
	handler := &recordingHandler{}
	hub := startTestHub(t, handler)
	conn := dialHub(t, hub)

	sendText(t, conn, `{"type":"wobble"}`)

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error reply: %v", err)
	}
	var reply struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("Unmarshal reply: %v", err)
	}
	if reply.Type != TypeError || reply.Message == "" {
		t.Fatalf("reply = %+v", reply)
	}
	if s, w, a := handler.counts(); s+w+a != 0 {
		t.Fatal("invalid message reached the handler")
	}
	if !hub.HasActiveConnection() {
		t.Fatal("invalid message dropped the connection")
	}
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub := startTestHub(t, nil)
	if hub.Broadcast(TypeNavigation, map[string]string{"type": "drag"}) {
		t.Fatal("Broadcast() without a client reported delivery")
	}
	conn := dialHub(t, hub)

	if !hub.Broadcast(TypeNavigation, map[string]string{"type": "transition"}) {
		t.Fatal("Broadcast() reported no delivery")
	}
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var msg struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Type != TypeNavigation || msg.Payload["type"] != "transition" {
		t.Fatalf("broadcast = %+v", msg)
	}
}

func TestHubNewConnectionReplacesOld(t *testing.T) {
	hub := startTestHub(t, nil)
	first := dialHub(t, hub)

	second, _, err := websocket.DefaultDialer.Dial(hub.URL(), nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	if err := first.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatal("first connection still open after replacement")
	}

	if !waitForCondition(t, 2*time.Second, func() bool {
		return hub.Broadcast(TypeNavigation, map[string]int{"n": 1})
	}) {
		t.Fatal("broadcast to replacement connection failed")
	}
	if err := second.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if _, _, err := second.ReadMessage(); err != nil {
		t.Fatalf("second connection read: %v", err)
	}
}

func TestHubClientDisconnectClearsConnection(t *testing.T) {
	hub := startTestHub(t, nil)
	conn := dialHub(t, hub)
	_ = conn.Close()

	if !waitForCondition(t, 2*time.Second, func() bool { return !hub.HasActiveConnection() }) {
		t.Fatal("timed out waiting for hub to clear connection")
	}
}

func TestHubStopIsIdempotent(t *testing.T) {
	hub := NewHub(HubOptions{Addr: testListenAddr})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := hub.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := hub.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if err := NewHub(HubOptions{}).Stop(); err != nil {
		t.Fatalf("Stop() before Start error = %v", err)
	}
}

func TestHubRejectsUntrustedClients(t *testing.T) {
	handler := &recordingHandler{}
	hub := startTestHub(t, handler)
	withoutToken := hub.URL()[:strings.Index(hub.URL(), "?")]

	tests := []struct {
		name   string
		url    string
		origin string
	}{
		{name: "foreign origin", url: hub.URL(), origin: "https://attacker.example"},
		{name: "lookalike origin", url: hub.URL(), origin: "http://wails.localhost.attacker.example"},
		{name: "file origin", url: hub.URL(), origin: "file://"},
		{name: "missing token", url: withoutToken},
		{name: "wrong token", url: withoutToken + "?token=guess", origin: "wails://wails"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(tt.url, header)
			if err == nil {
				conn.Close()
				t.Fatal("Dial() succeeded, want rejection")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Fatalf("response = %v, want 403", resp)
			}
		})
	}
	if hub.HasActiveConnection() {
		t.Fatal("rejected client became the active connection")
	}
}

func TestHubAcceptsWebviewOrigins(t *testing.T) {
	hub := startTestHub(t, nil)
	for _, origin := range []string{"wails://wails", "http://wails.localhost", "https://wails.localhost:34115", "http://localhost:34115"} {
		header := http.Header{}
		header.Set("Origin", origin)
		conn, _, err := websocket.DefaultDialer.Dial(hub.URL(), header)
		if err != nil {
			t.Fatalf("Dial(origin=%s) error = %v", origin, err)
		}
		conn.Close()
	}
}

func TestRejectedClientDoesNotReplaceWebview(t *testing.T) {
	hub := startTestHub(t, nil)
	webview := dialHub(t, hub)
	defer webview.Close()
	if !waitForCondition(t, 2*time.Second, hub.HasActiveConnection) {
		t.Fatal("webview never registered")
	}

	header := http.Header{}
	header.Set("Origin", "https://attacker.example")
	if conn, _, err := websocket.DefaultDialer.Dial(hub.URL(), header); err == nil {
		conn.Close()
		t.Fatal("foreign origin accepted")
	}

	if !hub.Broadcast(TypeNavigation, map[string]int{"n": 1}) {
		t.Fatal("webview lost its connection to a rejected client")
	}
}
