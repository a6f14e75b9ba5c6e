package wsserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trayhop/internal/gesture"
	"trayhop/internal/hotkeys"
)

// writeDeadline bounds a single write to the webview.
const writeDeadline = 5 * time.Second

// readDeadline is extended on every pong; three missed pings drop the client.
const readDeadline = 90 * time.Second

const pingInterval = 30 * time.Second

// maxReadMessageSize caps client frames. Input messages are well under 1 KiB.
const maxReadMessageSize = 16 * 1024

// tokenParam carries the per-launch token handed out through URL.
const tokenParam = "token"

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:     allowedOrigin,
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// allowedOrigin accepts the Wails webview origins (wails://, *.wails.localhost)
// and loopback dev servers. Requests without an Origin header come from
// non-browser clients, which still need the token.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Scheme, "wails") {
		return true
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "wails.localhost", strings.HasSuffix(host, ".wails.localhost"):
		return true
	case host == "localhost", host == "127.0.0.1", host == "::1":
		return true
	}
	return false
}

// InputHandler receives decoded client input. Methods are called from the
// connection's read goroutine; implementations hand the work to the input
// loop.
type InputHandler interface {
	HandleScroll(ev gesture.Event)
	HandleResize(width float64)
	HandleAction(action hotkeys.Action)
}

// HubOptions configures the WebSocket server.
type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for an OS-assigned port.
	Addr    string
	Handler InputHandler
}

// Hub serves a single WebSocket client (the app's own webview). A new
// connection replaces the existing one so page reloads recover. Only
// clients presenting the per-launch token from an allowed origin connect.
//
// Lock ordering: writeMu -> mu.
type Hub struct {
	opts HubOptions

	mu   sync.RWMutex
	conn *websocket.Conn

	// writeMu serializes WriteMessage; gorilla/websocket allows one writer.
	writeMu sync.Mutex

	listener net.Listener
	server   *http.Server
	url      string
	token    string

	closeOnce sync.Once
}

// NewHub creates a Hub. It does not listen until Start.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{opts: opts, token: uuid.NewString()}
}

// Start listens on the configured address and serves /ws. Handlers see ctx
// as their base context; the server itself stops only on Stop.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return errors.New("wsserver: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.listener = ln
	h.url = fmt.Sprintf("ws://127.0.0.1:%d/ws?%s=%s", ln.Addr().(*net.TCPAddr).Port, tokenParam, h.token)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[WS] server started", "port", ln.Addr().(*net.TCPAddr).Port)
	return nil
}

// Stop closes the client connection and shuts the server down. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.mu.Unlock()
		if conn != nil {
			h.closeConn(conn, "stop")
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}
		slog.Info("[WS] server stopped")
	})
	return stopErr
}

// URL returns the client URL including the per-launch token, e.g.
// "ws://127.0.0.1:54321/ws?token=…", or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// HasActiveConnection reports whether a client is connected.
func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn != nil
}

// Broadcast sends a typed payload to the connected client. It reports
// whether a client received it. Write failures drop the client.
func (h *Hub) Broadcast(msgType string, payload any) bool {
	frame, err := EncodeServerMessage(msgType, payload)
	if err != nil {
		slog.Warn("[WS] failed to encode message", "type", msgType, "error", err)
		return false
	}

	h.mu.RLock()
	conn := h.conn
	h.mu.RUnlock()
	if conn == nil {
		slog.Debug("[WS] broadcast skipped: no connection", "type", msgType)
		return false
	}
	return h.write(conn, websocket.TextMessage, frame, "broadcast")
}

func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte, reason string) bool {
	h.writeMu.Lock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		h.writeMu.Unlock()
		slog.Warn("[WS] SetWriteDeadline failed, closing connection", "error", err)
		h.drop(conn, reason+": deadline")
		return false
	}
	err := conn.WriteMessage(messageType, data)
	if clearErr := conn.SetWriteDeadline(time.Time{}); clearErr != nil {
		slog.Debug("[WS] clearing write deadline failed", "error", clearErr)
	}
	h.writeMu.Unlock()

	if err != nil {
		slog.Warn("[WS] write failed, closing connection", "reason", reason, "error", err)
		h.drop(conn, reason+": write")
		return false
	}
	return true
}

// drop forgets conn if it is still current, then closes it.
func (h *Hub) drop(conn *websocket.Conn, reason string) {
	h.mu.Lock()
	if h.conn == conn {
		h.conn = nil
	}
	h.mu.Unlock()
	h.closeConn(conn, reason)
}

func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if err := conn.Close(); err != nil {
		slog.Debug("[WS] connection close", "reason", reason, "error", err)
	}
}

func (h *Hub) isCurrent(conn *websocket.Conn) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn == conn
}

func (h *Hub) validToken(r *http.Request) bool {
	got := r.URL.Query().Get(tokenParam)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	if !h.validToken(r) {
		slog.Warn("[WS] rejected connection without a valid token", "remoteAddr", r.RemoteAddr, "origin", r.Header.Get("Origin"))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[WS] SetReadDeadline failed on new connection", "error", err)
		h.closeConn(conn, "initial read deadline")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	oldConn := h.conn
	h.conn = conn
	h.mu.Unlock()
	if oldConn != nil {
		h.closeConn(oldConn, "replaced by new connection")
	}
	slog.Info("[WS] client connected", "remoteAddr", conn.RemoteAddr())

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[ERROR-PANIC] wsserver read pump recovered",
				"panic", rec, "stack", string(debug.Stack()))
		}
		close(pingDone)
		h.drop(conn, "read pump exit")
		slog.Info("[WS] client disconnected")
	}()

	for {
		msgType, data, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[WS] read error", "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if !h.isCurrent(conn) {
			slog.Debug("[WS] message from replaced connection, skipping")
			continue
		}

		msg, decodeErr := DecodeClientMessage(data)
		if decodeErr != nil {
			slog.Debug("[WS] invalid client message", "error", decodeErr)
			h.sendError(conn, decodeErr.Error())
			continue
		}
		h.dispatch(msg)
	}
}

func (h *Hub) dispatch(msg ClientMessage) {
	handler := h.opts.Handler
	if handler == nil {
		return
	}
	switch msg.Type {
	case TypeScroll:
		handler.HandleScroll(msg.Scroll)
	case TypeResize:
		handler.HandleResize(msg.Width)
	case TypeAction:
		handler.HandleAction(msg.Action)
	}
}

func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[ERROR-PANIC] wsserver ping loop recovered",
				"panic", rec, "stack", string(debug.Stack()))
			h.drop(conn, "ping loop panic")
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !h.write(conn, websocket.PingMessage, nil, "ping") {
				return
			}
		}
	}
}

func (h *Hub) sendError(conn *websocket.Conn, message string) {
	payload, err := encodeError(message)
	if err != nil {
		slog.Debug("[WS] failed to marshal error message", "error", err)
		return
	}
	h.write(conn, websocket.TextMessage, payload, "error reply")
}
