package sockjs

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsUpgrader is shared across all WebSocket transport requests; origin
// checking is delegated to checkWebSocketOrigin so it can honor per-endpoint
// Settings.WebSocketAllowOrigin.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsTransport is the bidirectional, framed WebSocket transport: both
// Sendable and Recvable on the same underlying connection. A dedicated
// goroutine reads from the connection for the life of the request;
// writes happen from whichever goroutine calls Send, serialized by mu.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *wsTransport) Name() string   { return "websocket" }
func (t *wsTransport) Sendable() bool { return true }
func (t *wsTransport) Recvable() bool { return true }
func (t *wsTransport) Framed() bool   { return true }

func (t *wsTransport) Send(frame string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

func checkWebSocketOrigin(r *http.Request, allow string) bool {
	if allow == "" || allow == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == allow
}

func (e *Endpoint) serveWebSocket(w http.ResponseWriter, r *http.Request, sessionID string) {
	settings := e.Settings()

	if r.Method != http.MethodGet {
		http.Error(w, "Can \"Upgrade\" only to \"WebSocket\".", http.StatusBadRequest)
		return
	}

	upgrader := wsUpgrader
	upgrader.CheckOrigin = func(r *http.Request) bool {
		return checkWebSocketOrigin(r, settings.WebSocketAllowOrigin)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.log.WithField("err", err).Debug("websocket upgrade failed")
		return
	}
	if settings.DisableNagle {
		if tc, ok := conn.NetConn().(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
	}
	defer conn.Close()

	t := &wsTransport{conn: conn}
	bt := &baseTransport{endpoint: e}

	sess := bt.lookupOrCreateSession(r, sessionID, true)
	if sess == nil {
		conn.Close()
		return
	}

	if !bt.bindSession(t, sess, remoteIP(r), settings) {
		return
	}
	defer bt.detachSession(t, settings)

	conn.SetPongHandler(func(string) error {
		sess.touch()
		return nil
	})

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			sess.Close(CloseAbruptDisconnect, closeReasonConnectionInterrupt)
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if len(payload) == 0 {
			continue
		}
		messages, err := decodeFrame(payload)
		if err != nil {
			sess.Close(CloseAbruptDisconnect, closeReasonConnectionInterrupt)
			return
		}
		sess.dispatch(messages)
		if sess.State() == SessionClosed {
			return
		}
	}
}
