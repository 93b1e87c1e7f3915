package sockjs

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// rawTransport backs the /websocket raw shim endpoint: no SockJS framing,
// no session pooling, no heartbeats, one connection for the life of the
// socket.
type rawTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *rawTransport) Name() string   { return "rawwebsocket" }
func (t *rawTransport) Sendable() bool { return true }
func (t *rawTransport) Recvable() bool { return true }
func (t *rawTransport) Framed() bool   { return false }

func (t *rawTransport) Send(frame string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// serveRawWebSocket upgrades the connection and drives a dedicated,
// unpooled raw session for its whole lifetime: the session is never
// registered with the endpoint's Pool, so it never appears in GC or
// heartbeat passes, and its id has no meaning beyond this one
// connection.
func (e *Endpoint) serveRawWebSocket(w http.ResponseWriter, r *http.Request) {
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
		e.log.WithField("err", err).Debug("raw websocket upgrade failed")
		return
	}
	defer conn.Close()

	t := &rawTransport{conn: conn}
	sess := newSessionRaw("raw", 0, true, true, e.log)
	sess.bind(e.newConn(sess), connInfoFromRequest(r))
	sess.closeHook = e.stats.ConnectionClosed

	if err := sess.attachTransport(t); err != nil {
		return
	}
	e.stats.ConnectionOpened()
	_ = sess.open()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			sess.Close(CloseAbruptDisconnect, closeReasonConnectionInterrupt)
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		sess.dispatch([]string{string(payload)})
		if sess.State() == SessionClosed {
			return
		}
	}
}
