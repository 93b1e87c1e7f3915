package sockjs

import "net/http"

// eventSourceTransport streams frames using the text/event-stream wire
// format: each frame becomes a "data: <frame>\r\n\r\n" event.
type eventSourceTransport struct {
	sink    *httpSink
	limit   int64
	written int64
}

func (t *eventSourceTransport) Name() string   { return "eventsource" }
func (t *eventSourceTransport) Sendable() bool { return true }
func (t *eventSourceTransport) Recvable() bool { return false }
func (t *eventSourceTransport) Framed() bool   { return true }

func (t *eventSourceTransport) Send(frame string) error {
	data := "data: " + frame + "\r\n\r\n"
	t.written += int64(len(data))
	finish := t.limit > 0 && t.written >= t.limit
	return t.sink.write(data, finish)
}

func (e *Endpoint) serveEventSource(w http.ResponseWriter, r *http.Request, sessionID string) {
	settings := e.Settings()

	clearServerHeaders(w, r)
	w.Header().Set("Content-Type", "text/event-stream; charset=UTF-8")
	applyCORS(w, r)
	handleJSESSIONID(w, r, settings)
	disableCache(w)
	w.WriteHeader(http.StatusOK)

	sink := newHTTPSink(w)
	// A leading blank line so proxies that sniff the response don't
	// buffer it waiting for more bytes.
	if err := sink.write("\r\n", false); err != nil {
		return
	}

	t := &eventSourceTransport{sink: sink, limit: settings.ResponseLimit}
	bt := &baseTransport{endpoint: e}

	sess := bt.lookupOrCreateSession(r, sessionID, true)
	if sess == nil {
		http.NotFound(w, r)
		return
	}

	if !bt.bindSession(t, sess, remoteIP(r), settings) {
		sink.finish()
		return
	}

	abrupt := sink.waitDone(r.Context())
	if abrupt {
		sess.Close(CloseAbruptDisconnect, closeReasonConnectionInterrupt)
	}
	bt.detachSession(t, settings)
}
