package sockjs

import (
	"net/http"
	"strings"
)

// xhrStreamingPrelude is a 2KiB padding sent before the first frame so
// that browsers which sniff a response's Content-Type from its first
// bytes don't mistake it for something other than plain text.
var xhrStreamingPrelude = strings.Repeat("h", 2048) + "\n"

// xhrStreamingTransport streams newline-terminated frames on a single
// long-lived response until responseLimit bytes have been written (the
// prelude included), then finishes so the client reconnects.
type xhrStreamingTransport struct {
	sink    *httpSink
	limit   int64
	written int64
}

func (t *xhrStreamingTransport) Name() string   { return "xhr_streaming" }
func (t *xhrStreamingTransport) Sendable() bool { return true }
func (t *xhrStreamingTransport) Recvable() bool { return false }
func (t *xhrStreamingTransport) Framed() bool   { return true }

func (t *xhrStreamingTransport) Send(frame string) error {
	data := frame + "\n"
	t.written += int64(len(data))
	finish := t.limit > 0 && t.written >= t.limit
	return t.sink.write(data, finish)
}

func (e *Endpoint) serveXHRStreaming(w http.ResponseWriter, r *http.Request, sessionID string) {
	settings := e.Settings()

	clearServerHeaders(w, r)
	w.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	applyCORS(w, r)
	handleJSESSIONID(w, r, settings)
	disableCache(w)
	w.WriteHeader(http.StatusOK)

	sink := newHTTPSink(w)
	if err := sink.write(xhrStreamingPrelude, false); err != nil {
		return
	}

	t := &xhrStreamingTransport{sink: sink, limit: settings.ResponseLimit, written: int64(len(xhrStreamingPrelude))}
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
