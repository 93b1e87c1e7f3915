package sockjs

import (
	"io"
	"net/http"
)

// xhrTransport implements the xhr-polling transport: one already-framed
// payload per POST, newline terminated, then the response finishes.
type xhrTransport struct {
	sink *httpSink
}

func (t *xhrTransport) Name() string     { return "xhr" }
func (t *xhrTransport) Sendable() bool   { return true }
func (t *xhrTransport) Recvable() bool   { return false }
func (t *xhrTransport) Framed() bool     { return true }
func (t *xhrTransport) Send(frame string) error {
	return t.sink.write(frame+"\n", true)
}

func (e *Endpoint) serveXHR(w http.ResponseWriter, r *http.Request, sessionID string) {
	settings := e.Settings()

	clearServerHeaders(w, r)
	w.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	applyCORS(w, r)
	handleJSESSIONID(w, r, settings)
	disableCache(w)

	t := &xhrTransport{sink: newHTTPSink(w)}
	bt := &baseTransport{endpoint: e}

	sess := bt.lookupOrCreateSession(r, sessionID, true)
	if sess == nil {
		http.NotFound(w, r)
		return
	}

	if !bt.bindSession(t, sess, remoteIP(r), settings) {
		t.sink.finish()
		return
	}

	abrupt := t.sink.waitDone(r.Context())
	if abrupt {
		sess.Close(CloseAbruptDisconnect, closeReasonConnectionInterrupt)
	}
	bt.detachSession(t, settings)
}

// xhrSendTransport implements the recv-only xhr_send channel: POST body
// is a JSON array of strings; success is an empty 204.
type xhrSendTransport struct{}

func (t *xhrSendTransport) Name() string   { return "xhr_send" }
func (t *xhrSendTransport) Sendable() bool { return false }
func (t *xhrSendTransport) Recvable() bool { return true }
func (t *xhrSendTransport) Framed() bool   { return true }
func (t *xhrSendTransport) Send(string) error {
	return nil // recv-only: never asked to deliver a frame
}

func (e *Endpoint) serveXHRSend(w http.ResponseWriter, r *http.Request, sessionID string) {
	settings := e.Settings()

	clearServerHeaders(w, r)
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	applyCORS(w, r)
	handleJSESSIONID(w, r, settings)
	disableCache(w)

	sess := e.GetSession(sessionID)
	if sess == nil {
		http.NotFound(w, r)
		return
	}

	t := &xhrSendTransport{}
	bt := &baseTransport{endpoint: e}
	if !bt.bindSession(t, sess, remoteIP(r), settings) {
		return
	}
	defer bt.detachSession(t, settings)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Payload expected.", http.StatusInternalServerError)
		return
	}

	messages, err := decodeSendPayload(body)
	if err != nil {
		http.Error(w, "Broken JSON encoding.", http.StatusInternalServerError)
		return
	}

	sess.dispatch(messages)
	w.WriteHeader(http.StatusNoContent)
}

// decodeSendPayload decodes a raw POST body into a list of application
// messages: a bare JSON array.
func decodeSendPayload(body []byte) ([]string, error) {
	data := body
	if len(data) == 0 {
		return nil, errEmptyPayload
	}
	if len(data) < 2 || data[0] != '[' || data[len(data)-1] != ']' {
		return nil, errBrokenPayload
	}
	var arr []string
	if err := jsonUnmarshal(data, &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

var (
	errEmptyPayload  = newSessionError("sockjs: payload expected")
	errBrokenPayload = newSessionError("sockjs: broken JSON encoding")
)
