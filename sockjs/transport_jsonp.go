package sockjs

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

// jsonpTransport delivers exactly one frame per request, wrapped as
// `/**/<callback>("<frame>");\r\n`, then finishes.
type jsonpTransport struct {
	sink     *httpSink
	callback string
}

func (t *jsonpTransport) Name() string   { return "jsonp" }
func (t *jsonpTransport) Sendable() bool { return true }
func (t *jsonpTransport) Recvable() bool { return false }
func (t *jsonpTransport) Framed() bool   { return true }

func (t *jsonpTransport) Send(frame string) error {
	quoted, err := jsonMarshal(frame)
	if err != nil {
		return err
	}
	data := "/**/" + t.callback + "(" + string(quoted) + ");\r\n"
	return t.sink.write(data, true)
}

func (e *Endpoint) serveJSONP(w http.ResponseWriter, r *http.Request, sessionID string) {
	settings := e.Settings()

	callback, ok := validateCallback(r)
	if !ok {
		clearServerHeaders(w, r)
		http.Error(w, `"callback" parameter required`, http.StatusInternalServerError)
		return
	}

	clearServerHeaders(w, r)
	w.Header().Set("Content-Type", "application/javascript; charset=UTF-8")
	applyCORS(w, r)
	handleJSESSIONID(w, r, settings)
	disableCache(w)

	t := &jsonpTransport{sink: newHTTPSink(w), callback: callback}
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

// jsonpSendTransport is the recv-only companion to jsonp: the POST body
// is either a bare JSON array or an application/x-www-form-urlencoded
// body of the form d=<percent-encoded JSON array>.
type jsonpSendTransport struct{}

func (t *jsonpSendTransport) Name() string      { return "jsonp_send" }
func (t *jsonpSendTransport) Sendable() bool    { return false }
func (t *jsonpSendTransport) Recvable() bool    { return true }
func (t *jsonpSendTransport) Framed() bool      { return true }
func (t *jsonpSendTransport) Send(string) error { return nil }

func (e *Endpoint) serveJSONPSend(w http.ResponseWriter, r *http.Request, sessionID string) {
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

	t := &jsonpSendTransport{}
	bt := &baseTransport{endpoint: e}
	if !bt.bindSession(t, sess, remoteIP(r), settings) {
		return
	}
	defer bt.detachSession(t, settings)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || len(body) == 0 {
		http.Error(w, "Payload expected.", http.StatusInternalServerError)
		return
	}

	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "application/x-www-form-urlencoded") {
		if !strings.HasPrefix(string(body), "d=") {
			http.Error(w, "Payload expected.", http.StatusInternalServerError)
			return
		}
		decoded, err := url.QueryUnescape(string(body[2:]))
		if err != nil {
			http.Error(w, "Broken JSON encoding.", http.StatusInternalServerError)
			return
		}
		body = []byte(decoded)
	}

	messages, err := decodeSendPayload(body)
	if err != nil {
		http.Error(w, "Broken JSON encoding.", http.StatusInternalServerError)
		return
	}

	sess.dispatch(messages)
	io.WriteString(w, "ok")
}
