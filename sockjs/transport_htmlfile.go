package sockjs

import (
	"fmt"
	"net/http"
	"strings"
)

// htmlfileTemplate is the boilerplate document wrapping every htmlfile
// response: an iframe host document that calls back into the named
// callback function with each frame. The callback padding brings the
// initial response past IE's 1024 byte content sniffing threshold.
const htmlfileTemplate = `<!doctype html>
<html><head>
  <meta http-equiv="X-UA-Compatible" content="IE=edge" />
  <script>
    document.domain = document.domain;
    var c = parent.%s;
    c.start();
    function p(d) {c.message(d);};
    window.onload = function() {c.stop();};
  </script>
</head><body><h2>Don't panic!</h2>
  <script>
    `

func htmlfilePadding() string {
	var b strings.Builder
	b.Grow(1024)
	for b.Len() < 1024 {
		b.WriteByte(' ')
	}
	return b.String()
}

// htmlfileTransport streams frames wrapped as `<script>\np("frame");\n
// </script>\r\n`, each frame's payload JSON-quoted so it is a valid JS
// string literal.
type htmlfileTransport struct {
	sink    *httpSink
	limit   int64
	written int64
}

func (t *htmlfileTransport) Name() string   { return "htmlfile" }
func (t *htmlfileTransport) Sendable() bool { return true }
func (t *htmlfileTransport) Recvable() bool { return false }
func (t *htmlfileTransport) Framed() bool   { return true }

func (t *htmlfileTransport) Send(frame string) error {
	quoted, err := jsonMarshal(frame)
	if err != nil {
		return err
	}
	data := "<script>\np(" + string(quoted) + ");\n</script>\r\n"
	t.written += int64(len(data))
	finish := t.limit > 0 && t.written >= t.limit
	return t.sink.write(data, finish)
}

func (e *Endpoint) serveHTMLFile(w http.ResponseWriter, r *http.Request, sessionID string) {
	settings := e.Settings()

	callback, ok := validateCallback(r)
	if !ok {
		clearServerHeaders(w, r)
		http.Error(w, `"callback" parameter required`, http.StatusInternalServerError)
		return
	}

	clearServerHeaders(w, r)
	w.Header().Set("Content-Type", "text/html; charset=UTF-8")
	applyCORS(w, r)
	handleJSESSIONID(w, r, settings)
	disableCache(w)
	w.WriteHeader(http.StatusOK)

	sink := newHTTPSink(w)
	preamble := fmtHTMLFilePrelude(callback)
	if err := sink.write(preamble, false); err != nil {
		return
	}

	t := &htmlfileTransport{sink: sink, limit: settings.ResponseLimit}
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

func fmtHTMLFilePrelude(callback string) string {
	var b strings.Builder
	b.Grow(len(htmlfileTemplate) + len(callback) + 1100)
	fmt.Fprintf(&b, htmlfileTemplate, callback)
	b.WriteString(htmlfilePadding())
	b.WriteString("\r\n\n")
	return b.String()
}
