package sockjs

import (
	"io"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// cacheTimeSeconds is the cache lifetime applied to cacheable responses:
// one year.
const cacheTimeSeconds = 365 * 24 * 3600

var jsonpCallbackRegexp = regexp.MustCompile(`^[a-zA-Z0-9\-_.]+$`)

// validateCallback extracts and validates the "c" query argument used by
// JSONP and HtmlFile transports.
func validateCallback(r *http.Request) (string, bool) {
	cb := r.URL.Query().Get("c")
	if cb == "" {
		return "", false
	}
	if !jsonpCallbackRegexp.MatchString(cb) {
		return "", false
	}
	return cb, true
}

// applyCORS echoes Origin and always sets credentials: true.
func applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	if h := r.Header.Get("Access-Control-Request-Headers"); h != "" {
		w.Header().Set("Access-Control-Allow-Headers", h)
	}
	w.Header().Set("Access-Control-Allow-Credentials", "true")
}

// applyCacheForever sets a one-year Cache-Control.
func applyCacheForever(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(cacheTimeSeconds)+", public")
	w.Header().Set("Expires", time.Now().Add(cacheTimeSeconds*time.Second).UTC().Format(http.TimeFormat))
	w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cacheTimeSeconds))
}

// disableCache forbids any caching of the response.
func disableCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, no-transform, must-revalidate, max-age=0")
}

// handleJSESSIONID echoes the JSESSIONID cookie (or sets a dummy value
// if absent). A no-op if cookie affinity is disabled in settings.
func handleJSESSIONID(w http.ResponseWriter, r *http.Request, settings Settings) {
	if !settings.CookieAffinity {
		return
	}
	val := "dummy"
	if c, err := r.Cookie("JSESSIONID"); err == nil && c.Value != "" {
		val = c.Value
	}
	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: val, Path: "/"})
}

// clearServerHeaders removes headers the base transport strips before
// responding.
func clearServerHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Del("Date")
	w.Header().Del("Server")
	if !r.ProtoAtLeast(1, 1) {
		w.Header().Set("Connection", "close")
	}
}

// writeOptionsPreflight answers a cross-origin OPTIONS request.
func writeOptionsPreflight(w http.ResponseWriter, r *http.Request, allowedMethods string) {
	applyCORS(w, r)
	applyCacheForever(w)
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	w.Header().Set("Allow", allowedMethods)
	w.WriteHeader(http.StatusNoContent)
}

// baseTransport holds the HTTP-request-scoped state and bind/detach
// protocol shared by every concrete transport. Each concrete transport
// embeds this and passes itself (as a Transport) into the methods below.
type baseTransport struct {
	endpoint *Endpoint
	session  *Session
}

// lookupOrCreateSession looks up an existing session by id, or, if
// create is true (send-capable transports), creates one bound to the
// requesting client's ConnectionInfo. Receive-only transports pass
// create=false and must 404 on a miss.
func (bt *baseTransport) lookupOrCreateSession(r *http.Request, id string, create bool) *Session {
	if s := bt.endpoint.GetSession(id); s != nil {
		return s
	}
	if !create {
		return nil
	}
	return bt.endpoint.createSession(id, true, connInfoFromRequest(r))
}

// bindSession runs the binding protocol for self against sess, writing
// whatever close frames are necessary through self.Send. Returns false
// if the request should end without further work from the concrete
// transport (session was rejected, already closing, or a binding
// conflict was found).
func (bt *baseTransport) bindSession(self Transport, sess *Session, remoteIP string, settings Settings) bool {
	if settings.VerifyIP {
		info := sess.ConnInfo()
		if info.IP != "" && info.IP != remoteIP {
			_ = self.Send(closeFrame(closeIPMismatch))
			return false
		}
	}

	if st := sess.State(); st == SessionClosing || st == SessionClosed {
		reason := sess.CloseReason()
		if reason == (CloseReason{}) {
			reason = closeGoAway
		}
		_ = self.Send(closeFrame(reason))
		if st == SessionClosing {
			sess.didClose()
		}
		return false
	}

	if err := sess.attachTransport(self); err != nil {
		if err == ErrSessionClosed {
			_ = self.Send(closeFrame(closeGoAway))
		} else {
			_ = self.Send(closeFrame(closeAnotherConn))
		}
		return false
	}

	bt.session = sess

	if sess.State() == SessionNew {
		if self.Framed() {
			_ = self.Send(OpenFrame)
		}
		_ = sess.open()
	}

	if bt.session == nil || sess.State() == SessionClosed {
		bt.detachSession(self, settings)
		return false
	}

	if self.Sendable() {
		sess.Flush()
	}

	return true
}

// detachSession clears the session's transport slot and starts the
// disconnect-delay grace window, matching BaseTransport.detach_session.
func (bt *baseTransport) detachSession(self Transport, settings Settings) {
	sess := bt.session
	bt.session = nil
	if sess == nil {
		return
	}
	sess.detachTransport(self)
	sess.setExpiry(settings.DisconnectDelay)
}

// httpSink bridges Transport.Send calls -- which may arrive from the
// request's own goroutine (during bind), the pool's heartbeat goroutine,
// or an application goroutine calling Conn.Send -- into serialized
// writes against one http.ResponseWriter, and gives the HTTP handler a
// way to block until the response should finish. net/http hands each
// request its own goroutine, so unlike a single-threaded event loop this
// handoff between writer and handler has to be made explicit.
type httpSink struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	done     chan struct{}
	finished bool
}

func newHTTPSink(w http.ResponseWriter) *httpSink {
	return &httpSink{w: w, done: make(chan struct{})}
}

// write sends data to the client. If finishAfter is true (polling
// transports always, streaming transports once their byte budget is
// exhausted) the sink is marked finished and done is closed so the
// blocked handler goroutine can return.
func (h *httpSink) write(data string, finishAfter bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return io.ErrClosedPipe
	}
	if _, err := io.WriteString(h.w, data); err != nil {
		h.finished = true
		close(h.done)
		return err
	}
	if f, ok := h.w.(http.Flusher); ok {
		f.Flush()
	}
	if finishAfter {
		h.finished = true
		close(h.done)
	}
	return nil
}

// finish marks the sink finished without writing, ending a response
// whose last write was not terminal. A no-op if a write already
// finished the sink.
func (h *httpSink) finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.finished {
		h.finished = true
		close(h.done)
	}
}

func (h *httpSink) isFinished() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finished
}

// waitDone blocks until the sink is finished by a write or until ctx is
// done (client disconnected). Returns true if the client disconnected
// before any terminal write occurred.
func (h *httpSink) waitDone(ctx interface{ Done() <-chan struct{} }) bool {
	select {
	case <-h.done:
		return false
	case <-ctx.Done():
		h.mu.Lock()
		abrupt := !h.finished
		h.finished = true
		h.mu.Unlock()
		return abrupt
	}
}
