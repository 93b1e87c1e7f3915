package sockjs

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Server owns a gorilla/mux router and a prefix -> Endpoint map: one
// process may serve several independent SockJS applications, each under
// its own URL prefix.
type Server struct {
	mu        sync.Mutex
	router    *mux.Router
	endpoints map[string]*Endpoint
	log       *logrus.Entry
	httpSrv   *http.Server
}

// NewServer constructs an empty Server. Endpoints are registered with
// AddEndpoint before Listen or ServeHTTP is used.
func NewServer(log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{
		router:    mux.NewRouter(),
		endpoints: make(map[string]*Endpoint),
		log:       log,
	}
	s.router.Use(s.requestIDMiddleware)
	return s
}

// requestIDMiddleware stamps every request with a correlation id before
// logging it at debug level, matching the request-logging middleware
// shape used across the pack's gorilla/mux services.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		s.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Debug("sockjs request")
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// Router exposes the underlying mux.Router so callers can add their own
// routes alongside the registered endpoints.
func (s *Server) Router() *mux.Router { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddEndpoint registers e's routes under its prefix. Fails if the prefix
// is already taken.
func (s *Server) AddEndpoint(e *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := e.Prefix()
	if _, exists := s.endpoints[prefix]; exists {
		return errors.Errorf("sockjs: prefix %q already registered", prefix)
	}
	s.endpoints[prefix] = e
	s.mountRoutes(e)
	return nil
}

func (s *Server) mountRoutes(e *Endpoint) {
	settings := e.Settings()
	sub := s.router.PathPrefix(e.Prefix()).Subrouter()

	sub.HandleFunc("", e.serveGreeting).Methods(http.MethodGet)
	sub.HandleFunc("/", e.serveGreeting).Methods(http.MethodGet)
	sub.HandleFunc("/info", e.serveInfo).Methods(http.MethodGet, http.MethodOptions)
	sub.HandleFunc("/chunking_test", e.serveChunkingTest).Methods(http.MethodPost)
	sub.HandleFunc("/iframe.html", e.serveIFrame).Methods(http.MethodGet)
	sub.HandleFunc("/iframe{version:[0-9A-Za-z_.-]*}.html", e.serveIFrame).Methods(http.MethodGet)

	if !settings.transportDisabled("websocket") {
		sub.HandleFunc("/websocket", e.serveRawWebSocket).Methods(http.MethodGet)
	}

	sp := sub.PathPrefix("/{server:[^./]+}/{session:[^./]+}").Subrouter()

	if !settings.transportDisabled("websocket") {
		sp.HandleFunc("/websocket", sessionHandler(func(w http.ResponseWriter, r *http.Request, id string) {
			e.serveWebSocket(w, r, id)
		})).Methods(http.MethodGet)
	}
	if !settings.transportDisabled("xhr") {
		sp.HandleFunc("/xhr", preflighted("OPTIONS, POST", sessionHandler(e.serveXHR))).Methods(http.MethodPost, http.MethodOptions)
		sp.HandleFunc("/xhr_send", preflighted("OPTIONS, POST", sessionHandler(e.serveXHRSend))).Methods(http.MethodPost, http.MethodOptions)
	}
	if !settings.transportDisabled("xhr_streaming") {
		sp.HandleFunc("/xhr_streaming", preflighted("OPTIONS, POST", sessionHandler(e.serveXHRStreaming))).Methods(http.MethodPost, http.MethodOptions)
	}
	if !settings.transportDisabled("eventsource") {
		sp.HandleFunc("/eventsource", sessionHandler(e.serveEventSource)).Methods(http.MethodGet)
	}
	if !settings.transportDisabled("htmlfile") {
		sp.HandleFunc("/htmlfile", sessionHandler(e.serveHTMLFile)).Methods(http.MethodGet)
	}
	if !settings.transportDisabled("jsonp") {
		sp.HandleFunc("/jsonp", sessionHandler(e.serveJSONP)).Methods(http.MethodGet)
		sp.HandleFunc("/jsonp_send", preflighted("OPTIONS, POST", sessionHandler(e.serveJSONPSend))).Methods(http.MethodPost, http.MethodOptions)
	}
}

// sessionHandler adapts a (w, r, sessionID) handler to http.HandlerFunc,
// pulling the {session} path variable mux matched.
func sessionHandler(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, mux.Vars(r)["session"])
	}
}

// preflighted wraps a handler so an OPTIONS request gets a CORS
// preflight response instead of reaching the real handler.
func preflighted(allowedMethods string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			clearServerHeaders(w, r)
			writeOptionsPreflight(w, r, allowedMethods)
			return
		}
		next(w, r)
	}
}

// Start starts every registered endpoint's pool.
func (s *Server) Start() {
	s.mu.Lock()
	endpoints := make([]*Endpoint, 0, len(s.endpoints))
	for _, e := range s.endpoints {
		endpoints = append(endpoints, e)
	}
	s.mu.Unlock()

	for _, e := range endpoints {
		e.Start()
	}
}

// Stop stops every registered endpoint's pool and, if Listen was used,
// shuts down the underlying HTTP server.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	endpoints := make([]*Endpoint, 0, len(s.endpoints))
	for _, e := range s.endpoints {
		endpoints = append(endpoints, e)
	}
	httpSrv := s.httpSrv
	s.mu.Unlock()

	for _, e := range endpoints {
		e.Stop()
	}
	if httpSrv != nil {
		_ = httpSrv.Shutdown(ctx)
	}
}

// Listen starts every endpoint and blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	s.Start()
	s.mu.Lock()
	s.httpSrv = &http.Server{Addr: addr, Handler: s}
	httpSrv := s.httpSrv
	s.mu.Unlock()

	s.log.WithField("addr", addr).Info("sockjs server listening")
	err := httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
