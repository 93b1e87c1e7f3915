package sockjs

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Endpoint owns one SockJS URL prefix's session pool, settings and
// application connection factory.
type Endpoint struct {
	mu sync.Mutex

	prefix      string
	settings    Settings
	pool        *Pool
	stats       Stats
	connFactory ConnFactory
	log         *logrus.Entry

	// OnStarted, OnStopping, OnStopped are optional lifecycle hooks fired
	// by Start/Stop. Both OnStopping (before the pool drains) and
	// OnStopped (after) fire.
	OnStarted  func()
	OnStopping func()
	OnStopped  func()
}

// Option configures an Endpoint at construction time.
type Option func(*Endpoint)

// WithSettings overrides the default Settings.
func WithSettings(s Settings) Option {
	return func(e *Endpoint) { e.settings = s }
}

// WithLogger overrides the default logrus entry used for this endpoint's
// log fields.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Endpoint) { e.log = log }
}

// WithStats installs a connection-count collaborator.
func WithStats(s Stats) Option {
	return func(e *Endpoint) { e.stats = s }
}

// NewEndpoint constructs an Endpoint serving prefix, using factory to
// build one application Conn per new session.
func NewEndpoint(prefix string, factory ConnFactory, opts ...Option) *Endpoint {
	e := &Endpoint{
		prefix:      prefix,
		settings:    DefaultSettings(),
		stats:       NopStats{},
		connFactory: factory,
		log:         logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("endpoint", prefix)
	e.pool = NewPool(e.settings.SessionCheckInterval, e.settings.HeartbeatDelay, e.log)
	return e
}

// Settings returns the endpoint's effective settings.
func (e *Endpoint) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Prefix returns the URL prefix this endpoint was registered under.
func (e *Endpoint) Prefix() string { return e.prefix }

// Start begins the pool's GC and heartbeat tickers and fires OnStarted.
func (e *Endpoint) Start() {
	e.pool.Start()
	if e.OnStarted != nil {
		e.OnStarted()
	}
}

// Stop fires OnStopping, drains the pool (closing every session with
// "Go away!"), then fires OnStopped.
func (e *Endpoint) Stop() {
	if e.OnStopping != nil {
		e.OnStopping()
	}
	e.pool.Stop()
	if e.OnStopped != nil {
		e.OnStopped()
	}
}

// GetSession returns the registered session with the given id, or nil.
func (e *Endpoint) GetSession(id string) *Session {
	return e.pool.Get(id)
}

// newConn builds an application Conn for sess via the configured
// ConnFactory.
func (e *Endpoint) newConn(sess *Session) Conn {
	return e.connFactory(e, sess)
}

// createSession constructs a new session bound to a fresh Conn and, if
// register is true, adds it to the pool. Used by every pooled transport
// when a client presents an unfamiliar session id.
func (e *Endpoint) createSession(id string, register bool, info ConnectionInfo) *Session {
	settings := e.Settings()
	sess := newSession(id, settings.sessionTTL(), settings.ImmediateFlush, e.log)
	sess.maxOutBuffer = settings.MaxOutboundBuffer

	conn := e.newConn(sess)
	sess.bind(conn, info)
	sess.closeHook = e.stats.ConnectionClosed

	if register {
		if err := e.pool.Add(sess); err != nil {
			e.log.WithField("err", err).Warn("failed to register new session")
		}
	}
	e.stats.ConnectionOpened()
	return sess
}

// Broadcast sends msg to every currently registered OPEN session except
// the one identified by excludeID (pass "" to exclude none).
func (e *Endpoint) Broadcast(msg interface{}, excludeID string) {
	for _, s := range e.pool.All() {
		if s.ID() == excludeID {
			continue
		}
		if s.State() != SessionOpen {
			continue
		}
		_ = s.Send(msg)
	}
}
