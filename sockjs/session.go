package sockjs

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionState is one of NEW, OPEN, CLOSING, CLOSED. States advance
// monotonically and never move backward.
type SessionState int32

const (
	// SessionNew is the initial state: created, not yet announced.
	SessionNew SessionState = iota
	// SessionOpen: messages flow both ways.
	SessionOpen
	// SessionClosing: close frame pending delivery.
	SessionClosing
	// SessionClosed is terminal.
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionNew:
		return "new"
	case SessionOpen:
		return "open"
	case SessionClosing:
		return "closing"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Transport is the capability set a concrete transport exposes to the
// session it is bound to. A single value may be both sendable and
// recvable (WebSocket); polling/streaming transports are one or the
// other. Send delivers one already-framed payload; an error return
// means the underlying connection is no longer usable and the session
// should stop using this transport for further sends.
type Transport interface {
	Name() string
	Sendable() bool
	Recvable() bool
	// Framed reports whether this transport wants messages wrapped in the
	// SockJS array-frame envelope and open/close frames. Every transport
	// answers true except the raw WebSocket shim.
	Framed() bool
	Send(frame string) error
}

// Conn is implemented by applications to receive session lifecycle and
// message events. See BaseConn for an embeddable default implementation
// of the optional callbacks.
type Conn interface {
	OnOpen(info ConnectionInfo)
	OnMessage(msg string)
	OnClose()
}

// Session represents one logical SockJS connection, identified by a
// client-chosen session id unique within its endpoint. It outlives many
// HTTP requests for polling transports.
type Session struct {
	mu sync.Mutex

	id    string
	state SessionState

	closeReason CloseReason

	sendTransport Transport
	recvTransport Transport

	out outBuffer
	in  *messageBuffer

	expiresAt time.Time
	ttl       time.Duration

	conn     Conn
	connInfo ConnectionInfo

	immediateFlush bool
	maxOutBuffer   int

	// raw marks a session bound to the raw WebSocket shim: no array-frame
	// envelope, no open/close/heartbeat frames, messages pass through as
	// single JSON values.
	raw bool

	// closeHook, if set, runs once after the Conn's OnClose callback
	// during Close. Used by Endpoint to decrement its connection count
	// without requiring every application Conn to remember to do it.
	closeHook func()

	log *logrus.Entry
}

func newSession(id string, ttl time.Duration, immediateFlush bool, log *logrus.Entry) *Session {
	return newSessionRaw(id, ttl, immediateFlush, false, log)
}

func newSessionRaw(id string, ttl time.Duration, immediateFlush, raw bool, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		id:             id,
		state:          SessionNew,
		ttl:            ttl,
		in:             newMessageBuffer(),
		immediateFlush: immediateFlush,
		raw:            raw,
		log:            log.WithField("session_id", id),
	}
}

// ID returns the session's id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CloseReason returns the (code, message) pair recorded when the
// session entered CLOSING. Zero value until then.
func (s *Session) CloseReason() CloseReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeReason
}

// bind attaches the application connection object. Called once by the
// endpoint right after construction, before the session is reachable by
// any transport.
func (s *Session) bind(conn Conn, info ConnectionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	s.connInfo = info
	s.touchLocked()
}

// ConnInfo returns the immutable snapshot recorded when the session was
// created.
func (s *Session) ConnInfo() ConnectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connInfo
}

// touch refreshes expiresAt to now+ttl. A ttl of 0 means "never expire".
func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

func (s *Session) touchLocked() {
	if s.ttl <= 0 {
		return
	}
	s.expiresAt = time.Now().Add(s.ttl)
}

// setExpiry sets an absolute expiry delta from now, used by the base
// transport after a transport detaches (disconnect_delay grace window).
func (s *Session) setExpiry(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d <= 0 {
		s.expiresAt = time.Time{}
		return
	}
	s.expiresAt = time.Now().Add(d)
}

// hasExpired returns true whenever state is CLOSING/CLOSED, or the
// recorded expiresAt has passed. Once the state is CLOSING/CLOSED the
// result stays true. Before that it follows expiresAt, which touch and
// setExpiry move (setExpiry may also move it earlier), so a session that
// is touched after its expiry has passed, before a GC pass removes it,
// reports false again.
func (s *Session) hasExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasExpiredLocked()
}

func (s *Session) hasExpiredLocked() bool {
	if s.state == SessionClosing || s.state == SessionClosed {
		return true
	}
	if s.expiresAt.IsZero() {
		return false
	}
	return !time.Now().Before(s.expiresAt)
}

// open transitions NEW -> OPEN and invokes the application's OnOpen
// callback. Calling open on a non-NEW session fails with
// ErrAlreadyOpened (idempotent-by-refusal).
func (s *Session) open() error {
	s.mu.Lock()
	if s.state != SessionNew {
		s.mu.Unlock()
		return ErrAlreadyOpened
	}
	s.state = SessionOpen
	conn, info := s.conn, s.connInfo
	s.touchLocked()
	s.mu.Unlock()

	s.log.Debug("session opened")

	if conn == nil {
		return errUnboundSession
	}
	conn.OnOpen(info)
	return nil
}

// Close moves OPEN/NEW -> CLOSING, recording the close reason, and
// invokes OnClose exactly once. A no-op if already closing/closed.
func (s *Session) Close(code int, message string) {
	s.mu.Lock()
	if s.state == SessionClosing || s.state == SessionClosed {
		s.mu.Unlock()
		return
	}
	s.state = SessionClosing
	s.closeReason = CloseReason{code, message}
	conn := s.conn
	sendT, recvT := s.sendTransport, s.recvTransport
	reason := s.closeReason
	s.in.close()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"code": code, "reason": message}).Debug("session closing")

	if conn != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.WithField("panic", r).Error("panic in OnClose callback")
				}
			}()
			conn.OnClose()
		}()
	}

	if sendT != nil && !s.raw {
		_ = sendT.Send(closeFrame(reason))
	}
	if recvT != nil && recvT != sendT {
		// a recv-only transport has nothing to flush; nothing to do.
		_ = recvT
	}

	s.mu.Lock()
	s.conn = nil
	hook := s.closeHook
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// didClose transitions CLOSING -> CLOSED. Called by the transport layer
// once the close frame has actually been delivered to the client.
func (s *Session) didClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionClosed {
		s.state = SessionClosed
		s.sendTransport = nil
		s.recvTransport = nil
	}
}

// attachTransport places t into the send and/or recv slot according to
// its capabilities. Assignment is transactional: if the second slot
// assignment fails, both are restored to their prior values.
func (s *Session) attachTransport(t Transport) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A slot conflict is reported to callers as ErrAlreadyOpened.
	defer func() {
		if err == errTransportAlreadySet {
			err = ErrAlreadyOpened
		}
	}()

	if s.state == SessionClosed {
		return ErrSessionClosed
	}

	origSend, origRecv := s.sendTransport, s.recvTransport

	if t.Sendable() {
		if s.sendTransport != nil {
			return errTransportAlreadySet
		}
		s.sendTransport = t
	}
	if t.Recvable() {
		if s.recvTransport != nil {
			s.sendTransport, s.recvTransport = origSend, origRecv
			return errTransportAlreadySet
		}
		s.recvTransport = t
	}
	return nil
}

// detachTransport clears the slots matching t. Detaching a transport
// while another one holds its slot is a programmer bug; a send slot
// already emptied by a failed write is accepted.
func (s *Session) detachTransport(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := false
	if t.Sendable() {
		if s.sendTransport != nil && s.sendTransport != t {
			panic("sockjs: detachTransport called with unattached send transport")
		}
		s.sendTransport = nil
		matched = true
	}
	if t.Recvable() {
		if s.recvTransport != t {
			panic("sockjs: detachTransport called with unattached recv transport")
		}
		s.recvTransport = nil
		matched = true
	}
	if !matched {
		panic("sockjs: detachTransport called with a transport with no capabilities")
	}
}

// accept pushes messages onto the pull-style inbound queue consumed by
// Recv.
func (s *Session) accept(messages ...string) error {
	return s.in.push(messages...)
}

// dispatch hands already-decoded inbound messages to the bound Conn,
// one at a time in arrival order, in addition to making it
// available to pull-style consumers via Recv. Also refreshes the TTL.
func (s *Session) dispatch(messages []string) {
	s.mu.Lock()
	s.touchLocked()
	conn := s.conn
	s.mu.Unlock()

	for _, m := range messages {
		_ = s.accept(m)
		if conn != nil {
			conn.OnMessage(m)
		}
	}
}

// Send JSON-encodes msg and frames it as a single-element array frame.
// If a send transport is attached and the write succeeds, the frame is
// delivered immediately (or, in batched mode, always buffered and left
// for the next Flush). On write failure the encoded payload is enqueued
// on the outbound buffer for the next transport to flush. When the
// payload would be buffered and the buffer already holds maxOutBuffer
// entries (a positive limit), it is dropped and ErrQueueFull returned.
func (s *Session) Send(msg interface{}) error {
	encoded, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	return s.sendEncoded(encoded)
}

// SendRaw queues an already-JSON-encoded payload, bypassing encoding.
func (s *Session) SendRaw(encoded string) error {
	return s.sendEncoded(encoded)
}

func (s *Session) sendEncoded(encoded string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.immediateFlush && s.sendTransport != nil {
		frame := encoded
		if !s.raw {
			frame = arrayFrame(encoded)
		}
		if err := s.sendTransport.Send(frame); err == nil {
			s.touchLocked()
			return nil
		}
		// IOErrors never escape Send: mark the transport unusable so
		// this and future sends fall through to buffering.
		s.sendTransport = nil
	}
	if s.maxOutBuffer > 0 && s.out.len() >= s.maxOutBuffer {
		return ErrQueueFull
	}
	s.out.push(encoded)
	return nil
}

// Flush coalesces any buffered payloads into a single array frame and
// writes it to the current send transport, clearing the buffer. A no-op
// if the buffer is empty or no send transport is attached.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Session) flushLocked() {
	if s.sendTransport == nil || s.out.len() == 0 {
		return
	}
	payload := s.out.drain()
	if s.raw {
		for i, p := range payload {
			if err := s.sendTransport.Send(p); err != nil {
				s.out.pending = append(payload[i:], s.out.pending...)
				s.sendTransport = nil
				return
			}
		}
		s.touchLocked()
		return
	}
	if err := s.sendTransport.Send(coalesceFrame(payload)); err != nil {
		// put it back; the next attach will retry.
		s.out.pending = append(payload, s.out.pending...)
		s.sendTransport = nil
		return
	}
	s.touchLocked()
}

// sendHeartbeat unconditionally attempts to write a heartbeat frame;
// failure is silent (the next GC pass reaps dead sessions instead).
func (s *Session) sendHeartbeat() {
	s.mu.Lock()
	t := s.sendTransport
	raw := s.raw
	s.mu.Unlock()
	if t == nil || raw {
		return
	}
	if err := t.Send(HeartbeatFrame); err != nil {
		s.mu.Lock()
		if s.sendTransport == t {
			s.sendTransport = nil
		}
		s.mu.Unlock()
	}
}

// Recv pulls the next dispatched message for pull-style consumers (the
// raw websocket shim and any application that prefers polling its own
// Conn instead of an OnMessage callback).
func (s *Session) Recv() (string, error) {
	return s.in.pop()
}
