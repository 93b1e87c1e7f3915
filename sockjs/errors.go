package sockjs

import "errors"

// SessionError is the base type for all session related errors.
type SessionError struct {
	msg string
}

func (e *SessionError) Error() string { return e.msg }

func newSessionError(msg string) *SessionError {
	return &SessionError{msg: msg}
}

// StateError is raised for invalid session state transitions.
type StateError struct {
	*SessionError
}

func newStateError(msg string) *StateError {
	return &StateError{SessionError: newSessionError(msg)}
}

// AlreadyOpenedError is raised when attempting to open an already open
// session, or when a second send/recv transport tries to attach while one
// is already bound.
type AlreadyOpenedError struct {
	*StateError
}

// ErrAlreadyOpened is returned by Session.open and by attachTransport
// when a binding conflict occurs.
var ErrAlreadyOpened = &AlreadyOpenedError{StateError: newStateError("sockjs: session already opened")}

// SessionClosedError is raised when an attempt is made to attach a
// transport to a session that is already CLOSED.
type SessionClosedError struct {
	*StateError
}

// ErrSessionClosed is returned by attachTransport on a CLOSED session.
var ErrSessionClosed = &SessionClosedError{StateError: newStateError("sockjs: session closed")}

// TransportAlreadySetError is the low-level form of AlreadyOpenedError,
// raised by the transactional transport-slot assignment in session.go
// before it is mapped to AlreadyOpenedError by attachTransport.
type TransportAlreadySetError struct {
	*SessionError
}

var errTransportAlreadySet = &TransportAlreadySetError{SessionError: newSessionError("sockjs: another transport already attached")}

// UnboundSessionError is raised when open-notification logic fires
// before the session has been bound to a Conn. Indicates a programmer
// bug in the endpoint wiring, never a client-triggerable condition.
type UnboundSessionError struct {
	*SessionError
}

var errUnboundSession = &UnboundSessionError{SessionError: newSessionError("sockjs: session has no bound connection")}

// ErrSessionNotOpen is returned by Session.Recv once the session has
// started closing and no queued inbound message remains. Session.Send
// does not check the session state.
var ErrSessionNotOpen = errors.New("sockjs: session not in open state")

// ErrQueueFull is returned when the outbound buffer would grow beyond
// MaxOutboundBuffer (0 disables the limit).
var ErrQueueFull = errors.New("sockjs: outbound buffer full")
