package sockjs

// BaseConn is an embeddable default implementation of Conn. Applications
// embed it and override only the callbacks they care about: OnOpen and
// OnClose default to no-ops, OnMessage must be overridden.
//
// BaseConn also carries the Send/Broadcast/Close convenience methods,
// delegating to the bound Session and Endpoint.
type BaseConn struct {
	endpoint *Endpoint
	session  *Session
}

// OnOpen is a no-op default; override to validate/initialize per
// connection.
func (c *BaseConn) OnOpen(ConnectionInfo) {}

// OnMessage panics if not overridden -- every real connection type must
// handle inbound messages.
func (c *BaseConn) OnMessage(string) {
	panic("sockjs: OnMessage not implemented")
}

// OnClose is a no-op default.
func (c *BaseConn) OnClose() {}

// Session returns the bound session.
func (c *BaseConn) Session() *Session { return c.session }

// Endpoint returns the owning endpoint.
func (c *BaseConn) Endpoint() *Endpoint { return c.endpoint }

// IsClosed reports whether the bound session has entered CLOSING/CLOSED.
func (c *BaseConn) IsClosed() bool {
	st := c.session.State()
	return st == SessionClosing || st == SessionClosed
}

// Send delivers msg to the client unless the session is already
// closing/closed.
func (c *BaseConn) Send(msg interface{}) error {
	if st := c.session.State(); st == SessionClosing || st == SessionClosed {
		return nil
	}
	return c.session.Send(msg)
}

// Broadcast sends msg to every other active session on the endpoint,
// excluding this connection's own session id.
func (c *BaseConn) Broadcast(msg interface{}) {
	c.endpoint.Broadcast(msg, c.session.ID())
}

// Close closes the bound session with the default "Go away!" reason.
func (c *BaseConn) Close() {
	c.session.Close(CloseGoAway, closeReasonGoAway)
}

// NewBaseConn constructs a BaseConn bound to e and s. Application Conn
// types embed BaseConn and build it with this constructor from inside
// their ConnFactory, since BaseConn's fields are unexported.
func NewBaseConn(e *Endpoint, s *Session) BaseConn {
	return BaseConn{endpoint: e, session: s}
}

// ConnFactory constructs a Conn for a newly created session. Endpoints
// are parameterized by one of these instead of a concrete type.
type ConnFactory func(e *Endpoint, s *Session) Conn

// Stats is the contract an Endpoint's connection-count collaborator
// must satisfy. The default NopStats does nothing; applications that
// care about live-connection counts supply their own implementation.
type Stats interface {
	ConnectionOpened()
	ConnectionClosed()
}

// NopStats is the default Stats implementation: it does nothing.
type NopStats struct{}

// ConnectionOpened implements Stats.
func (NopStats) ConnectionOpened() {}

// ConnectionClosed implements Stats.
func (NopStats) ConnectionClosed() {}
