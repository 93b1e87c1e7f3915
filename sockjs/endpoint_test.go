package sockjs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEndpoint(factory ConnFactory) *Endpoint {
	settings := DefaultSettings()
	settings.SessionCheckInterval = time.Hour
	settings.HeartbeatDelay = time.Hour
	return NewEndpoint("/test", factory, WithSettings(settings))
}

func TestEndpointCreateSessionRegistersInPool(t *testing.T) {
	e := newTestEndpoint(func(ep *Endpoint, s *Session) Conn {
		return &BaseConn{}
	})

	sess := e.createSession("abc", true, ConnectionInfo{})
	assert.Same(t, sess, e.GetSession("abc"))
}

func TestEndpointBroadcastExcludesSender(t *testing.T) {
	e := newTestEndpoint(func(ep *Endpoint, s *Session) Conn {
		return &BaseConn{}
	})

	a := e.createSession("a", true, ConnectionInfo{})
	require.NoError(t, a.open())
	b := e.createSession("b", true, ConnectionInfo{})
	require.NoError(t, b.open())

	e.Broadcast("hi", "a")

	assert.Empty(t, a.out.pending, "sender must not receive its own broadcast")
	assert.Len(t, b.out.pending, 1)
}

func TestEndpointStartStopFiresLifecycleHooks(t *testing.T) {
	var started, stopping, stopped bool
	e := newTestEndpoint(func(ep *Endpoint, s *Session) Conn { return &BaseConn{} })
	e.OnStarted = func() { started = true }
	e.OnStopping = func() { stopping = true }
	e.OnStopped = func() { stopped = true }

	e.Start()
	e.Stop()

	assert.True(t, started)
	assert.True(t, stopping)
	assert.True(t, stopped)
}
