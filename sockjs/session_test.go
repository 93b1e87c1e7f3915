package sockjs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	opened []ConnectionInfo
	msgs   []string
	closed int
}

func (c *recordingConn) OnOpen(info ConnectionInfo) { c.opened = append(c.opened, info) }
func (c *recordingConn) OnMessage(msg string)       { c.msgs = append(c.msgs, msg) }
func (c *recordingConn) OnClose()                   { c.closed++ }

type recordingTransport struct {
	name     string
	sendable bool
	recvable bool
	framed   bool
	frames   []string
	failNext bool
}

func (t *recordingTransport) Name() string   { return t.name }
func (t *recordingTransport) Sendable() bool { return t.sendable }
func (t *recordingTransport) Recvable() bool { return t.recvable }
func (t *recordingTransport) Framed() bool   { return t.framed }
func (t *recordingTransport) Send(frame string) error {
	if t.failNext {
		t.failNext = false
		return assert.AnError
	}
	t.frames = append(t.frames, frame)
	return nil
}

func newTestSession() *Session {
	return newSession("sess-1", time.Minute, true, nil)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestSession()
	assert.Equal(t, SessionNew, s.State())

	conn := &recordingConn{}
	s.bind(conn, ConnectionInfo{IP: "1.2.3.4"})

	require.NoError(t, s.open())
	assert.Equal(t, SessionOpen, s.State())
	require.Len(t, conn.opened, 1)
	assert.Equal(t, "1.2.3.4", conn.opened[0].IP)

	assert.Equal(t, ErrAlreadyOpened, s.open())

	s.Close(3000, "Go away!")
	assert.Equal(t, SessionClosing, s.State())
	assert.Equal(t, 1, conn.closed)
	assert.Equal(t, CloseReason{3000, "Go away!"}, s.CloseReason())

	s.Close(1000, "ignored")
	assert.Equal(t, 1, conn.closed, "Close must be idempotent")

	s.didClose()
	assert.Equal(t, SessionClosed, s.State())
}

func TestSessionAttachDetachTransport(t *testing.T) {
	s := newTestSession()
	tr := &recordingTransport{name: "xhr", sendable: true, framed: true}

	require.NoError(t, s.attachTransport(tr))
	assert.Error(t, s.attachTransport(&recordingTransport{name: "xhr2", sendable: true, framed: true}))

	s.detachTransport(tr)
	require.NoError(t, s.attachTransport(tr))
}

func TestSessionAttachRejectsClosed(t *testing.T) {
	s := newTestSession()
	s.Close(3000, "Go away!")
	s.didClose()

	tr := &recordingTransport{name: "xhr", sendable: true, framed: true}
	assert.Equal(t, ErrSessionClosed, s.attachTransport(tr))
}

func TestSessionSendImmediateFlush(t *testing.T) {
	s := newTestSession()
	tr := &recordingTransport{name: "xhr", sendable: true, framed: true}
	require.NoError(t, s.attachTransport(tr))

	require.NoError(t, s.Send("hello"))
	require.Len(t, tr.frames, 1)
	assert.Equal(t, `a["hello"]`, tr.frames[0])
}

func TestSessionSendBuffersOnTransportFailure(t *testing.T) {
	s := newTestSession()
	tr := &recordingTransport{name: "xhr", sendable: true, framed: true, failNext: true}
	require.NoError(t, s.attachTransport(tr))

	require.NoError(t, s.Send("one"))
	assert.Empty(t, tr.frames)
	assert.Equal(t, 1, s.out.len())

	s.detachTransport(tr)
	tr2 := &recordingTransport{name: "xhr", sendable: true, framed: true}
	require.NoError(t, s.attachTransport(tr2))
	s.Flush()
	require.Len(t, tr2.frames, 1)
	assert.Equal(t, `a["one"]`, tr2.frames[0])
}

func TestSessionDispatchFeedsConnAndRecv(t *testing.T) {
	s := newTestSession()
	conn := &recordingConn{}
	s.bind(conn, ConnectionInfo{})
	require.NoError(t, s.open())

	s.dispatch([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, conn.msgs)

	msg, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "a", msg)
}

func TestRawSessionSkipsFraming(t *testing.T) {
	s := newSessionRaw("raw", 0, true, true, nil)
	conn := &recordingConn{}
	s.bind(conn, ConnectionInfo{})

	tr := &recordingTransport{name: "rawwebsocket", sendable: true, recvable: true, framed: false}
	require.NoError(t, s.attachTransport(tr))
	require.NoError(t, s.open())
	assert.Empty(t, tr.frames, "raw transport must not receive an open frame")

	require.NoError(t, s.Send("hi"))
	require.Len(t, tr.frames, 1)
	assert.Equal(t, `"hi"`, tr.frames[0])

	s.Close(1002, "Connection interrupted")
	assert.Len(t, tr.frames, 1, "raw transport must not receive a close frame")
}
