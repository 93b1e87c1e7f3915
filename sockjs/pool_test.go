package sockjs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAddGetRemove(t *testing.T) {
	p := NewPool(time.Hour, time.Hour, nil)
	s := newSession("one", time.Minute, true, nil)

	require.NoError(t, p.Add(s))
	assert.Equal(t, 1, p.Len())
	assert.Same(t, s, p.Get("one"))

	assert.Error(t, p.Add(s), "duplicate id must be rejected")

	assert.True(t, p.Remove("one"))
	assert.Nil(t, p.Get("one"))
	assert.False(t, p.Remove("one"), "removing an absent id is tolerated")
}

func TestPoolAddRejectsNonNewSession(t *testing.T) {
	p := NewPool(time.Hour, time.Hour, nil)
	s := newSession("one", time.Minute, true, nil)
	s.bind(&recordingConn{}, ConnectionInfo{})
	require.NoError(t, s.open())

	assert.Error(t, p.Add(s))
}

func TestPoolGCReapsExpiredSessions(t *testing.T) {
	p := NewPool(time.Hour, time.Hour, nil)

	s := newSession("expiring", time.Millisecond, true, nil)
	conn := &recordingConn{}
	s.bind(conn, ConnectionInfo{})
	require.NoError(t, p.Add(s))
	require.NoError(t, s.open())

	time.Sleep(5 * time.Millisecond)
	p.gc()

	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, conn.closed)
}

func TestPoolGCTouchesFreshSessionsWithoutReaping(t *testing.T) {
	p := NewPool(time.Hour, time.Hour, nil)

	s := newSession("fresh", time.Hour, true, nil)
	require.NoError(t, p.Add(s))

	p.gc()

	assert.Equal(t, 1, p.Len())
	assert.NotEqual(t, SessionClosed, s.State())
}

func TestPoolStopDrainsSessions(t *testing.T) {
	p := NewPool(time.Hour, time.Hour, nil)
	s := newSession("one", time.Minute, true, nil)
	conn := &recordingConn{}
	s.bind(conn, ConnectionInfo{})
	require.NoError(t, p.Add(s))

	p.Start()
	p.Stop()

	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, conn.closed)
}
