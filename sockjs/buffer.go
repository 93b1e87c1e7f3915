package sockjs

import "sync"

// outBuffer is the per-session queue of already-JSON-encoded message
// payloads awaiting a send transport. It is always accessed with the
// owning session's lock held, so it needs no lock of its own.
type outBuffer struct {
	pending []string
}

func (b *outBuffer) push(encoded string) {
	b.pending = append(b.pending, encoded)
}

func (b *outBuffer) len() int { return len(b.pending) }

// drain returns the buffered payloads and clears the buffer.
func (b *outBuffer) drain() []string {
	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = nil
	return out
}

// messageBuffer is the inbound queue of application-visible messages
// dispatched from a receive-capable transport, pending consumption by
// Session.Recv.
//
// Most applications consume messages via the Conn.OnMessage callback
// invoked synchronously from dispatch, not via Recv/messageBuffer, but
// the buffer exists for callers (and the raw websocket shim) that want
// pull-style consumption instead.
type messageBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []string
	closed bool
}

func newMessageBuffer() *messageBuffer {
	mb := &messageBuffer{}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

func (mb *messageBuffer) push(messages ...string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return ErrSessionNotOpen
	}
	mb.queue = append(mb.queue, messages...)
	mb.cond.Signal()
	return nil
}

// pop blocks until a message is available or the buffer is closed.
func (mb *messageBuffer) pop() (string, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for len(mb.queue) == 0 && !mb.closed {
		mb.cond.Wait()
	}
	if len(mb.queue) == 0 {
		return "", ErrSessionNotOpen
	}
	msg := mb.queue[0]
	mb.queue = mb.queue[1:]
	return msg, nil
}

func (mb *messageBuffer) close() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return
	}
	mb.closed = true
	mb.cond.Broadcast()
}
