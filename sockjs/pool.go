package sockjs

import (
	"container/heap"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// poolEntry is one slot in the GC heap: a session plus the timestamp of
// the last GC cycle that visited it. The heap is ordered by that
// last-visit time, least recently visited first, not "soonest expiry
// first": it lets touch() be
// free (no heap fix-up) at the cost of an O(N) GC pass.
type poolEntry struct {
	session *Session
	cycle   int64 // unix nanoseconds of the GC cycle that last touched this entry
	index   int   // heap.Interface bookkeeping
}

type sessionHeap []*poolEntry

func (h sessionHeap) Len() int           { return len(h) }
func (h sessionHeap) Less(i, j int) bool { return h[i].cycle < h[j].cycle }
func (h sessionHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *sessionHeap) Push(x interface{}) {
	e := x.(*poolEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *sessionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Pool is a time-ordered registry and garbage collector for sessions
// belonging to one Endpoint. It runs a GC tick and a heartbeat tick, each
// on its own dedicated goroutine.
type Pool struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	entries   map[*Session]*poolEntry
	heap      sessionHeap
	stopping  bool

	gcInterval        time.Duration
	heartbeatInterval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup

	log *logrus.Entry
}

// NewPool constructs a Pool. Sessions can be added before Start; the GC
// and heartbeat passes run only once Start has been called.
func NewPool(gcInterval, heartbeatInterval time.Duration, log *logrus.Entry) *Pool {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pool{
		sessions:          make(map[string]*Session),
		entries:           make(map[*Session]*poolEntry),
		gcInterval:        gcInterval,
		heartbeatInterval: heartbeatInterval,
		log:               log.WithField("component", "pool"),
	}
}

// Start begins the GC and heartbeat tickers.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.stopCh != nil {
		p.mu.Unlock()
		return
	}
	p.stopping = false
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	p.wg.Add(2)
	go p.runTicker(stopCh, p.gcInterval, p.gc)
	go p.runTicker(stopCh, p.heartbeatInterval, p.heartbeat)
}

func (p *Pool) runTicker(stopCh chan struct{}, interval time.Duration, fn func()) {
	defer p.wg.Done()
	if interval <= 0 {
		<-stopCh
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-t.C:
			fn()
		}
	}
}

// Stop drains all sessions (closing each with code 3000, "Go away!")
// and stops the tickers. Safe to call once; subsequent calls are no-ops.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	stopCh := p.stopCh
	p.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	p.wg.Wait()

	p.drain()
}

func (p *Pool) drain() {
	p.mu.Lock()
	entries := p.heap
	p.heap = nil
	p.sessions = make(map[string]*Session)
	p.entries = make(map[*Session]*poolEntry)
	p.mu.Unlock()

	for _, e := range entries {
		if e.session.State() != SessionClosed {
			e.session.Close(CloseGoAway, closeReasonGoAway)
		}
	}
}

// Add registers a NEW session. Rejects sessions that are not NEW or
// whose id already exists.
func (p *Pool) Add(s *Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopping {
		return newSessionError("sockjs: pool is stopping")
	}
	if _, exists := p.sessions[s.id]; exists {
		return newSessionError("sockjs: session id already registered: " + s.id)
	}
	if s.State() != SessionNew {
		return newSessionError("sockjs: session has already left the NEW state")
	}

	now := time.Now().UnixNano()
	e := &poolEntry{session: s, cycle: now}
	p.sessions[s.id] = s
	p.entries[s] = e
	heap.Push(&p.heap, e)
	return nil
}

// Get returns the session registered under id, or nil.
func (p *Pool) Get(id string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[id]
}

// Remove unregisters and closes the session with the given id. Tolerant
// of absent ids: returns false without error in that case.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	s, ok := p.sessions[id]
	if !ok {
		p.mu.Unlock()
		return false
	}
	delete(p.sessions, id)
	e, ok := p.entries[s]
	if ok {
		delete(p.entries, s)
		if e.index >= 0 {
			heap.Remove(&p.heap, e.index)
		}
	}
	p.mu.Unlock()

	if s.State() != SessionClosed {
		s.Close(CloseGoAway, closeReasonGoAway)
	}
	return true
}

// All returns a snapshot of every currently registered session.
func (p *Pool) All() []*Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		out = append(out, s)
	}
	return out
}

// Len reports the number of registered sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// gc runs one pass: every session is visited at most once per pass, in
// the order it was last visited; a session whose cycle equals the
// current pass's timestamp has already been considered this pass,
// terminating the loop without needing to rebuild the heap.
func (p *Pool) gc() {
	now := time.Now()
	nowNano := now.UnixNano()

	var expired []*Session

	p.mu.Lock()
	for p.heap.Len() > 0 {
		top := p.heap[0]
		if top.cycle >= nowNano {
			break
		}

		e := heap.Pop(&p.heap).(*poolEntry)

		if e.session.hasExpired() {
			delete(p.sessions, e.session.id)
			delete(p.entries, e.session)
			expired = append(expired, e.session)
			continue
		}

		e.cycle = nowNano
		heap.Push(&p.heap, e)
	}
	p.mu.Unlock()

	// Closing sessions performs application callbacks and transport
	// writes; it happens outside the lock so the critical section stays
	// plain map bookkeeping.
	for _, s := range expired {
		p.log.WithField("session_id", s.id).Debug("session reaped by gc")
		if s.State() != SessionClosed {
			s.Close(CloseGoAway, closeReasonGoAway)
		}
	}
}

// heartbeat sends a heartbeat frame to every registered session.
func (p *Pool) heartbeat() {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.mu.Unlock()

	for _, s := range sessions {
		s.sendHeartbeat()
	}
}
