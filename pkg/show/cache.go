// Package show implements the paginated show-session cache: a TTL- and
// refcount-protected set of open query cursors, keyed by a monotonic
// ShowID, with per-ShowType handler tables supplying the actual metadata
// and row-fetching logic. It is the Go rendition of the original core's
// mndShow.c, built the way the teacher builds its own background-sweep
// services (pkg/events.Broker's Start/Stop-with-goroutine shape) rather
// than around a C cache library.
package show

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chronodb/nodecore/pkg/metrics"
	"github.com/chronodb/nodecore/pkg/types"
)

// Session is one open show cursor.
type Session struct {
	ID      uint64
	Type    types.ShowType
	Columns []types.Column
	Iter    interface{} // opaque handler-owned cursor state

	NumOfRows  int
	NumOfReads int

	mu        sync.Mutex
	refCount  int32
	expiresAt time.Time
}

func (s *Session) touch(keepFor time.Duration) {
	s.mu.Lock()
	s.expiresAt = time.Now().Add(keepFor)
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.expiresAt) && atomic.LoadInt32(&s.refCount) == 0
}

// Handlers is the per-ShowType function table, the Go analogue of
// mndAddShowMetaHandle/mndAddShowRetrieveHandle/mndAddShowFreeIterHandle.
type Handlers struct {
	// Meta opens a session for req, returning the schema and an opaque
	// iterator the Retrieve/FreeIter callbacks will receive back.
	Meta func(req types.ShowReq) (columns []types.Column, iter interface{}, err error)

	// Retrieve fetches up to rowsToRead rows, returning the packed row
	// bytes and how many rows were actually produced. A retrieve that
	// exhausts the iterator should leave it in a state where the next
	// call returns rowsRead=0.
	Retrieve func(iter interface{}, rowsToRead int) (data []byte, rowsRead int, err error)

	// FreeIter releases iterator resources. May be nil if the handler
	// has nothing to release.
	FreeIter func(iter interface{})
}

// Cache holds every open show session for one node.
type Cache struct {
	keepTime time.Duration

	mu       sync.Mutex
	sessions map[uint64]*Session
	handlers map[types.ShowType]*Handlers
	nextID   uint64

	stopCh chan struct{}
	doneCh chan struct{}

	onEvict func(id uint64)
}

// PageSize is the maximum rows a single Retrieve call produces, matching
// SHOW_STEP_SIZE in the original core.
const PageSize = 100

// pagePad mirrors the SHOW_STEP_SIZE pad mndProcessRetrieveReq adds to its
// allocation. ProcessRetrieve allocates no response buffer of its own (each
// Retrieve handler returns its page bytes), so this pad is not applied
// anywhere.
const pagePad = PageSize

// New builds a Cache whose sessions are kept for keepTime after their last
// reference is released.
func New(keepTime time.Duration) *Cache {
	return &Cache{
		keepTime: keepTime,
		sessions: make(map[uint64]*Session),
		handlers: make(map[types.ShowType]*Handlers),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Register installs the handler table for showType. Must happen before
// Start; not safe for concurrent use with ProcessShow.
func (c *Cache) Register(showType types.ShowType, h *Handlers) {
	c.handlers[showType] = h
}

// OnEvict installs a callback invoked with a session's ID whenever the TTL
// sweep (not a client-driven force-remove) evicts it. Used to publish a
// events.EventShowEvicted without this package importing pkg/events.
func (c *Cache) OnEvict(fn func(id uint64)) {
	c.onEvict = fn
}

// Start begins the background eviction sweep.
func (c *Cache) Start() {
	go c.sweep()
}

// Stop halts the eviction sweep and blocks until it has exited.
func (c *Cache) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

const sweepInterval = time.Second

func (c *Cache) sweep() {
	defer close(c.doneCh)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.evictExpired(now)
		}
	}
}

func (c *Cache) evictExpired(now time.Time) {
	c.mu.Lock()
	var expired []*Session
	for id, s := range c.sessions {
		if s.expired(now) {
			expired = append(expired, s)
			delete(c.sessions, id)
		}
	}
	c.mu.Unlock()

	for _, s := range expired {
		c.freeSession(s)
		metrics.ShowSessionsEvictedTotal.Inc()
		if c.onEvict != nil {
			c.onEvict(s.ID)
		}
	}
}

func (c *Cache) freeSession(s *Session) {
	if h, ok := c.handlers[s.Type]; ok && h.FreeIter != nil {
		h.FreeIter(s.Iter)
	}
}

// nextShowID returns a monotonically increasing id, skipping 0 the way
// mndCreateShowObj's atomic_add_fetch_64 does (a showId of 0 is never
// valid, so an increment that lands on it is advanced once more).
func (c *Cache) nextShowID() uint64 {
	id := atomic.AddUint64(&c.nextID, 1)
	if id == 0 {
		id = atomic.AddUint64(&c.nextID, 1)
	}
	return id
}

// acquire looks up id and takes a reference, failing with
// ErrInvalidShowObject if the session is unknown (already evicted or never
// existed) — mndAcquireShowObj's "already destroyed" case.
func (c *Cache) acquire(id uint64) (*Session, error) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	c.mu.Unlock()
	if !ok {
		return nil, types.NewError(types.ErrInvalidShowObject, "show session already destroyed")
	}
	atomic.AddInt32(&s.refCount, 1)
	return s, nil
}

// release gives back a reference taken by acquire. forceRemove, when true,
// evicts the session immediately regardless of remaining TTL — honoring
// the intent documented (but defeated by a stray `forceRemove = 0;`) in
// the original mndReleaseShowObj. See DESIGN.md for this decision.
func (c *Cache) release(s *Session, forceRemove bool) {
	remaining := atomic.AddInt32(&s.refCount, -1)

	if forceRemove {
		c.mu.Lock()
		cur, ok := c.sessions[s.ID]
		won := ok && cur == s
		if won {
			delete(c.sessions, s.ID)
		}
		c.mu.Unlock()
		if won {
			c.freeSession(s)
		}
		return
	}

	if remaining == 0 {
		s.touch(c.keepTime)
	}
}

// Len reports how many sessions are currently open, for tests and
// diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
