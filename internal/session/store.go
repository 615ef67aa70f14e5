package session

import (
	"container/list"
	"context"
	"io"
	"log"
	"sync"
	"time"
)

const (
	DefaultMaxContexts = 20
	DefaultSweepEvery  = 10
)

// Config bounds the store.
type Config struct {
	// MaxContexts is the hard size bound; least-recently-used entries are
	// evicted first. This is the primary policy and is always on.
	MaxContexts int
	// MaxAge enables the age sweep when positive. Entries not touched within
	// MaxAge are removed before the size bound is enforced.
	MaxAge time.Duration
	// SweepEvery runs the age sweep on every n-th Put.
	SweepEvery int
}

type entry struct {
	id      string
	ctx     *Context
	touched time.Time
}

// Store is a bounded, access-ordered map from session id to Context. It is
// safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List // front = most recently used
	cfg    Config
	puts   int
	now    func() time.Time
	logger *log.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for eviction events.
func WithLogger(logger *log.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store. Non-positive bounds fall back to the defaults.
func NewStore(cfg Config, opts ...StoreOption) *Store {
	if cfg.MaxContexts <= 0 {
		cfg.MaxContexts = DefaultMaxContexts
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = DefaultSweepEvery
	}
	if cfg.MaxAge < 0 {
		cfg.MaxAge = 0
	}
	s := &Store{
		items:  make(map[string]*list.Element),
		order:  list.New(),
		cfg:    cfg,
		now:    time.Now,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective bounds.
func (s *Store) Config() Config { return s.cfg }

// Put inserts or overwrites the context for id and marks it most recently
// used. Passing a nil context is a programmer error.
func (s *Store) Put(id string, c *Context) {
	if c == nil {
		panic("session: Put with nil context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.puts++
	if s.cfg.MaxAge > 0 && s.puts%s.cfg.SweepEvery == 0 {
		s.sweepLocked(now, s.cfg.MaxAge)
	}

	if el, ok := s.items[id]; ok {
		e := el.Value.(*entry)
		e.ctx = c
		e.touched = now
		s.order.MoveToFront(el)
	} else {
		s.items[id] = s.order.PushFront(&entry{id: id, ctx: c, touched: now})
	}

	for s.order.Len() > s.cfg.MaxContexts {
		oldest := s.order.Back()
		e := oldest.Value.(*entry)
		s.removeLocked(oldest)
		s.logger.Printf("event=session_evicted reason=size session=%s kind=%s", e.id, e.ctx.Kind())
		recordEviction(context.Background(), "size", 1)
	}
	recordSize(context.Background(), s.order.Len())
}

// GetAndTouch returns the context for id and marks it most recently used.
// A missing id is reported with ok=false and is not an error.
func (s *Store) GetAndTouch(id string) (*Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	e.touched = s.now()
	s.order.MoveToFront(el)
	return e.ctx, true
}

// Remove deletes the context for id and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[id]
	if !ok {
		return false
	}
	s.removeLocked(el)
	recordSize(context.Background(), s.order.Len())
	return true
}

// Len returns the number of stored contexts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// SweepExpired removes every context not touched within maxAge of now and
// returns how many were removed. A non-positive maxAge removes nothing.
func (s *Store) SweepExpired(now time.Time, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.sweepLocked(now, maxAge)
	if n > 0 {
		recordSize(context.Background(), s.order.Len())
	}
	return n
}

// sweepLocked walks from the least recently used end and stops at the first
// entry that is still fresh; recency order implies every later entry is too.
func (s *Store) sweepLocked(now time.Time, maxAge time.Duration) int {
	removed := 0
	for el := s.order.Back(); el != nil; {
		e := el.Value.(*entry)
		if now.Sub(e.touched) <= maxAge {
			break
		}
		prev := el.Prev()
		s.removeLocked(el)
		removed++
		el = prev
	}
	if removed > 0 {
		s.logger.Printf("event=session_evicted reason=age removed=%d", removed)
		recordEviction(context.Background(), "age", removed)
	}
	return removed
}

func (s *Store) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(s.items, e.id)
	s.order.Remove(el)
}
