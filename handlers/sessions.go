package handlers

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const maxSessions = 1024

// session is one interactive message owned by a single user.
type session[T any] struct {
	ID      string
	OwnerID string

	mu    sync.Mutex
	done  bool
	State T
}

// Lock serialises button presses on the session.
func (s *session[T]) Lock()   { s.mu.Lock() }
func (s *session[T]) Unlock() { s.mu.Unlock() }

// Done reports whether the session finished or timed out. Callers hold the
// lock.
func (s *session[T]) Done() bool { return s.done }

// sessionStore keeps live sessions until they finish or their TTL runs
// out. onTimeout runs in its own goroutine for sessions that expire
// unfinished. A full store refuses new sessions instead of evicting a live
// one.
type sessionStore[T any] struct {
	prefix string
	size   int

	mu  sync.Mutex
	lru *expirable.LRU[string, *session[T]]
}

func newSessionStore[T any](prefix string, ttl time.Duration, onTimeout func(*session[T])) *sessionStore[T] {
	return newBoundedSessionStore(prefix, maxSessions, ttl, onTimeout)
}

func newBoundedSessionStore[T any](prefix string, size int, ttl time.Duration, onTimeout func(*session[T])) *sessionStore[T] {
	evict := func(_ string, s *session[T]) {
		s.mu.Lock()
		expired := !s.done
		s.done = true
		s.mu.Unlock()
		if expired && onTimeout != nil {
			go onTimeout(s)
		}
	}
	return &sessionStore[T]{
		prefix: prefix,
		size:   size,
		lru:    expirable.NewLRU[string, *session[T]](size, evict, ttl),
	}
}

// Start registers a new session. It returns false when the store is full.
func (st *sessionStore[T]) Start(ownerID string, state T) (*session[T], bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.lru.Len() >= st.size {
		return nil, false
	}
	s := &session[T]{ID: uuid.NewString(), OwnerID: ownerID, State: state}
	st.lru.Add(s.ID, s)
	return s, true
}

// Get returns a live session.
func (st *sessionStore[T]) Get(id string) (*session[T], bool) {
	return st.lru.Peek(id)
}

// Finish marks s done, so eviction no longer counts as a timeout, and drops
// it. Callers hold the lock.
func (st *sessionStore[T]) Finish(s *session[T]) {
	s.done = true
	go st.lru.Remove(s.ID)
}

// Len counts live sessions.
func (st *sessionStore[T]) Len() int {
	return st.lru.Len()
}

// CustomID builds a component id routed back to this store.
func (st *sessionStore[T]) CustomID(s *session[T], action string) string {
	return st.prefix + ":" + s.ID + ":" + action
}

// parseCustomID splits "prefix:id:action".
func parseCustomID(customID string) (prefix, id, action string, ok bool) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
