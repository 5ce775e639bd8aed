package state

import (
	"errors"
	"sync"
)

var (
	// ErrDuplicateSession is returned by Start when the chat already has a session.
	ErrDuplicateSession = errors.New("state: session already active for chat")
	// ErrNoSession is returned by With when the chat has no session.
	ErrNoSession = errors.New("state: no active session for chat")
)

const shardCount = 32

type entry[S any] struct {
	mu      sync.Mutex
	sess    S
	removed bool
}

type shard[S any] struct {
	mu      sync.RWMutex
	entries map[int64]*entry[S]
}

// Store maps a chat id to at most one session. Chats are spread over shards
// and each session carries its own mutex, so unrelated chats never wait on
// each other.
type Store[S any] struct {
	shards [shardCount]shard[S]
}

// NewStore constructs an empty in-memory Store.
func NewStore[S any]() *Store[S] {
	s := &Store[S]{}
	for i := range s.shards {
		s.shards[i].entries = make(map[int64]*entry[S])
	}
	return s
}

func (s *Store[S]) shardFor(chatID int64) *shard[S] {
	u := uint64(chatID)
	return &s.shards[u%shardCount]
}

func (s *Store[S]) lookup(chatID int64) *entry[S] {
	sh := s.shardFor(chatID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.entries[chatID]
}

// Start registers a new session built by init. An active session is never
// replaced: ErrDuplicateSession is returned and the existing one is untouched.
func (s *Store[S]) Start(chatID int64, init func() S) (S, error) {
	sh := s.shardFor(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.entries[chatID]; ok {
		var zero S
		return zero, ErrDuplicateSession
	}
	e := &entry[S]{sess: init()}
	sh.entries[chatID] = e
	return e.sess, nil
}

// Get returns a snapshot of the chat's session.
func (s *Store[S]) Get(chatID int64) (S, bool) {
	e := s.lookup(chatID)
	if e == nil {
		var zero S
		return zero, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		var zero S
		return zero, false
	}
	return e.sess, true
}

// Has reports whether the chat has an active session.
func (s *Store[S]) Has(chatID int64) bool {
	_, ok := s.Get(chatID)
	return ok
}

// With runs fn against the chat's session while holding that chat's
// exclusivity. fn must not call Remove/RemoveIf for the same chat, and must
// not block on external collaborators.
func (s *Store[S]) With(chatID int64, fn func(*S) error) error {
	e := s.lookup(chatID)
	if e == nil {
		return ErrNoSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return ErrNoSession
	}
	return fn(&e.sess)
}

// Remove deletes the chat's session and returns it.
func (s *Store[S]) Remove(chatID int64) (S, bool) {
	return s.RemoveIf(chatID, nil)
}

// RemoveIf deletes the chat's session only when pred reports true for it.
// A nil predicate always removes.
func (s *Store[S]) RemoveIf(chatID int64, pred func(S) bool) (S, bool) {
	var zero S
	sh := s.shardFor(chatID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[chatID]
	if !ok {
		return zero, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if pred != nil && !pred(e.sess) {
		return zero, false
	}
	delete(sh.entries, chatID)
	e.removed = true
	return e.sess, true
}

// Len reports the number of active sessions.
func (s *Store[S]) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
