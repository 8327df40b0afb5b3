package sessions

import (
	"sort"
	"sync"
)

// Store is an in-memory registry of live sessions.
type Store struct {
	mu    sync.RWMutex
	items map[string]*Session
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string]*Session)}
}

// PutIfUnder registers sess unless its owner already holds max sessions.
// The count and the insert happen under one lock.
func (s *Store) PutIfUnder(sess *Session, max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, other := range s.items {
		if other.OwnerID == sess.OwnerID {
			n++
		}
	}
	if n >= max {
		return false
	}
	s.items[sess.ID] = sess
	return true
}

// Get returns a session by id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.items[id]
	return sess, ok
}

// Delete removes and returns a session.
func (s *Store) Delete(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if ok {
		delete(s.items, id)
	}
	return sess, ok
}

// List returns all sessions, oldest first.
func (s *Store) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.items))
	for _, sess := range s.items {
		out = append(out, sess)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
