package wbot

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DFN-master/izing-main/internal/logging"
)

// ErrNotInitialized signals a lookup for a session with no live handle.
// Callers are expected to branch on it, not treat it as unexpected failure.
var ErrNotInitialized = errors.New("ERR_WAPP_NOT_INITIALIZED")

// Store is the process-wide registry of live session handles. The mutex
// guards the existence check together with insert and delete, so at most one
// handle exists per session identifier even when lifecycles run concurrently.
type Store struct {
	mu       sync.Mutex
	sessions map[int]*Session
	log      zerolog.Logger
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int]*Session),
		log:      logging.ForComponent("wbot.store"),
	}
}

// Register inserts the handle unless one already exists for its identifier.
// A duplicate register is a no-op: the live handle is never replaced.
func (s *Store) Register(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return
	}
	s.sessions[sess.ID] = sess
}

// Lookup returns the handle for an identifier, or ErrNotInitialized.
func (s *Store) Lookup(id int) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotInitialized
	}
	return sess, nil
}

// Remove deletes the handle and tears it down (monitor stopped, client
// destroyed). Teardown errors are logged and swallowed: removal always
// succeeds from the caller's perspective. Removing an absent identifier is
// a no-op.
func (s *Store) Remove(id int) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := sess.teardown(); err != nil {
		s.log.Error().Err(err).Int("sessionId", id).Msg("session teardown failed")
	}
}

// List returns the live handles ordered by identifier.
func (s *Store) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
