package wbot

import (
	"sync"
)

// Session is a live supervised connection handle: the externally-owned
// client plus supervisor-attached metadata.
type Session struct {
	// ID is the session identifier, attached once and immutable afterward.
	ID int
	// TenantID scopes events and work items for this session.
	TenantID int
	// Client is the underlying connection.
	Client Client

	mu      sync.Mutex
	status  string
	monitor *Monitor
}

// Status reports the last lifecycle status observed for this session.
// A handle can be registered before it is ready (during pairing), so lookup
// callers use this to tell "registered, pairing" from "ready".
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// attachMonitor claims the session's single monitor slot. Returns false if a
// monitor is already attached; the caller must then discard its monitor
// without starting it.
func (s *Session) attachMonitor(m *Monitor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor != nil {
		return false
	}
	s.monitor = m
	return true
}

// teardown stops the liveness monitor, if any, and terminates the client.
func (s *Session) teardown() error {
	s.mu.Lock()
	m := s.monitor
	s.monitor = nil
	s.mu.Unlock()

	if m != nil {
		m.Stop()
	}
	return s.Client.Destroy()
}
