// Package session holds the identifier stamped on outgoing requests.
package session

import "sync/atomic"

// Session is safe for concurrent use. Reads never block; a request built while
// Clear runs may still carry the previous id.
type Session struct {
	userID atomic.Pointer[string]
}

func New() *Session {
	return &Session{}
}

// UserID returns the current id and whether one is set.
func (s *Session) UserID() (string, bool) {
	p := s.userID.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// SetUserID replaces the current id. An empty id clears the session.
func (s *Session) SetUserID(id string) {
	if id == "" {
		s.Clear()
		return
	}
	s.userID.Store(&id)
}

func (s *Session) Clear() {
	s.userID.Store(nil)
}

func (s *Session) IsAuthenticated() bool {
	return s.userID.Load() != nil
}
