// Package session keeps interactive browser sessions in memory.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the browser cookie carrying the session id.
const CookieName = "taskboard_session"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session is a logged-in browser.
type Session struct {
	ID              string
	UserID          string
	UserName        string
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
	UserAgent       string
	IPAddress       string
}

// Store holds sessions in memory. Sessions do not survive a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store issuing sessions valid for ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Store{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session for the user and returns it.
func (s *Store) Create(userID, userName, userAgent, ip string) *Session {
	now := s.now()
	sess := Session{
		ID:              uuid.NewString(),
		UserID:          userID,
		UserName:        userName,
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(s.ttl),
		UserAgent:       userAgent,
		IPAddress:       ip,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return &sess
}

// Get returns a live session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

// Delete ends a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// TTL is the lifetime of new sessions.
func (s *Store) TTL() time.Duration { return s.ttl }

// CleanupExpiredSessions removes expired sessions and reports how many.
func (s *Store) CleanupExpiredSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
