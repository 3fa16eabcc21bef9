package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdesk/internal/shell"
)

// NewShell builds and initializes the page for a new session.
type NewShell func(ctx context.Context) (*shell.Shell, error)

type session struct {
	// mu serializes the session's events.
	mu       sync.Mutex
	shell    *shell.Shell
	lastSeen time.Time
}

// Sessions maps cookie ids to live pages. A page idle for longer than TTL is
// discarded and the next request starts over.
type Sessions struct {
	TTL time.Duration
	Now func() time.Time

	newShell NewShell
	mu       sync.Mutex
	items    map[string]*session
}

func NewSessions(ttl time.Duration, newShell NewShell) *Sessions {
	return &Sessions{
		TTL:      ttl,
		Now:      time.Now,
		newShell: newShell,
		items:    map[string]*session{},
	}
}

func (s *Sessions) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// acquire returns the live session for id, creating one when id is unknown
// or expired. The returned id differs from the argument for new sessions.
func (s *Sessions) acquire(ctx context.Context, id string) (*session, string, error) {
	now := s.now()
	s.mu.Lock()
	s.sweep(now)
	if sess, ok := s.items[id]; ok && id != "" {
		sess.lastSeen = now
		s.mu.Unlock()
		return sess, id, nil
	}
	s.mu.Unlock()

	sh, err := s.newShell(ctx)
	if err != nil {
		return nil, "", err
	}
	sess := &session{shell: sh, lastSeen: now}
	id = uuid.NewString()
	s.mu.Lock()
	s.items[id] = sess
	s.mu.Unlock()
	return sess, id, nil
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Sessions) sweep(now time.Time) {
	if s.TTL <= 0 {
		return
	}
	for id, sess := range s.items {
		if now.Sub(sess.lastSeen) > s.TTL {
			delete(s.items, id)
		}
	}
}
