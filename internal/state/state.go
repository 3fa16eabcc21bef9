// Package state holds the per-session application state shared by the views.
package state

import (
	"sync"

	"taskdesk/internal/domain"
)

// View names a top-level section of the console.
type View string

const (
	ViewTasks View = "tasks"
	ViewUsers View = "users"
)

// Store keeps the active-user roster and the selected view. The roster is
// replaced wholesale and handed out as a copy, so readers never observe a
// partially written slice.
type Store struct {
	mu    sync.RWMutex
	users []domain.User
	view  View
}

func New() *Store {
	return &Store{view: ViewTasks}
}

func (s *Store) SetUsers(users []domain.User) {
	snapshot := append([]domain.User(nil), users...)
	s.mu.Lock()
	s.users = snapshot
	s.mu.Unlock()
}

// Users returns a copy of the current roster.
func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.User(nil), s.users...)
}

func (s *Store) SetCurrentView(v View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

func (s *Store) CurrentView() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}
