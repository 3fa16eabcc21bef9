package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"taskdesk/internal/domain"
)

func TestRosterIsSnapshot(t *testing.T) {
	s := New()
	require.Empty(t, s.Users())
	require.Equal(t, ViewTasks, s.CurrentView())

	in := []domain.User{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Ben"}}
	s.SetUsers(in)
	in[0].Name = "changed"

	out := s.Users()
	require.Equal(t, "Ana", out[0].Name)
	out[1].Name = "changed"
	require.Equal(t, "Ben", s.Users()[1].Name)

	s.SetUsers(nil)
	require.Empty(t, s.Users())

	s.SetCurrentView(ViewUsers)
	require.Equal(t, ViewUsers, s.CurrentView())
}

func TestConcurrentReaders(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.SetUsers([]domain.User{{ID: int64(i + 1), Name: "u"}})
		}(i)
		go func() {
			defer wg.Done()
			users := s.Users()
			require.LessOrEqual(t, len(users), 1)
		}()
	}
	wg.Wait()
	require.Len(t, s.Users(), 1)
}
