package memory

import (
	"context"
	"sync"

	"github.com/bobmcallan/coinfolio/internal/interfaces"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// UserStore implements interfaces.UserStore in memory.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

var _ interfaces.UserStore = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]models.User)}
}

func (s *UserStore) Get(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *UserStore) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *cloneUser(*u)
	return nil
}

func (s *UserStore) FindByShareCode(_ context.Context, code string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ShareCode == code {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func cloneUser(u models.User) *models.User {
	u.SharedPortfolios = append([]string(nil), u.SharedPortfolios...)
	return &u
}
