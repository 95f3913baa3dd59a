package auth

import (
	"context"
	"strings"
	"sync"

	dErrors "alphabase/pkg/domain-errors"
)

// InMemoryStore is the default user store for single-node deployments.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]User)}
}

func (s *InMemoryStore) Create(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Username]; exists {
		return dErrors.New(dErrors.CodeConflict, "username already exists")
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return dErrors.New(dErrors.CodeConflict, "email already registered")
		}
	}
	s.users[user.Username] = user
	return nil
}

func (s *InMemoryStore) GetByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[username]; ok {
		return user, nil
	}
	return User{}, ErrUserNotFound
}

func (s *InMemoryStore) EmailTaken(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}
