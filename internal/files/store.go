package files

import (
	"context"
	"sort"
	"sync"

	dErrors "alphabase/pkg/domain-errors"
)

// ErrFileNotFound keeps metadata lookup misses consistent.
var ErrFileNotFound = dErrors.New(dErrors.CodeNotFound, "file not found")

// Store persists file metadata.
type Store interface {
	Create(ctx context.Context, file File) error
	Get(ctx context.Context, id string) (File, error)
	ListByOwner(ctx context.Context, owner string) ([]File, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryStore is the default metadata store.
type InMemoryStore struct {
	mu    sync.RWMutex
	files map[string]File
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{files: make(map[string]File)}
}

func (s *InMemoryStore) Create(_ context.Context, file File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file.ID] = file
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if file, ok := s.files[id]; ok {
		return file, nil
	}
	return File{}, ErrFileNotFound
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner string) ([]File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]File, 0)
	for _, file := range s.files {
		if file.Owner == owner {
			out = append(out, file)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return ErrFileNotFound
	}
	delete(s.files, id)
	return nil
}
