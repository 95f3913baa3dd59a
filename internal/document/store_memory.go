package document

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps the default deployment dependency-free and is the
// reference implementation for the mutation-serialization contract: every
// mutation happens under the table lock, so a read observes either the
// pre- or post-state of a Set, never a mix.
type InMemoryStore struct {
	mu        sync.RWMutex
	documents map[string]Document
	clock     func() time.Time
}

// InMemoryStoreOption configures an InMemoryStore.
type InMemoryStoreOption func(*InMemoryStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) InMemoryStoreOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemoryStore(opts ...InMemoryStoreOption) *InMemoryStore {
	s := &InMemoryStore{
		documents: make(map[string]Document),
		clock:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *InMemoryStore) Get(_ context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.documents[id]; ok {
		return doc, nil
	}
	return Document{}, ErrNotFound
}

func (s *InMemoryStore) Set(_ context.Context, collection, key string, value json.RawMessage, owner string) (Document, error) {
	id := DocumentID(collection, key)

	// Copy so the caller's buffer cannot mutate stored state later.
	stored := make(json.RawMessage, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		doc = Document{
			ID:         id,
			Collection: collection,
			Key:        key,
			CreatedAt:  s.clock().UTC(),
		}
	}
	doc.Value = stored
	doc.Owner = owner
	s.documents[id] = doc
	return doc, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0)
	for _, doc := range s.documents {
		if doc.Collection == collection {
			out = append(out, doc)
		}
	}
	sortDocuments(out)
	return out, nil
}

// sortDocuments orders a listing by creation time, then ID. All stores use
// the same order so query results do not depend on the backend.
func sortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}
