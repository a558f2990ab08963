package gate

import (
	"context"
	"sync"
)

// Store persists at most one pending descriptor per key.
type Store interface {
	// Put stores d for key, replacing any previous descriptor.
	Put(ctx context.Context, key Key, d Descriptor) error
	// Get returns the descriptor for key or ErrNoPending.
	Get(ctx context.Context, key Key) (Descriptor, error)
	// Take atomically removes and returns the descriptor for key if its ID
	// is id. It returns ErrNoPending when nothing is stored and
	// ErrStaleDescriptor when a different descriptor is stored.
	Take(ctx context.Context, key Key, id string) (Descriptor, error)
	// Delete removes the descriptor for key, if any.
	Delete(ctx context.Context, key Key) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu sync.Mutex
	m  map[Key]Descriptor
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[Key]Descriptor)}
}

func (s *MemoryStore) Put(_ context.Context, key Key, d Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = d
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key Key) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.m[key]
	if !ok {
		return Descriptor{}, ErrNoPending
	}
	return d, nil
}

func (s *MemoryStore) Take(_ context.Context, key Key, id string) (Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.m[key]
	if !ok {
		return Descriptor{}, ErrNoPending
	}
	if d.ID != id {
		return Descriptor{}, ErrStaleDescriptor
	}
	delete(s.m, key)
	return d, nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
