// Package memory provides an in-process reference.Store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/dataformat/reference"
)

type item struct {
	payload   []byte
	expiresAt time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// Store keeps payloads in a map. Expired entries are dropped when touched.
type Store struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

var _ reference.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		items: make(map[string]item),
		now:   time.Now,
	}
}

// NewWithClock creates an empty Store using now as its time source.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// Put stores payload under handle.
func (s *Store) Put(_ context.Context, handle string, payload []byte, ttl time.Duration) error {
	it := item{payload: append([]byte(nil), payload...)}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[handle] = it
	return nil
}

// Get returns the payload stored under handle.
func (s *Store) Get(_ context.Context, handle string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(handle, false)
}

// Take returns and removes the payload stored under handle.
func (s *Store) Take(_ context.Context, handle string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(handle, true)
}

// Delete removes handle.
func (s *Store) Delete(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, handle)
	return nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for handle, it := range s.items {
		if it.expired(now) {
			delete(s.items, handle)
			continue
		}
		n++
	}
	return n
}

// lookup must be called with mu held.
func (s *Store) lookup(handle string, remove bool) ([]byte, error) {
	it, ok := s.items[handle]
	if !ok {
		return nil, dataformat.ErrNotFound
	}
	if it.expired(s.now()) {
		delete(s.items, handle)
		return nil, dataformat.ErrNotFound
	}
	if remove {
		delete(s.items, handle)
	}
	return append([]byte(nil), it.payload...), nil
}
