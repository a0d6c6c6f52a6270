// internal/ledger/memory.go
package ledger

import (
	"context"
	"sync"

	"github.com/charityrun/runproof/internal/utils"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu         sync.RWMutex
	registered map[string]bool
	entries    []Entry
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{registered: make(map[string]bool)}
}

// Register adds an email to the roster.
func (s *MemoryStore) Register(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[utils.NormalizeEmail(email)] = true
}

func (s *MemoryStore) IsRegistered(ctx context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered[utils.NormalizeEmail(email)], nil
}

func (s *MemoryStore) ListEntries(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
