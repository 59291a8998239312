package store

import (
	"context"
	"sync"

	"github.com/nexusgrid/energy-engine/internal/model"
)

// MemoryStore implements Store with in-memory structures. It is the default
// working set: the platform does not persist across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*model.Transaction
	history []model.Transaction
}

// NewMemoryStore creates a new in-memory archive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*model.Transaction),
	}
}

func (s *MemoryStore) InsertTransaction(_ context.Context, txn *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	copy := *txn
	s.byID[txn.ID] = &copy
	s.history = append(s.history, copy)
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *txn
	return &copy, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Transaction, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *MemoryStore) TransactionsByParticipant(_ context.Context, id string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Transaction
	for _, txn := range s.history {
		if txn.SellerID == id || txn.BuyerID == id {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecentTransactions(_ context.Context, n int) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n >= len(s.history) {
		out := make([]model.Transaction, len(s.history))
		copy(out, s.history)
		return out, nil
	}
	out := make([]model.Transaction, n)
	copy(out, s.history[len(s.history)-n:])
	return out, nil
}
