package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nexusgrid/energy-engine/internal/model"
)

// CachedStore wraps a primary Store with a Redis read-through cache. Writes
// go to the primary and invalidate affected keys; reads check Redis first
// then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary archive.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := s.primary.InsertTransaction(ctx, txn); err != nil {
		return err
	}
	s.cacheTransaction(ctx, txn)
	// Invalidate the per-participant lists touched by this trade.
	s.rdb.Del(ctx, participantTxnsKey(txn.SellerID), participantTxnsKey(txn.BuyerID))
	return nil
}

func (s *CachedStore) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	data, err := s.rdb.Get(ctx, transactionKey(id)).Bytes()
	if err == nil {
		var txn model.Transaction
		if json.Unmarshal(data, &txn) == nil {
			return &txn, nil
		}
	}

	txn, err := s.primary.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheTransaction(ctx, txn)
	return txn, nil
}

func (s *CachedStore) TransactionsByParticipant(ctx context.Context, id string) ([]model.Transaction, error) {
	data, err := s.rdb.Get(ctx, participantTxnsKey(id)).Bytes()
	if err == nil {
		var txns []model.Transaction
		if json.Unmarshal(data, &txns) == nil {
			return txns, nil
		}
	}

	txns, err := s.primary.TransactionsByParticipant(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(txns); err == nil {
		s.rdb.Set(ctx, participantTxnsKey(id), data, s.ttl)
	}
	return txns, nil
}

// --- Passthrough (not cached: full history scans) ---

func (s *CachedStore) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.primary.ListTransactions(ctx)
}

func (s *CachedStore) RecentTransactions(ctx context.Context, n int) ([]model.Transaction, error) {
	return s.primary.RecentTransactions(ctx, n)
}

// --- Cache helpers ---

func (s *CachedStore) cacheTransaction(ctx context.Context, txn *model.Transaction) {
	if data, err := json.Marshal(txn); err == nil {
		s.rdb.Set(ctx, transactionKey(txn.ID), data, s.ttl)
	}
}

func transactionKey(id string) string     { return fmt.Sprintf("txn:%s", id) }
func participantTxnsKey(id string) string { return fmt.Sprintf("txns:participant:%s", id) }
