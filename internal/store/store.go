// Package store defines the transaction archive for the energy engine.
// The in-memory implementation is the working set (the platform is a
// single-instance, in-memory system); PostgreSQL provides an optional
// durable archive and Redis an optional read-through cache layer.
package store

import (
	"context"
	"errors"

	"github.com/nexusgrid/energy-engine/internal/model"
)

// ErrNotFound is returned when a transaction id is unknown.
var ErrNotFound = errors.New("store: transaction not found")

// Store is the transaction archive interface.
type Store interface {
	// InsertTransaction appends an immutable trade record. A duplicate id
	// overwrites the id index (last-write-wins) but still appends to the
	// ordered history; duplicates should not occur given unique id generation.
	InsertTransaction(ctx context.Context, txn *model.Transaction) error

	// GetTransaction retrieves one transaction by id.
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)

	// ListTransactions returns the full ordered history, oldest first.
	ListTransactions(ctx context.Context) ([]model.Transaction, error)

	// TransactionsByParticipant returns the subsequence where the participant
	// is seller or buyer, preserving insertion order.
	TransactionsByParticipant(ctx context.Context, id string) ([]model.Transaction, error)

	// RecentTransactions returns the last n entries in insertion order, or
	// all of them if the history is shorter.
	RecentTransactions(ctx context.Context, n int) ([]model.Transaction, error)
}
