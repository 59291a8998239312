// Package ledger keeps the append-only record of executed trades and feeds
// each one to the market analytics engine exactly once.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/analytics"
	"github.com/nexusgrid/energy-engine/internal/model"
	"github.com/nexusgrid/energy-engine/internal/store"
)

// Ledger records executed trades into the archive and the analytics series.
// The ledger itself holds no state beyond its collaborators; aggregates are
// derived by scanning the ordered history.
type Ledger struct {
	store     store.Store
	analytics *analytics.Engine
}

// New creates a ledger over the given archive and analytics engine.
func New(st store.Store, an *analytics.Engine) *Ledger {
	return &Ledger{store: st, analytics: an}
}

// Record appends the transaction and forwards it to analytics exactly once.
// Ledger size strictly increases by one per successful trade.
func (l *Ledger) Record(ctx context.Context, txn *model.Transaction) error {
	if err := l.store.InsertTransaction(ctx, txn); err != nil {
		return fmt.Errorf("record transaction %s: %w", txn.ID, err)
	}
	l.analytics.RecordSample(txn.EnergyAmount, txn.PricePerUnit, txn.Timestamp)
	return nil
}

// Get retrieves one transaction by id.
func (l *Ledger) Get(ctx context.Context, id string) (*model.Transaction, error) {
	return l.store.GetTransaction(ctx, id)
}

// All returns the full ordered history, oldest first.
func (l *Ledger) All(ctx context.Context) ([]model.Transaction, error) {
	return l.store.ListTransactions(ctx)
}

// ForParticipant returns the trades in which the participant was seller or
// buyer, preserving insertion order.
func (l *Ledger) ForParticipant(ctx context.Context, id string) ([]model.Transaction, error) {
	return l.store.TransactionsByParticipant(ctx, id)
}

// Recent returns the last n entries in insertion order, or all of them if the
// history is shorter.
func (l *Ledger) Recent(ctx context.Context, n int) ([]model.Transaction, error) {
	return l.store.RecentTransactions(ctx, n)
}

// TotalVolume sums energy amounts across the full history.
func (l *Ledger) TotalVolume(ctx context.Context) (decimal.Decimal, error) {
	txns, err := l.store.ListTransactions(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, txn := range txns {
		total = total.Add(txn.EnergyAmount)
	}
	return total, nil
}

// TotalRevenue sums total prices across the full history.
func (l *Ledger) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	txns, err := l.store.ListTransactions(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, txn := range txns {
		total = total.Add(txn.TotalPrice)
	}
	return total, nil
}
