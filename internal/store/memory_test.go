package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/model"
	"github.com/nexusgrid/energy-engine/internal/store"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func sample(id string, energy float64) *model.Transaction {
	return &model.Transaction{
		ID:           id,
		SellerID:     "S",
		BuyerID:      "B",
		EnergyAmount: d(energy),
		PricePerUnit: d(0.12),
		TotalPrice:   d(energy).Mul(d(0.12)),
		Timestamp:    time.Now().UTC(),
	}
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	if err := s.InsertTransaction(ctx, sample("t1", 10)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetTransaction(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "t1" || !got.EnergyAmount.Equal(d(10)) {
		t.Errorf("unexpected transaction %+v", got)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := store.NewMemoryStore()
	if _, err := s.GetTransaction(context.Background(), "nope"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	orig := sample("t1", 10)
	s.InsertTransaction(ctx, orig)
	orig.EnergyAmount = d(999) // caller mutation must not leak in

	got, _ := s.GetTransaction(ctx, "t1")
	if !got.EnergyAmount.Equal(d(10)) {
		t.Errorf("stored transaction was mutated: %s", got.EnergyAmount)
	}

	got.EnergyAmount = d(777) // returned copy mutation must not leak back
	again, _ := s.GetTransaction(ctx, "t1")
	if !again.EnergyAmount.Equal(d(10)) {
		t.Errorf("returned copy leaked back into the store: %s", again.EnergyAmount)
	}
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	s.InsertTransaction(ctx, sample("t1", 10))
	s.InsertTransaction(ctx, sample("t1", 20))

	// Lookup sees the latest write; the history keeps both entries.
	got, _ := s.GetTransaction(ctx, "t1")
	if !got.EnergyAmount.Equal(d(20)) {
		t.Errorf("expected latest write, got %s", got.EnergyAmount)
	}
	all, _ := s.ListTransactions(ctx)
	if len(all) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(all))
	}
}

func TestMemoryStore_RecentTransactions(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		s.InsertTransaction(ctx, sample(id, 10))
	}

	got, _ := s.RecentTransactions(ctx, 2)
	if len(got) != 2 || got[0].ID != "t2" || got[1].ID != "t3" {
		t.Errorf("expected [t2 t3], got %v", got)
	}

	got, _ = s.RecentTransactions(ctx, 10)
	if len(got) != 3 {
		t.Errorf("expected full history, got %d entries", len(got))
	}
}

func TestMemoryStore_TransactionsByParticipant(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	s.InsertTransaction(ctx, &model.Transaction{ID: "t1", SellerID: "A", BuyerID: "B"})
	s.InsertTransaction(ctx, &model.Transaction{ID: "t2", SellerID: "C", BuyerID: "A"})
	s.InsertTransaction(ctx, &model.Transaction{ID: "t3", SellerID: "C", BuyerID: "D"})

	got, _ := s.TransactionsByParticipant(ctx, "A")
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t2" {
		t.Errorf("expected [t1 t2], got %v", got)
	}
}
