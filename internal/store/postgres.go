package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nexusgrid/energy-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as a durable archive.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed archive.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transactions (id, seller_id, buyer_id, energy_amount, price_per_unit, total_price, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   seller_id = EXCLUDED.seller_id,
		   buyer_id = EXCLUDED.buyer_id,
		   energy_amount = EXCLUDED.energy_amount,
		   price_per_unit = EXCLUDED.price_per_unit,
		   total_price = EXCLUDED.total_price,
		   created_at = EXCLUDED.created_at`,
		txn.ID, txn.SellerID, txn.BuyerID,
		txn.EnergyAmount.String(), txn.PricePerUnit.String(), txn.TotalPrice.String(),
		txn.Timestamp,
	)
	return err
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	var txn model.Transaction
	var energy, price, total string

	err := s.pool.QueryRow(ctx,
		`SELECT id, seller_id, buyer_id,
		        energy_amount::TEXT, price_per_unit::TEXT, total_price::TEXT,
		        created_at
		 FROM transactions WHERE id = $1`, id).
		Scan(&txn.ID, &txn.SellerID, &txn.BuyerID,
			&energy, &price, &total,
			&txn.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", id, err)
	}

	txn.EnergyAmount, _ = decimal.NewFromString(energy)
	txn.PricePerUnit, _ = decimal.NewFromString(price)
	txn.TotalPrice, _ = decimal.NewFromString(total)

	return &txn, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, seller_id, buyer_id,
		        energy_amount::TEXT, price_per_unit::TEXT, total_price::TEXT,
		        created_at
		 FROM transactions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *PostgresStore) TransactionsByParticipant(ctx context.Context, id string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, seller_id, buyer_id,
		        energy_amount::TEXT, price_per_unit::TEXT, total_price::TEXT,
		        created_at
		 FROM transactions
		 WHERE seller_id = $1 OR buyer_id = $1
		 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *PostgresStore) RecentTransactions(ctx context.Context, n int) ([]model.Transaction, error) {
	if n <= 0 {
		return s.ListTransactions(ctx)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, seller_id, buyer_id, energy_amount, price_per_unit, total_price, created_at
		 FROM (
		   SELECT id, seller_id, buyer_id,
		          energy_amount::TEXT, price_per_unit::TEXT, total_price::TEXT,
		          created_at
		   FROM transactions ORDER BY created_at DESC, id DESC LIMIT $1
		 ) latest
		 ORDER BY created_at, id`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// pgxRows is the subset of pgx row behavior the scanners need.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows pgxRows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var energy, price, total string

		if err := rows.Scan(&txn.ID, &txn.SellerID, &txn.BuyerID,
			&energy, &price, &total, &txn.Timestamp); err != nil {
			return nil, err
		}

		txn.EnergyAmount, _ = decimal.NewFromString(energy)
		txn.PricePerUnit, _ = decimal.NewFromString(price)
		txn.TotalPrice, _ = decimal.NewFromString(total)

		txns = append(txns, txn)
	}
	return txns, rows.Err()
}
