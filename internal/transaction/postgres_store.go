package transaction

import (
	"context"
	"database/sql"
	"fmt"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Insert(ctx context.Context, tx *Transaction) error {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO transactions (vendor_id, vendor_name, department, amount, location, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, tx.VendorID, tx.VendorName, tx.Department, tx.Amount, tx.Location, tx.Date).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id int64) (*Transaction, error) {
	tx := &Transaction{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, vendor_id, vendor_name, department, amount, location, transaction_date, created_at
		FROM transactions WHERE id = $1
	`, id).Scan(&tx.ID, &tx.VendorID, &tx.VendorName, &tx.Department, &tx.Amount, &tx.Location, &tx.Date, &tx.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (p *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}
