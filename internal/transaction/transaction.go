// Package transaction defines spending transaction records, their ingestion
// validation, and their storage.
package transaction

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a transaction does not exist.
var ErrNotFound = errors.New("transaction not found")

// UnknownLocation is the sentinel stored when a record omits its location.
const UnknownLocation = "UNKNOWN"

// Transaction is an immutable spending record. The ID is assigned by the
// store and is monotonically increasing.
type Transaction struct {
	ID         int64     `json:"transaction_id"`
	VendorID   string    `json:"vendor_id"`
	VendorName string    `json:"vendor_name"`
	Department string    `json:"department"`
	Amount     float64   `json:"amount"`
	Location   string    `json:"location"`
	Date       time.Time `json:"transaction_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists transactions.
type Store interface {
	Insert(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, id int64) (*Transaction, error)
	Count(ctx context.Context) (int64, error)
}
