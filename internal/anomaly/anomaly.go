// Package anomaly persists per-transaction anomaly results and serves the
// query/aggregation layer that reporting consumers read.
//
// A result exists if and only if its transaction has been scored; committing
// one is the single point where a transaction becomes visible to the anomaly
// query layer, and the commit applies the transaction's baseline deltas in
// the same atomic unit.
package anomaly

import (
	"context"
	"errors"
	"time"

	"github.com/spendwatch/spendwatch/internal/baseline"
	"github.com/spendwatch/spendwatch/internal/pagination"
	"github.com/spendwatch/spendwatch/internal/scoring"
	"github.com/spendwatch/spendwatch/internal/transaction"
)

var (
	// ErrAlreadyAnalyzed is returned when a transaction already has a
	// result. Re-analysis must skip it rather than double-count its amount
	// into the baselines.
	ErrAlreadyAnalyzed = errors.New("transaction already analyzed")

	// ErrNotFound is returned when no result exists for a transaction.
	ErrNotFound = errors.New("anomaly result not found")

	// ErrInconsistentCommit is returned when the result insert and the
	// baseline update could not be applied as one unit. Never ignored: the
	// affected transaction stays unscored and is retried on the next run.
	ErrInconsistentCommit = errors.New("inconsistent commit: result and baseline diverged")
)

// Result is the verdict for one scored transaction. At most one exists per
// transaction.
type Result struct {
	TransactionID int64             `json:"transaction_id"`
	Score         float64           `json:"anomaly_score"`
	RiskLevel     scoring.RiskLevel `json:"risk_level"`
	Reasons       []string          `json:"reason"`
	DetectedAt    time.Time         `json:"detected_at"`
}

// Record is the joined transaction + result view served by the query layer.
type Record struct {
	TransactionID int64             `json:"transaction_id"`
	VendorID      string            `json:"vendor_id"`
	VendorName    string            `json:"vendor_name"`
	Department    string            `json:"department"`
	Amount        float64           `json:"amount"`
	Location      string            `json:"location"`
	Date          time.Time         `json:"transaction_date"`
	Score         float64           `json:"anomaly_score"`
	RiskLevel     scoring.RiskLevel `json:"risk_level"`
	Reasons       []string          `json:"reason"`
	DetectedAt    time.Time         `json:"detected_at"`
}

// ListFilter narrows and pages the anomaly listing. Results are ordered by
// ascending score (lowest confidence of anomaly first), id as tiebreak.
type ListFilter struct {
	Risk     *scoring.RiskLevel
	Location string // exact match; empty means any
	Limit    int
	Cursor   *pagination.Cursor
}

// Overview is the dashboard summary.
type Overview struct {
	TotalTransactions    int64   `json:"totalTransactions"`
	FlaggedTransactions  int64   `json:"flaggedTransactions"`
	HighRiskTransactions int64   `json:"highRiskTransactions"`
	AmountAtRisk         float64 `json:"amountAtRisk"`
}

// VendorSummary ranks a vendor by flagged activity.
type VendorSummary struct {
	VendorID      string  `json:"vendor_id"`
	VendorName    string  `json:"vendor_name"`
	FlaggedCount  int64   `json:"flagged_count"`
	FlaggedAmount float64 `json:"flagged_amount"`
}

// HeatCell is one grouped bucket in a heatmap view.
type HeatCell struct {
	Key    string  `json:"key"`
	Count  int64   `json:"anomaly_count"`
	Amount float64 `json:"risky_amount"`
}

// Store persists anomaly results and answers the read queries built on
// committed results.
type Store interface {
	// Commit atomically inserts the result and applies the baseline delta.
	// Returns ErrAlreadyAnalyzed when a result already exists (baselines
	// untouched) and ErrInconsistentCommit when atomicity was violated.
	Commit(ctx context.Context, res *Result, delta baseline.Delta) error

	// Get returns the joined record for a transaction, or ErrNotFound.
	Get(ctx context.Context, transactionID int64) (*Record, error)

	// List returns records matching the filter, ascending by score.
	// Fetches up to Limit+1 rows so callers can compute a next cursor.
	List(ctx context.Context, filter ListFilter) ([]*Record, error)

	// ListUnscored returns transactions with no result yet, oldest first.
	ListUnscored(ctx context.Context, limit int) ([]*transaction.Transaction, error)

	// Overview returns dashboard totals. Flagged means risk level != LOW;
	// amount at risk sums amounts of HIGH-risk transactions.
	Overview(ctx context.Context) (*Overview, error)

	// RiskDistribution returns result counts per risk level, including
	// zero counts for absent levels.
	RiskDistribution(ctx context.Context) (map[scoring.RiskLevel]int64, error)

	// TopVendors ranks vendors by flagged-transaction count, then total
	// flagged amount.
	TopVendors(ctx context.Context, limit int) ([]*VendorSummary, error)

	// HeatmapByLocation groups flagged (MEDIUM/HIGH) results by location,
	// or by a single level when risk is non-nil.
	HeatmapByLocation(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error)

	// HeatmapByDepartment groups flagged results by department.
	HeatmapByDepartment(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error)

	// HeatmapByTime groups results into day buckets by transaction date.
	// Unlike the location/department views it spans all risk levels unless
	// a filter is given.
	HeatmapByTime(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error)
}
