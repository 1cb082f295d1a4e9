package anomaly

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/spendwatch/spendwatch/internal/baseline"
	"github.com/spendwatch/spendwatch/internal/scoring"
	"github.com/spendwatch/spendwatch/internal/transaction"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL. Commits run the result
// insert and the baseline update in one transaction so a crash between the
// two cannot leave the baselines out of step with the recorded results.
type PostgresStore struct {
	db        *sql.DB
	baselines *baseline.PostgresStore
}

// NewPostgresStore creates a new PostgreSQL-backed result store.
func NewPostgresStore(db *sql.DB, baselines *baseline.PostgresStore) *PostgresStore {
	return &PostgresStore{db: db, baselines: baselines}
}

func (p *PostgresStore) Commit(ctx context.Context, res *Result, delta baseline.Delta) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer dbTx.Rollback()

	reasons := res.Reasons
	if reasons == nil {
		// LOW results carry no reasons; the column is NOT NULL.
		reasons = []string{}
	}
	result, err := dbTx.ExecContext(ctx, `
		INSERT INTO anomaly_results (transaction_id, anomaly_score, risk_level, reasons)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id) DO NOTHING
	`, res.TransactionID, res.Score, string(res.RiskLevel), pq.Array(reasons))
	if err != nil {
		return fmt.Errorf("insert anomaly result: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert anomaly result: %w", err)
	}
	if rows == 0 {
		// Another worker got here first. Roll back so the baselines are
		// not touched a second time for the same transaction.
		return ErrAlreadyAnalyzed
	}

	if err := p.baselines.ApplyTx(ctx, dbTx, delta); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentCommit, err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentCommit, err)
	}
	return nil
}

const recordColumns = `
	t.id, t.vendor_id, t.vendor_name, t.department, t.amount, t.location, t.transaction_date,
	r.anomaly_score, r.risk_level, r.reasons, r.detected_at
`

func (p *PostgresStore) Get(ctx context.Context, transactionID int64) (*Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM anomaly_results r
		JOIN transactions t ON t.id = r.transaction_id
		WHERE r.transaction_id = $1
	`, transactionID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get anomaly result: %w", err)
	}
	return rec, nil
}

func (p *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Risk != nil {
		conds = append(conds, "r.risk_level = "+arg(string(*filter.Risk)))
	}
	if filter.Location != "" {
		conds = append(conds, "t.location = "+arg(filter.Location))
	}
	if filter.Cursor != nil {
		conds = append(conds, fmt.Sprintf("(r.anomaly_score, r.transaction_id) > (%s, %s)",
			arg(filter.Cursor.Score), arg(filter.Cursor.ID)))
	}

	query := `
		SELECT ` + recordColumns + `
		FROM anomaly_results r
		JOIN transactions t ON t.id = r.transaction_id
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.anomaly_score ASC, r.transaction_id ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit+1)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list anomalies: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list anomalies: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListUnscored(ctx context.Context, limit int) ([]*transaction.Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT t.id, t.vendor_id, t.vendor_name, t.department, t.amount, t.location, t.transaction_date, t.created_at
		FROM transactions t
		LEFT JOIN anomaly_results r ON r.transaction_id = t.id
		WHERE r.transaction_id IS NULL
		ORDER BY t.id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unscored: %w", err)
	}
	defer rows.Close()

	var out []*transaction.Transaction
	for rows.Next() {
		tx := &transaction.Transaction{}
		if err := rows.Scan(&tx.ID, &tx.VendorID, &tx.VendorName, &tx.Department,
			&tx.Amount, &tx.Location, &tx.Date, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("list unscored: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Overview(ctx context.Context) (*Overview, error) {
	ov := &Overview{}
	err := p.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions),
			COUNT(*) FILTER (WHERE r.risk_level IN ('HIGH', 'MEDIUM')),
			COUNT(*) FILTER (WHERE r.risk_level = 'HIGH'),
			COALESCE(SUM(t.amount) FILTER (WHERE r.risk_level = 'HIGH'), 0)
		FROM anomaly_results r
		JOIN transactions t ON t.id = r.transaction_id
	`).Scan(&ov.TotalTransactions, &ov.FlaggedTransactions, &ov.HighRiskTransactions, &ov.AmountAtRisk)
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	return ov, nil
}

func (p *PostgresStore) RiskDistribution(ctx context.Context) (map[scoring.RiskLevel]int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT risk_level, COUNT(*) FROM anomaly_results GROUP BY risk_level
	`)
	if err != nil {
		return nil, fmt.Errorf("risk distribution: %w", err)
	}
	defer rows.Close()

	dist := make(map[scoring.RiskLevel]int64, len(scoring.Levels()))
	for _, level := range scoring.Levels() {
		dist[level] = 0
	}
	for rows.Next() {
		var (
			level string
			n     int64
		)
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("risk distribution: %w", err)
		}
		dist[scoring.RiskLevel(level)] = n
	}
	return dist, rows.Err()
}

func (p *PostgresStore) TopVendors(ctx context.Context, limit int) ([]*VendorSummary, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT t.vendor_id, t.vendor_name, COUNT(*), SUM(t.amount)
		FROM anomaly_results r
		JOIN transactions t ON t.id = r.transaction_id
		WHERE r.risk_level IN ('HIGH', 'MEDIUM')
		GROUP BY t.vendor_id, t.vendor_name
		ORDER BY COUNT(*) DESC, SUM(t.amount) DESC, t.vendor_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("top vendors: %w", err)
	}
	defer rows.Close()

	var out []*VendorSummary
	for rows.Next() {
		v := &VendorSummary{}
		if err := rows.Scan(&v.VendorID, &v.VendorName, &v.FlaggedCount, &v.FlaggedAmount); err != nil {
			return nil, fmt.Errorf("top vendors: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *PostgresStore) HeatmapByLocation(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error) {
	return p.heatmap(ctx, "t.location", risk, true, "")
}

func (p *PostgresStore) HeatmapByDepartment(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error) {
	return p.heatmap(ctx, "t.department", risk, true, "")
}

func (p *PostgresStore) HeatmapByTime(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error) {
	return p.heatmap(ctx, "to_char(t.transaction_date, 'YYYY-MM-DD')", risk, false, "1 ASC")
}

func (p *PostgresStore) heatmap(ctx context.Context, keyExpr string, risk *scoring.RiskLevel, flaggedOnly bool, order string) ([]*HeatCell, error) {
	var (
		where string
		args  []any
	)
	if risk != nil {
		where = "WHERE r.risk_level = $1"
		args = append(args, string(*risk))
	} else if flaggedOnly {
		where = "WHERE r.risk_level IN ('HIGH', 'MEDIUM')"
	}
	if order == "" {
		order = "COUNT(*) DESC, 1 ASC"
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(*), SUM(t.amount)
		FROM anomaly_results r
		JOIN transactions t ON t.id = r.transaction_id
		%s
		GROUP BY 1
		ORDER BY %s
	`, keyExpr, where, order), args...)
	if err != nil {
		return nil, fmt.Errorf("heatmap: %w", err)
	}
	defer rows.Close()

	var out []*HeatCell
	for rows.Next() {
		cell := &HeatCell{}
		if err := rows.Scan(&cell.Key, &cell.Count, &cell.Amount); err != nil {
			return nil, fmt.Errorf("heatmap: %w", err)
		}
		out = append(out, cell)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	rec := &Record{}
	var level string
	err := row.Scan(&rec.TransactionID, &rec.VendorID, &rec.VendorName, &rec.Department,
		&rec.Amount, &rec.Location, &rec.Date,
		&rec.Score, &level, pq.Array(&rec.Reasons), &rec.DetectedAt)
	if err != nil {
		return nil, err
	}
	rec.RiskLevel = scoring.RiskLevel(level)
	return rec, nil
}
