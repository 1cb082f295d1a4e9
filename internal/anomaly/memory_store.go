package anomaly

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spendwatch/spendwatch/internal/baseline"
	"github.com/spendwatch/spendwatch/internal/scoring"
	"github.com/spendwatch/spendwatch/internal/transaction"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory result store for demo/development mode. It
// holds references to the transaction and baseline memory stores so a commit
// can insert the result and fold the baseline delta under one lock.
type MemoryStore struct {
	mu        sync.RWMutex
	results   map[int64]*Result
	txns      *transaction.MemoryStore
	baselines *baseline.MemoryStore
}

// NewMemoryStore creates a new in-memory result store backed by the given
// transaction and baseline stores.
func NewMemoryStore(txns *transaction.MemoryStore, baselines *baseline.MemoryStore) *MemoryStore {
	return &MemoryStore{
		results:   make(map[int64]*Result),
		txns:      txns,
		baselines: baselines,
	}
}

func (m *MemoryStore) Commit(ctx context.Context, res *Result, delta baseline.Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.results[res.TransactionID]; exists {
		return ErrAlreadyAnalyzed
	}
	cp := *res
	if cp.DetectedAt.IsZero() {
		cp.DetectedAt = time.Now()
	}
	cp.Reasons = append([]string(nil), res.Reasons...)
	m.results[cp.TransactionID] = &cp
	m.baselines.Apply(delta)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, transactionID int64) (*Record, error) {
	m.mu.RLock()
	res, ok := m.results[transactionID]
	if !ok {
		m.mu.RUnlock()
		return nil, ErrNotFound
	}
	cp := *res
	m.mu.RUnlock()

	tx, err := m.txns.Get(ctx, transactionID)
	if err != nil {
		return nil, ErrNotFound
	}
	return joinRecord(tx, &cp), nil
}

func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	records := m.allRecords(ctx)

	out := make([]*Record, 0, filter.Limit+1)
	for _, r := range records {
		if filter.Risk != nil && r.RiskLevel != *filter.Risk {
			continue
		}
		if filter.Location != "" && r.Location != filter.Location {
			continue
		}
		if !filter.Cursor.After(r.Score, r.TransactionID) {
			continue
		}
		out = append(out, r)
		if filter.Limit > 0 && len(out) > filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) ListUnscored(ctx context.Context, limit int) ([]*transaction.Transaction, error) {
	all := m.txns.All()

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*transaction.Transaction, 0, limit)
	for _, tx := range all {
		if _, scored := m.results[tx.ID]; scored {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Overview(ctx context.Context) (*Overview, error) {
	total, err := m.txns.Count(ctx)
	if err != nil {
		return nil, err
	}

	ov := &Overview{TotalTransactions: total}
	for _, r := range m.allRecords(ctx) {
		if !r.RiskLevel.Flagged() {
			continue
		}
		ov.FlaggedTransactions++
		if r.RiskLevel == scoring.RiskHigh {
			ov.HighRiskTransactions++
			ov.AmountAtRisk += r.Amount
		}
	}
	return ov, nil
}

func (m *MemoryStore) RiskDistribution(ctx context.Context) (map[scoring.RiskLevel]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dist := make(map[scoring.RiskLevel]int64, len(scoring.Levels()))
	for _, level := range scoring.Levels() {
		dist[level] = 0
	}
	for _, r := range m.results {
		dist[r.RiskLevel]++
	}
	return dist, nil
}

func (m *MemoryStore) TopVendors(ctx context.Context, limit int) ([]*VendorSummary, error) {
	byVendor := make(map[string]*VendorSummary)
	for _, r := range m.allRecords(ctx) {
		if !r.RiskLevel.Flagged() {
			continue
		}
		v, ok := byVendor[r.VendorID]
		if !ok {
			v = &VendorSummary{VendorID: r.VendorID, VendorName: r.VendorName}
			byVendor[r.VendorID] = v
		}
		v.FlaggedCount++
		v.FlaggedAmount += r.Amount
	}

	out := make([]*VendorSummary, 0, len(byVendor))
	for _, v := range byVendor {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FlaggedCount != out[j].FlaggedCount {
			return out[i].FlaggedCount > out[j].FlaggedCount
		}
		if out[i].FlaggedAmount != out[j].FlaggedAmount {
			return out[i].FlaggedAmount > out[j].FlaggedAmount
		}
		return out[i].VendorID < out[j].VendorID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) HeatmapByLocation(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error) {
	return m.heatmap(ctx, risk, true, func(r *Record) string { return r.Location }), nil
}

func (m *MemoryStore) HeatmapByDepartment(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error) {
	return m.heatmap(ctx, risk, true, func(r *Record) string { return r.Department }), nil
}

func (m *MemoryStore) HeatmapByTime(ctx context.Context, risk *scoring.RiskLevel) ([]*HeatCell, error) {
	cells := m.heatmap(ctx, risk, false, func(r *Record) string {
		return r.Date.Format("2006-01-02")
	})
	sort.Slice(cells, func(i, j int) bool { return cells[i].Key < cells[j].Key })
	return cells, nil
}

// heatmap groups records by key. flaggedOnly restricts to MEDIUM/HIGH when
// no explicit risk filter is given.
func (m *MemoryStore) heatmap(ctx context.Context, risk *scoring.RiskLevel, flaggedOnly bool, key func(*Record) string) []*HeatCell {
	byKey := make(map[string]*HeatCell)
	for _, r := range m.allRecords(ctx) {
		if risk != nil {
			if r.RiskLevel != *risk {
				continue
			}
		} else if flaggedOnly && !r.RiskLevel.Flagged() {
			continue
		}
		k := key(r)
		cell, ok := byKey[k]
		if !ok {
			cell = &HeatCell{Key: k}
			byKey[k] = cell
		}
		cell.Count++
		cell.Amount += r.Amount
	}

	out := make([]*HeatCell, 0, len(byKey))
	for _, cell := range byKey {
		out = append(out, cell)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// allRecords joins every result with its transaction, sorted ascending by
// (score, transaction id) to match the listing order.
func (m *MemoryStore) allRecords(ctx context.Context) []*Record {
	m.mu.RLock()
	results := make([]*Result, 0, len(m.results))
	for _, r := range m.results {
		cp := *r
		results = append(results, &cp)
	}
	m.mu.RUnlock()

	out := make([]*Record, 0, len(results))
	for _, res := range results {
		tx, err := m.txns.Get(ctx, res.TransactionID)
		if err != nil {
			continue
		}
		out = append(out, joinRecord(tx, res))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out
}

func joinRecord(tx *transaction.Transaction, res *Result) *Record {
	return &Record{
		TransactionID: tx.ID,
		VendorID:      tx.VendorID,
		VendorName:    tx.VendorName,
		Department:    tx.Department,
		Amount:        tx.Amount,
		Location:      tx.Location,
		Date:          tx.Date,
		Score:         res.Score,
		RiskLevel:     res.RiskLevel,
		Reasons:       res.Reasons,
		DetectedAt:    res.DetectedAt,
	}
}
