package baseline

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory baseline store for demo/development mode.
type MemoryStore struct {
	mu        sync.RWMutex
	stats     map[Kind]map[string]*Stats
	locations map[string]map[string]int64 // vendorID → location → count
}

// NewMemoryStore creates a new in-memory baseline store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats: map[Kind]map[string]*Stats{
			KindVendor:     {},
			KindDepartment: {},
		},
		locations: make(map[string]map[string]int64),
	}
}

func (m *MemoryStore) Snapshot(ctx context.Context, vendorID, department, location string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &Snapshot{}
	if s, ok := m.stats[KindVendor][vendorID]; ok {
		snap.Vendor = *s
	}
	if s, ok := m.stats[KindDepartment][department]; ok {
		snap.Department = *s
	}
	if locs, ok := m.locations[vendorID]; ok {
		snap.VendorLocationCount = locs[location]
	}
	return snap, nil
}

func (m *MemoryStore) Get(ctx context.Context, kind Kind, key string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stats[kind][key]
	if !ok {
		return Stats{}, ErrNotFound
	}
	return *s, nil
}

// Apply folds a delta into the vendor and department accumulators. Called by
// the result store's commit path while it holds its own commit lock, so the
// result insert and the baseline update form one critical section.
func (m *MemoryStore) Apply(delta Delta) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, upd := range []struct {
		kind Kind
		key  string
	}{
		{KindVendor, delta.VendorID},
		{KindDepartment, delta.Department},
	} {
		s, ok := m.stats[upd.kind][upd.key]
		if !ok {
			s = &Stats{}
			m.stats[upd.kind][upd.key] = s
		}
		s.Add(delta.Amount)
		s.UpdatedAt = now
	}

	locs, ok := m.locations[delta.VendorID]
	if !ok {
		locs = make(map[string]int64)
		m.locations[delta.VendorID] = locs
	}
	locs[delta.Location]++
}
