// Package baseline maintains running spending statistics per vendor and per
// department. The statistics are the reference distribution ("normal"
// spending) that the scoring engine compares new transactions against.
//
// Statistics use Welford's online algorithm (count, mean, M2) so mean and
// variance stay numerically stable as counts grow; naive sum/sum-of-squares
// accumulation suffers catastrophic cancellation.
package baseline

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrNotFound is returned when no baseline row exists for a key.
var ErrNotFound = errors.New("baseline not found")

// Kind distinguishes the two baseline populations.
type Kind string

const (
	KindVendor     Kind = "vendor"
	KindDepartment Kind = "department"
)

// Stats is the Welford accumulator state for one key.
type Stats struct {
	Count     int64     `json:"count"`
	Mean      float64   `json:"mean"`
	M2        float64   `json:"m2"` // sum of squared deviations from the running mean
	UpdatedAt time.Time `json:"updatedAt"`
}

// Add folds one observation into the accumulator.
func (s *Stats) Add(amount float64) {
	s.Count++
	delta := amount - s.Mean
	s.Mean += delta / float64(s.Count)
	s.M2 += delta * (amount - s.Mean)
}

// Variance returns the population variance, or 0 when fewer than two
// observations exist.
func (s Stats) Variance() float64 {
	if s.Count < 2 {
		return 0
	}
	return s.M2 / float64(s.Count)
}

// Stddev returns the population standard deviation.
func (s Stats) Stddev() float64 {
	return math.Sqrt(s.Variance())
}

// Snapshot is the point-in-time baseline state a single transaction is
// scored against. The scoring engine is a pure function of (transaction,
// Snapshot), so reads for one transaction must come from one consistent
// snapshot.
type Snapshot struct {
	Vendor              Stats
	Department          Stats
	VendorLocationCount int64 // observations of this vendor at the transaction's location
}

// Delta is the baseline mutation produced by scoring one transaction.
// Applying it folds the amount into the vendor and department accumulators
// and increments the vendor's location count, exactly once.
type Delta struct {
	VendorID   string
	Department string
	Location   string
	Amount     float64
}

// Store reads baseline state. Mutation happens only through the result
// store's atomic commit, which applies a Delta alongside the anomaly result.
type Store interface {
	// Snapshot returns the current baseline state for a transaction's
	// vendor, department, and location. Missing keys yield zero-valued
	// stats (cold start), not an error.
	Snapshot(ctx context.Context, vendorID, department, location string) (*Snapshot, error)

	// Get returns the stats for a single key, or ErrNotFound.
	Get(ctx context.Context, kind Kind, key string) (Stats, error)
}
