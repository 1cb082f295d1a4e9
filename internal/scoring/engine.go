package scoring

import (
	"math"

	"github.com/spendwatch/spendwatch/internal/baseline"
	"github.com/spendwatch/spendwatch/internal/transaction"
)

// Feature names. The classifier maps these to human-readable reasons.
const (
	FeatureVendorDeviation     = "vendor_amount_deviation"
	FeatureDepartmentDeviation = "department_amount_deviation"
	FeatureNewVendorLarge      = "new_vendor_large_amount"
	FeatureLocationRarity      = "location_rarity"
)

// Feature weights. Each feature is clamped to [0, 1] before weighting so no
// single signal can dominate beyond its share; weights sum to 1.0.
const (
	WeightVendorDeviation     = 0.40
	WeightDepartmentDeviation = 0.30
	WeightNewVendorLarge      = 0.20
	WeightLocationRarity      = 0.10
)

// zSaturation divides the raw z-score before clamping: z >= 4 saturates the
// deviation feature at 1.0.
const zSaturation = 4.0

// zeroVarianceRelTolerance bounds "identical" amounts when a baseline has
// history but zero variance: relative deviation above it saturates the
// feature, at or below it the amount is treated as matching the baseline.
const zeroVarianceRelTolerance = 0.01

// Feature is one scored deviation signal.
type Feature struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`  // normalized to [0, 1]
	Weight float64 `json:"weight"`
}

// Contribution is the feature's share of the composite score.
func (f Feature) Contribution() float64 {
	return f.Value * f.Weight
}

// Config holds the documented scoring defaults; see internal/config for the
// environment overrides.
type Config struct {
	MinSamples     int     // baseline count below which stddev is undefined
	FeatureTrigger float64 // normalized value above which a feature becomes a reason
}

// DefaultConfig returns the documented default scoring configuration.
func DefaultConfig() Config {
	return Config{
		MinSamples:     5,
		FeatureTrigger: 0.6,
	}
}

// Engine computes composite anomaly scores. Score is a pure function of
// (transaction, baseline snapshot): no clock, no randomness, no stored
// state, so identical inputs always produce identical output.
type Engine struct {
	cfg Config
}

// NewEngine creates a scoring engine.
func NewEngine(cfg Config) *Engine {
	if cfg.MinSamples < 2 {
		cfg.MinSamples = DefaultConfig().MinSamples
	}
	if cfg.FeatureTrigger <= 0 {
		cfg.FeatureTrigger = DefaultConfig().FeatureTrigger
	}
	return &Engine{cfg: cfg}
}

// Score evaluates a transaction against a baseline snapshot. Features are
// returned in declaration order; the composite score is their weighted sum,
// clamped to [0, 1].
func (e *Engine) Score(tx *transaction.Transaction, snap *baseline.Snapshot) (float64, []Feature) {
	features := []Feature{
		{
			Name:   FeatureVendorDeviation,
			Value:  e.deviationFeature(tx.Amount, snap.Vendor),
			Weight: WeightVendorDeviation,
		},
		{
			Name:   FeatureDepartmentDeviation,
			Value:  e.deviationFeature(tx.Amount, snap.Department),
			Weight: WeightDepartmentDeviation,
		},
		{
			Name:   FeatureNewVendorLarge,
			Value:  e.newVendorFeature(tx.Amount, snap),
			Weight: WeightNewVendorLarge,
		},
		{
			Name:   FeatureLocationRarity,
			Value:  e.locationRarityFeature(snap),
			Weight: WeightLocationRarity,
		},
	}

	var score float64
	for _, f := range features {
		score += f.Contribution()
	}
	return clamp01(score), features
}

// Triggered returns the features whose normalized value exceeds the trigger
// threshold, ordered by descending contribution. These become the reason
// candidates for classification.
func (e *Engine) Triggered(features []Feature) []Feature {
	var out []Feature
	for _, f := range features {
		if f.Value > e.cfg.FeatureTrigger {
			out = append(out, f)
		}
	}
	// Insertion sort by contribution; four features at most.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Contribution() > out[j-1].Contribution(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// deviationFeature is the saturating z-score |amount-mean|/stddev, scaled by
// zSaturation and clamped. Below MinSamples the baseline has insufficient
// history and the feature contributes nothing; a single data point has zero
// variance, which would otherwise make any future value appear infinitely
// anomalous.
func (e *Engine) deviationFeature(amount float64, stats baseline.Stats) float64 {
	if stats.Count < int64(e.cfg.MinSamples) {
		return 0
	}
	stddev := stats.Stddev()
	if stddev == 0 {
		// Established history with zero spread: a materially different
		// amount saturates, a matching amount is normal.
		if relDeviation(amount, stats.Mean) > zeroVarianceRelTolerance {
			return 1
		}
		return 0
	}
	z := math.Abs(amount-stats.Mean) / stddev
	return clamp01(z / zSaturation)
}

// newVendorFeature fires on a vendor's first transaction when the amount is
// unusually large relative to the department norm (ghost-vendor heuristic).
func (e *Engine) newVendorFeature(amount float64, snap *baseline.Snapshot) float64 {
	if snap.Vendor.Count != 0 {
		return 0
	}
	dept := snap.Department
	if dept.Count < int64(e.cfg.MinSamples) {
		return 0
	}
	if amount > dept.Mean+2*dept.Stddev() {
		return 1
	}
	return 0
}

// locationRarityFeature is the fraction of the vendor's history NOT at this
// location. Sparse history for the vendor overall contributes nothing.
func (e *Engine) locationRarityFeature(snap *baseline.Snapshot) float64 {
	if snap.Vendor.Count < int64(e.cfg.MinSamples) {
		return 0
	}
	seen := float64(snap.VendorLocationCount) / float64(snap.Vendor.Count)
	return clamp01(1 - seen)
}

func relDeviation(amount, mean float64) float64 {
	base := math.Abs(mean)
	if base < 1 {
		base = 1
	}
	return math.Abs(amount-mean) / base
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
