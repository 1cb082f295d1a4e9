package scoring

import (
	"testing"

	"github.com/spendwatch/spendwatch/internal/baseline"
	"github.com/spendwatch/spendwatch/internal/transaction"
)

func seededStats(amounts ...float64) baseline.Stats {
	var s baseline.Stats
	for _, a := range amounts {
		s.Add(a)
	}
	return s
}

func TestScoreDeterministic(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snap := &baseline.Snapshot{
		Vendor:              seededStats(900, 1000, 1100, 950, 1050),
		Department:          seededStats(900, 1000, 1100, 950, 1050, 500, 700),
		VendorLocationCount: 3,
	}
	tx := &transaction.Transaction{VendorID: "V1", Department: "D1", Amount: 4000, Location: "Springfield"}

	score1, feats1 := engine.Score(tx, snap)
	score2, feats2 := engine.Score(tx, snap)

	if score1 != score2 {
		t.Fatalf("score not deterministic: %f vs %f", score1, score2)
	}
	for i := range feats1 {
		if feats1[i] != feats2[i] {
			t.Fatalf("feature %d not deterministic: %+v vs %+v", i, feats1[i], feats2[i])
		}
	}
}

func TestColdStartContributesNothing(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	// Brand-new vendor and department: no history anywhere.
	snap := &baseline.Snapshot{}
	tx := &transaction.Transaction{Amount: 1e9}

	score, features := engine.Score(tx, snap)
	if score != 0 {
		t.Errorf("cold-start score = %f, want 0", score)
	}
	for _, f := range features {
		if f.Value != 0 {
			t.Errorf("cold-start feature %s = %f, want 0", f.Name, f.Value)
		}
	}
}

func TestVendorDeviationSaturates(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snap := &baseline.Snapshot{
		Vendor: seededStats(900, 1000, 1100, 950, 1050),
	}
	tx := &transaction.Transaction{Amount: 50000}

	_, features := engine.Score(tx, snap)
	if features[0].Name != FeatureVendorDeviation {
		t.Fatalf("unexpected feature order: %s", features[0].Name)
	}
	if features[0].Value != 1.0 {
		t.Errorf("extreme outlier vendor deviation = %f, want 1.0", features[0].Value)
	}
}

func TestZeroVarianceEstablishedBaseline(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snap := &baseline.Snapshot{
		Vendor: seededStats(1000, 1000, 1000, 1000, 1000),
	}

	_, features := engine.Score(&transaction.Transaction{Amount: 50000}, snap)
	if features[0].Value != 1.0 {
		t.Errorf("differing amount on zero-variance baseline = %f, want 1.0", features[0].Value)
	}

	_, features = engine.Score(&transaction.Transaction{Amount: 1000}, snap)
	if features[0].Value != 0 {
		t.Errorf("matching amount on zero-variance baseline = %f, want 0", features[0].Value)
	}
}

func TestNewVendorLargeAmount(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	snap := &baseline.Snapshot{
		Vendor:     baseline.Stats{}, // first transaction for this vendor
		Department: seededStats(1000, 1200, 900, 1100, 950, 1050),
	}

	_, features := engine.Score(&transaction.Transaction{Amount: 100000}, snap)
	if features[2].Name != FeatureNewVendorLarge {
		t.Fatalf("unexpected feature order: %s", features[2].Name)
	}
	if features[2].Value != 1.0 {
		t.Errorf("ghost-vendor feature = %f, want 1.0", features[2].Value)
	}

	// Normal-sized first transaction does not fire.
	_, features = engine.Score(&transaction.Transaction{Amount: 1000}, snap)
	if features[2].Value != 0 {
		t.Errorf("normal first transaction fired ghost-vendor feature: %f", features[2].Value)
	}
}

func TestLocationRarity(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// Vendor has 10 transactions, only 1 at this location.
	snap := &baseline.Snapshot{
		Vendor:              seededStats(1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
		VendorLocationCount: 1,
	}
	_, features := engine.Score(&transaction.Transaction{Amount: 5}, snap)
	if got, want := features[3].Value, 0.9; got != want {
		t.Errorf("location rarity = %f, want %f", got, want)
	}

	// Sparse vendor history: rarity contributes nothing.
	snap = &baseline.Snapshot{Vendor: seededStats(1, 2), VendorLocationCount: 0}
	_, features = engine.Score(&transaction.Transaction{Amount: 5}, snap)
	if features[3].Value != 0 {
		t.Errorf("sparse-history rarity = %f, want 0", features[3].Value)
	}
}

func TestTriggeredOrdering(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	features := []Feature{
		{Name: FeatureVendorDeviation, Value: 0.7, Weight: WeightVendorDeviation},      // 0.28
		{Name: FeatureDepartmentDeviation, Value: 1.0, Weight: WeightDepartmentDeviation}, // 0.30
		{Name: FeatureNewVendorLarge, Value: 0.5, Weight: WeightNewVendorLarge},        // below trigger
		{Name: FeatureLocationRarity, Value: 0.9, Weight: WeightLocationRarity},        // 0.09
	}

	triggered := engine.Triggered(features)
	if len(triggered) != 3 {
		t.Fatalf("triggered count = %d, want 3", len(triggered))
	}
	want := []string{FeatureDepartmentDeviation, FeatureVendorDeviation, FeatureLocationRarity}
	for i, name := range want {
		if triggered[i].Name != name {
			t.Errorf("triggered[%d] = %s, want %s", i, triggered[i].Name, name)
		}
	}
}
