package scoring

// Default classification thresholds. Configurable via internal/config;
// documented here as the reference defaults.
const (
	DefaultHighThreshold   = 0.75
	DefaultMediumThreshold = 0.45
)

// reasonComposite is emitted when a non-LOW score has no individually
// triggered feature (several moderate signals combined). The reason list is
// never empty for a non-LOW result.
const reasonComposite = "composite deviation across multiple signals"

// reasonTexts maps feature names to human-readable explanations.
var reasonTexts = map[string]string{
	FeatureVendorDeviation:     "amount deviates sharply from this vendor's historical spending",
	FeatureDepartmentDeviation: "amount is far outside the department's normal spending range",
	FeatureNewVendorLarge:      "first transaction for a new vendor at an unusually large amount",
	FeatureLocationRarity:      "location is rare in this vendor's transaction history",
}

// Classifier maps composite scores onto discrete risk levels with reasons.
type Classifier struct {
	highThreshold   float64
	mediumThreshold float64
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(high, medium float64) *Classifier {
	if high <= 0 || medium <= 0 || high <= medium {
		high, medium = DefaultHighThreshold, DefaultMediumThreshold
	}
	return &Classifier{highThreshold: high, mediumThreshold: medium}
}

// Classify maps a score and its triggered features to a risk level and an
// ordered reason list. Triggered features must already be sorted by
// descending contribution (see Engine.Triggered).
//
// LOW results carry no reasons: an all-clear transaction needs no
// explanation.
func (c *Classifier) Classify(score float64, triggered []Feature) (RiskLevel, []string) {
	level := RiskLow
	switch {
	case score >= c.highThreshold:
		level = RiskHigh
	case score >= c.mediumThreshold:
		level = RiskMedium
	}

	if level == RiskLow {
		return level, nil
	}

	reasons := make([]string, 0, len(triggered))
	for _, f := range triggered {
		if text, ok := reasonTexts[f.Name]; ok {
			reasons = append(reasons, text)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, reasonComposite)
	}
	return level, reasons
}
