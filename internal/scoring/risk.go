// Package scoring implements anomaly scoring and risk classification for
// public-spending transactions.
//
// Every transaction is evaluated against 4 weighted features computed from
// vendor and department baselines: vendor amount deviation, department
// amount deviation, new-vendor large amounts, and location rarity. Scores
// range from 0.0 (normal) to 1.0 (highly anomalous) and map onto discrete
// LOW / MEDIUM / HIGH risk levels.
package scoring

// RiskLevel is the discrete classification of a scored transaction.
//
// It is the single source of truth for risk-level literals; stores bind it
// as a query parameter rather than interpolating strings.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Valid reports whether l is one of the known risk levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Flagged reports whether l marks a transaction as anomalous.
func (l RiskLevel) Flagged() bool {
	return l == RiskMedium || l == RiskHigh
}

// ParseRiskLevel parses a risk level string (exact match, upper case).
func ParseRiskLevel(s string) (RiskLevel, bool) {
	l := RiskLevel(s)
	return l, l.Valid()
}

// Levels returns all risk levels in ascending severity order.
func Levels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh}
}
