package models

// RiskTier is the four-level classification derived from the consolidated
// anomaly score.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierModerate RiskTier = "moderate"
	TierHigh     RiskTier = "high"
	TierCritical RiskTier = "critical"
)

// Verdicts holds the per-record detector outputs appended to a dataset.
// Every slice has the same length as the dataset it was computed from.
type Verdicts struct {
	Consumption []bool // volume above the Tukey upper fence
	Frequency   []bool // vehicle refuels more often than the fleet norm
	Efficiency  []bool // efficiency outside the two-sided fences
	Ensemble    []bool // multivariate isolation-forest outlier

	EnsembleScore []float64 // raw isolation-forest score, 0 when not run
	Score         []float64 // consolidated risk score, 0 for normal rows
	IsAnomaly     []bool    // OR of the four component flags
	Tier          []RiskTier
	Label         []string // names of the detectors that fired, or "Normal"
}

// Len returns the number of classified rows.
func (v Verdicts) Len() int {
	return len(v.IsAnomaly)
}
