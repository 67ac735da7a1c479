package models

import (
	"time"

	"github.com/google/uuid"
)

// RuleType enumerates the supported alert rule kinds.
type RuleType string

const (
	RuleExcessiveConsumption RuleType = "excessive_consumption" // mean volume per vehicle above threshold
	RuleHighFrequency        RuleType = "high_frequency"        // mean refuel gap in days below threshold
	RuleLowEfficiency        RuleType = "low_efficiency"        // mean efficiency below threshold
	RuleMaintenanceKM        RuleType = "maintenance_km"        // accumulated distance at or above threshold
	RuleWeekendShare         RuleType = "weekend_share"         // weekend volume share above threshold, fleet-wide
	RuleAnomalyRate          RuleType = "anomaly_rate"          // share of anomalous records per vehicle above threshold
)

// Severity is the configured level attached to a rule and carried by the
// alert events it emits.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank maps a severity onto an ordered scale for routing-policy comparison.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AlertRule is a stored threshold configuration. Rules are created, updated
// and deactivated by the caller; the engine consumes the active set as an
// immutable snapshot for one evaluation pass.
type AlertRule struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      RuleType  `json:"type"`
	Severity  Severity  `json:"severity"`
	Threshold float64   `json:"threshold"`
	Vehicles  []string  `json:"vehicles,omitempty"` // empty = fleet-wide scope
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InScope reports whether the rule applies to the given vehicle.
func (r AlertRule) InScope(vehicle string) bool {
	if len(r.Vehicles) == 0 {
		return true
	}
	for _, v := range r.Vehicles {
		if v == vehicle {
			return true
		}
	}
	return false
}
