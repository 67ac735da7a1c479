package models

import (
	"time"

	"github.com/google/uuid"
)

// FleetWide is the vehicle marker used by alert events that describe the
// whole fleet rather than a single vehicle.
const FleetWide = "*"

// AlertEvent is produced by the rule engine when a rule threshold is
// crossed. Events are immutable after creation; persistence and delivery
// are the callers' concern.
type AlertEvent struct {
	ID         uuid.UUID `json:"id"`
	RuleID     uuid.UUID `json:"rule_id"`
	RuleType   RuleType  `json:"rule_type"`
	Vehicle    string    `json:"vehicle"` // FleetWide for fleet-level events
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Observed   float64   `json:"observed"`
	Threshold  float64   `json:"threshold"`
	BatchID    string    `json:"batch_id"`
	DetectedAt time.Time `json:"detected_at"`
}
