package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactPoint is a stakeholder delivery channel (email, telegram) with
// channel-specific configuration stored as JSON.
type ContactPoint struct {
	ID            uuid.UUID              `json:"id"`
	Name          string                 `json:"name"`
	Type          string                 `json:"type"`
	Configuration map[string]interface{} `json:"configuration"`
	Status        string                 `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// RoutingPolicy routes alert events to a contact point when the event
// severity satisfies the policy condition (EQ/NEQ/GT/GTE/LT/LTE against
// the policy severity).
type RoutingPolicy struct {
	ID             uuid.UUID     `json:"id"`
	ContactPointID uuid.UUID     `json:"contact_point_id"`
	Condition      string        `json:"condition"`
	Severity       Severity      `json:"severity"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ContactPoint   *ContactPoint `json:"contact_point,omitempty"` // joined for dispatch, not stored on the policy row
}

// Notification statuses.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification records one dispatch attempt of an alert event through a
// routing policy.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	EventID   uuid.UUID  `json:"event_id"`
	PolicyID  uuid.UUID  `json:"policy_id"`
	Channel   string     `json:"channel"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	Status    string     `json:"status"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}
