package model

import "time"

type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
	OutcomePaused    Outcome = "paused"
)

// DeliveryAudit is one append-only record per delivery attempt, consumed by
// the analytics subsystem. Never mutated after creation.
type DeliveryAudit struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipientId"`
	Day         int       `json:"day"`
	Outcome     Outcome   `json:"outcome"`
	Detail      string    `json:"detail,omitempty"`
	Deactivate  bool      `json:"deactivate,omitempty"` // permanent send failure, flag for external deactivation
	CreatedAt   time.Time `json:"createdAt"`
}
