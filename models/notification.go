package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationOutcome is what happened to a top-up request.
type NotificationOutcome string

const (
	OutcomeSubmitted NotificationOutcome = "SUBMITTED"
	OutcomeApproved  NotificationOutcome = "APPROVED"
	OutcomeRejected  NotificationOutcome = "REJECTED"
	OutcomeExpired   NotificationOutcome = "EXPIRED"
)

// NotificationEvent is an outbox row. It is written in the same transaction as the
// state change it describes and delivered after commit; undelivered rows are
// retried by the relay job.
type NotificationEvent struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	RequestID   uint                `gorm:"index;not null" json:"request_id"`
	UserID      uint                `gorm:"not null" json:"user_id"`
	Outcome     NotificationOutcome `gorm:"type:varchar(16);not null" json:"outcome"`
	Payload     datatypes.JSON      `json:"payload,omitempty"`
	Attempts    int                 `gorm:"not null;default:0" json:"attempts"`
	LastError   string              `json:"last_error,omitempty"`
	DeliveredAt *time.Time          `gorm:"index" json:"delivered_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
