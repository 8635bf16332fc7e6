package models

import "time"

// Outbox statuses
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusSent       = "sent"
)

// Outbox event types
const (
	EventRegistrationConfirmed = "registration.confirmed"
	EventRegistrationAbandoned = "registration.abandoned"
	EventReconciliationNeeded  = "reconciliation.required"
)

// OutboxEvent is a durable message written in the same transaction as the
// state change it describes and later relayed to the message broker.
type OutboxEvent struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	EventType   string    `json:"event_type" gorm:"type:varchar(64);not null"`
	AggregateID string    `json:"aggregate_id" gorm:"index"`
	Payload     string    `json:"payload" gorm:"type:text;not null"`
	Status      string    `json:"status" gorm:"type:varchar(16);default:'pending';index"`
	Attempts    int       `json:"attempts" gorm:"default:0"`
	LastError   string    `json:"last_error,omitempty"`
	NextRetry   time.Time `json:"next_retry" gorm:"index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (OutboxEvent) TableName() string {
	return "payment_outbox"
}
