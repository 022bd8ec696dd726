package model

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusPendingSend     DeliveryStatus = "PENDING_SEND"
	DeliveryStatusSent            DeliveryStatus = "SENT"
	DeliveryStatusFailedRetryable DeliveryStatus = "FAILED_RETRYABLE"
	DeliveryStatusFailedPermanent DeliveryStatus = "FAILED_PERMANENT"
)

// IsTerminal reports whether the status permits no further transitions.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusSent || s == DeliveryStatusFailedPermanent
}

// DeliveryAttempt tracks sending one alarm to one recipient. The phone
// number is denormalized at creation time so a later change to the user
// row cannot redirect a pending retry.
type DeliveryAttempt struct {
	ID           uuid.UUID      `db:"id"`
	AlarmEventID uuid.UUID      `db:"alarm_event_id"`
	UserID       int64          `db:"user_id"`
	PhoneNumber  string         `db:"phone_number"`
	Status       DeliveryStatus `db:"status"`
	AttemptCount int            `db:"attempt_count"`
	LastError    *string        `db:"last_error"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`

	// Message is joined in from the owning alarm event when fetching
	// sendable rows; it is not a column of delivery_attempts.
	Message string `db:"message"`
}
