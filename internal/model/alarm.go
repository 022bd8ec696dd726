package model

import (
	"time"

	"github.com/google/uuid"
)

type AlarmStatus string

const (
	AlarmStatusPendingExpansion AlarmStatus = "PENDING_EXPANSION"
	AlarmStatusExpanded         AlarmStatus = "EXPANDED"
)

// AlarmEvent is one accepted call to send an alarm. The payload is
// immutable after creation; only the expansion status changes.
type AlarmEvent struct {
	ID           uuid.UUID   `db:"id"`
	Message      string      `db:"message"`
	GroupNumber  int         `db:"group_number"`
	Status       AlarmStatus `db:"status"`
	ErrorMessage *string     `db:"error_message"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}
