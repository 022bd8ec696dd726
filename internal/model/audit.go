package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one append-only record of a gateway attempt, including the
// raw gateway response for operator forensics.
type AuditEntry struct {
	AuditID         int64     `db:"audit_id"`
	AlarmEventID    uuid.UUID `db:"alarm_event_id"`
	UserID          int64     `db:"user_id"`
	AlarmMessage    string    `db:"alarm_message"`
	Status          string    `db:"status"`
	GatewayResponse *string   `db:"gateway_response"`
	CreatedAt       time.Time `db:"created_at"`
}
