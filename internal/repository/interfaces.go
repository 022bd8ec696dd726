package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/scada-notifier/internal/model"
)

// Tx is a claim transaction. Rows fetched through it stay locked until
// Commit or Rollback, which is what keeps two overlapping processor
// passes from owning the same row.
type Tx interface {
	Commit() error
	Rollback() error
}

type AlarmRepository interface {
	Create(ctx context.Context, alarm *model.AlarmEvent) error
	BeginTx(ctx context.Context) (Tx, error)
	// ClaimPendingExpansions locks and returns unexpanded alarms,
	// oldest first, skipping rows claimed by a concurrent pass.
	ClaimPendingExpansions(ctx context.Context, tx Tx, limit int) ([]*model.AlarmEvent, error)
	MarkExpanded(ctx context.Context, tx Tx, id uuid.UUID) error
}

type DeliveryRepository interface {
	BeginTx(ctx context.Context) (Tx, error)
	CreateBatch(ctx context.Context, tx Tx, attempts []*model.DeliveryAttempt) error
	// ClaimSendable locks and returns attempts eligible for a send,
	// oldest updated_at first, skipping rows claimed elsewhere.
	ClaimSendable(ctx context.Context, tx Tx, limit, maxAttempts int) ([]*model.DeliveryAttempt, error)
	// RecordOutcome increments attempt_count and applies the status in
	// one conditional update. Returns false when the row was already
	// terminal and nothing was written.
	RecordOutcome(ctx context.Context, tx Tx, id uuid.UUID, status model.DeliveryStatus, lastError *string) (bool, error)
}

type UserRepository interface {
	FindGroupRecipients(ctx context.Context, groupNumber int) ([]model.Recipient, error)
}

type AuditRepository interface {
	Create(ctx context.Context, tx Tx, entry *model.AuditEntry) error
}
