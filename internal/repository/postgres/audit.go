package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, tx repository.Tx, entry *model.AuditEntry) error {
	sqlxTx, err := txOf(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sms_audit (
			alarm_event_id, user_id, alarm_message, status, gateway_response, created_at
		) VALUES (
			$1, $2, $3, $4, $5, NOW()
		)
	`
	_, err = sqlxTx.ExecContext(ctx, query,
		entry.AlarmEventID,
		entry.UserID,
		entry.AlarmMessage,
		entry.Status,
		entry.GatewayResponse,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}
