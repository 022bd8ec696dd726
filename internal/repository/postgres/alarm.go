package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
)

type alarmRepository struct {
	BaseRepository
}

func NewAlarmRepository(base BaseRepository) repository.AlarmRepository {
	return &alarmRepository{base}
}

func (r *alarmRepository) Create(ctx context.Context, alarm *model.AlarmEvent) error {
	if alarm == nil {
		return fmt.Errorf("alarm cannot be nil")
	}

	query := `
		INSERT INTO alarm_events (
			id, message, group_number, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`
	now := time.Now()
	alarm.CreatedAt = now
	alarm.UpdatedAt = now
	alarm.Status = model.AlarmStatusPendingExpansion

	_, err := r.db.ExecContext(ctx, query,
		alarm.ID,
		alarm.Message,
		alarm.GroupNumber,
		alarm.Status,
		alarm.CreatedAt,
		alarm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alarm event: %w", err)
	}
	return nil
}

func (r *alarmRepository) ClaimPendingExpansions(ctx context.Context, tx repository.Tx, limit int) ([]*model.AlarmEvent, error) {
	sqlxTx, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, message, group_number, status, error_message, created_at, updated_at
		FROM alarm_events
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	var alarms []*model.AlarmEvent
	err = sqlxTx.SelectContext(ctx, &alarms, query, model.AlarmStatusPendingExpansion, limit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending alarms: %w", err)
	}
	return alarms, nil
}

func (r *alarmRepository) MarkExpanded(ctx context.Context, tx repository.Tx, id uuid.UUID) error {
	sqlxTx, err := txOf(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE alarm_events
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`
	res, err := sqlxTx.ExecContext(ctx, query, model.AlarmStatusExpanded, id, model.AlarmStatusPendingExpansion)
	if err != nil {
		return fmt.Errorf("failed to mark alarm expanded: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("alarm %s was not in %s", id, model.AlarmStatusPendingExpansion)
	}
	return nil
}
