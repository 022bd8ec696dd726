package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
)

type deliveryRepository struct {
	BaseRepository
}

func NewDeliveryRepository(base BaseRepository) repository.DeliveryRepository {
	return &deliveryRepository{base}
}

func (r *deliveryRepository) CreateBatch(ctx context.Context, tx repository.Tx, attempts []*model.DeliveryAttempt) error {
	sqlxTx, err := txOf(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO delivery_attempts (
			id, alarm_event_id, user_id, phone_number, status,
			attempt_count, created_at, updated_at
		) VALUES (
			:id, :alarm_event_id, :user_id, :phone_number, :status,
			:attempt_count, :created_at, :updated_at
		)
	`
	for _, attempt := range attempts {
		if _, err := sqlxTx.NamedExecContext(ctx, query, attempt); err != nil {
			return fmt.Errorf("failed to create delivery attempt for user %d: %w", attempt.UserID, err)
		}
	}
	return nil
}

func (r *deliveryRepository) ClaimSendable(ctx context.Context, tx repository.Tx, limit, maxAttempts int) ([]*model.DeliveryAttempt, error) {
	sqlxTx, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT d.id, d.alarm_event_id, d.user_id, d.phone_number, d.status,
		       d.attempt_count, d.last_error, d.created_at, d.updated_at,
		       a.message
		FROM delivery_attempts d
		JOIN alarm_events a ON a.id = d.alarm_event_id
		WHERE d.status IN ($1, $2)
		AND d.attempt_count < $3
		ORDER BY d.updated_at ASC
		LIMIT $4
		FOR UPDATE OF d SKIP LOCKED
	`
	var attempts []*model.DeliveryAttempt
	err = sqlxTx.SelectContext(ctx, &attempts, query,
		model.DeliveryStatusPendingSend,
		model.DeliveryStatusFailedRetryable,
		maxAttempts,
		limit,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim sendable attempts: %w", err)
	}
	return attempts, nil
}

func (r *deliveryRepository) RecordOutcome(ctx context.Context, tx repository.Tx, id uuid.UUID, status model.DeliveryStatus, lastError *string) (bool, error) {
	sqlxTx, err := txOf(tx)
	if err != nil {
		return false, err
	}

	// The status guard makes the update a no-op on rows already in a
	// terminal state, so a duplicate outcome can never resurrect one.
	query := `
		UPDATE delivery_attempts
		SET status = $1,
			attempt_count = attempt_count + 1,
			last_error = $2,
			updated_at = NOW()
		WHERE id = $3
		AND status IN ($4, $5)
	`
	res, err := sqlxTx.ExecContext(ctx, query,
		status,
		lastError,
		id,
		model.DeliveryStatusPendingSend,
		model.DeliveryStatusFailedRetryable,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
