package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

// FindGroupRecipients returns the SMS-eligible members of a group: enabled
// users with a phone number, once each regardless of duplicate memberships,
// ordered by user id for deterministic processing.
func (r *userRepository) FindGroupRecipients(ctx context.Context, groupNumber int) ([]model.Recipient, error) {
	query := `
		SELECT DISTINCT u.user_id, u.phone_number
		FROM users u
		JOIN group_members gm ON gm.user_id = u.user_id
		WHERE gm.group_number = $1
		AND u.sms_enabled = TRUE
		AND u.phone_number <> ''
		ORDER BY u.user_id ASC
	`
	var recipients []model.Recipient
	err := r.db.SelectContext(ctx, &recipients, query, groupNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recipients for group %d: %w", groupNumber, err)
	}
	return recipients, nil
}
