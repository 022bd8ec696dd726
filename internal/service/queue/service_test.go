package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
	apperrors "github.com/jwalitptl/scada-notifier/pkg/errors"
	"github.com/jwalitptl/scada-notifier/pkg/logger"
	"github.com/jwalitptl/scada-notifier/pkg/metrics"
)

type fakeAlarmRepo struct {
	created []*model.AlarmEvent
	err     error
}

func (f *fakeAlarmRepo) Create(_ context.Context, alarm *model.AlarmEvent) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, alarm)
	return nil
}

func (f *fakeAlarmRepo) BeginTx(context.Context) (repository.Tx, error) {
	panic("not used by enqueue")
}

func (f *fakeAlarmRepo) ClaimPendingExpansions(context.Context, repository.Tx, int) ([]*model.AlarmEvent, error) {
	panic("not used by enqueue")
}

func (f *fakeAlarmRepo) MarkExpanded(context.Context, repository.Tx, uuid.UUID) error {
	panic("not used by enqueue")
}

func newTestService(repo *fakeAlarmRepo) *Service {
	return NewService(repo, logger.NewLogger(nil), metrics.New("test"))
}

func TestEnqueueCreatesPendingExpansionAlarm(t *testing.T) {
	repo := &fakeAlarmRepo{}
	svc := newTestService(repo)

	id, err := svc.Enqueue(context.Background(), "Pressure high", 5)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	require.Len(t, repo.created, 1)
	alarm := repo.created[0]
	assert.Equal(t, id, alarm.ID)
	assert.Equal(t, "Pressure high", alarm.Message)
	assert.Equal(t, 5, alarm.GroupNumber)
	assert.Equal(t, model.AlarmStatusPendingExpansion, alarm.Status)
}

func TestEnqueueRejectsEmptyMessage(t *testing.T) {
	repo := &fakeAlarmRepo{}
	svc := newTestService(repo)

	for _, message := range []string{"", "   ", "\t\n"} {
		_, err := svc.Enqueue(context.Background(), message, 5)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	}
	assert.Empty(t, repo.created, "nothing may be persisted on validation failure")
}

func TestEnqueueRejectsNonPositiveGroup(t *testing.T) {
	repo := &fakeAlarmRepo{}
	svc := newTestService(repo)

	for _, group := range []int{0, -1} {
		_, err := svc.Enqueue(context.Background(), "Pressure high", group)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	}
	assert.Empty(t, repo.created)
}

func TestEnqueueTrimsMessage(t *testing.T) {
	repo := &fakeAlarmRepo{}
	svc := newTestService(repo)

	_, err := svc.Enqueue(context.Background(), "  Pressure high  ", 5)
	require.NoError(t, err)
	assert.Equal(t, "Pressure high", repo.created[0].Message)
}

func TestEnqueueWrapsStoreErrors(t *testing.T) {
	repo := &fakeAlarmRepo{err: errors.New("connection refused")}
	svc := newTestService(repo)

	_, err := svc.Enqueue(context.Background(), "Pressure high", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsStoreUnavailable(err))
}
