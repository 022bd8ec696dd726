package recipient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/pkg/logger"
)

type fakeUserRepo struct {
	recipients map[int][]model.Recipient
	err        error
	calls      int
}

func (f *fakeUserRepo) FindGroupRecipients(_ context.Context, groupNumber int) ([]model.Recipient, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.recipients[groupNumber], nil
}

func TestResolveReturnsGroupMembers(t *testing.T) {
	repo := &fakeUserRepo{recipients: map[int][]model.Recipient{
		5: {
			{UserID: 1, PhoneNumber: "+15550001111"},
			{UserID: 2, PhoneNumber: "+15550002222"},
		},
	}}
	svc := NewService(repo, logger.NewLogger(nil))

	got, err := svc.Resolve(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].UserID)
	assert.Equal(t, int64(2), got[1].UserID)
}

func TestResolveEmptyGroupIsNotAnError(t *testing.T) {
	repo := &fakeUserRepo{recipients: map[int][]model.Recipient{}}
	svc := NewService(repo, logger.NewLogger(nil))

	got, err := svc.Resolve(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveCachesLookups(t *testing.T) {
	repo := &fakeUserRepo{recipients: map[int][]model.Recipient{
		5: {{UserID: 1, PhoneNumber: "+15550001111"}},
	}}
	svc := NewService(repo, logger.NewLogger(nil))

	for i := 0; i < 3; i++ {
		got, err := svc.Resolve(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 1, repo.calls, "repeated lookups within the TTL must hit the store once")
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	repo := &fakeUserRepo{err: errors.New("connection refused")}
	svc := NewService(repo, logger.NewLogger(nil))

	_, err := svc.Resolve(context.Background(), 5)
	assert.Error(t, err)
	assert.Equal(t, 1, repo.calls)
}
