package recipient

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
	"github.com/jwalitptl/scada-notifier/pkg/logger"
)

const (
	cacheTTL     = 30 * time.Second
	cacheCleanup = time.Minute
)

// Service resolves a group number to its eligible recipients. Lookups are
// cached briefly so a pass expanding many alarms for the same group hits
// the store once.
type Service struct {
	users  repository.UserRepository
	cache  *cache.Cache
	logger *logger.Logger
}

func NewService(users repository.UserRepository, log *logger.Logger) *Service {
	return &Service{
		users:  users,
		cache:  cache.New(cacheTTL, cacheCleanup),
		logger: log,
	}
}

// Resolve returns the SMS-eligible members of the group ordered by user
// id. An empty result is a normal outcome, not an error.
func (s *Service) Resolve(ctx context.Context, groupNumber int) ([]model.Recipient, error) {
	key := fmt.Sprintf("group:%d", groupNumber)
	if cached, found := s.cache.Get(key); found {
		return cached.([]model.Recipient), nil
	}

	recipients, err := s.users.FindGroupRecipients(ctx, groupNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve group %d: %w", groupNumber, err)
	}

	if len(recipients) == 0 {
		s.logger.Info("group resolved to zero eligible recipients", "group_number", groupNumber)
	}

	s.cache.Set(key, recipients, cache.DefaultExpiration)
	return recipients, nil
}
