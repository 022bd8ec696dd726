package queue

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
	apperrors "github.com/jwalitptl/scada-notifier/pkg/errors"
	"github.com/jwalitptl/scada-notifier/pkg/logger"
	"github.com/jwalitptl/scada-notifier/pkg/metrics"
)

// Service is the enqueue front door of the delivery queue.
type Service struct {
	alarms  repository.AlarmRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(alarms repository.AlarmRepository, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		alarms:  alarms,
		logger:  log,
		metrics: m,
	}
}

// Enqueue validates and persists one alarm event in PENDING_EXPANSION.
// Recipients are resolved later by the processor, not here, so enqueue
// stays a single durable write.
func (s *Service) Enqueue(ctx context.Context, message string, groupNumber int) (uuid.UUID, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return uuid.Nil, apperrors.NewValidation("alarm message must not be empty")
	}
	if groupNumber <= 0 {
		return uuid.Nil, apperrors.NewValidation("group number must be a positive integer")
	}

	alarm := &model.AlarmEvent{
		ID:          uuid.New(),
		Message:     message,
		GroupNumber: groupNumber,
		Status:      model.AlarmStatusPendingExpansion,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.alarms.Create(ctx, alarm); err != nil {
		s.metrics.DatabaseOperations.WithLabelValues("enqueue_alarm", "error").Inc()
		return uuid.Nil, apperrors.NewStoreUnavailable("enqueue", err)
	}
	s.metrics.DatabaseOperations.WithLabelValues("enqueue_alarm", "success").Inc()
	s.metrics.AlarmsEnqueued.Inc()

	s.logger.Info("alarm enqueued",
		"alarm_id", alarm.ID.String(),
		"group_number", groupNumber,
	)
	return alarm.ID, nil
}
