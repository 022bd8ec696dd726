package processor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/scada-notifier/internal/config"
	"github.com/jwalitptl/scada-notifier/internal/gateway"
	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
	apperrors "github.com/jwalitptl/scada-notifier/pkg/errors"
	"github.com/jwalitptl/scada-notifier/pkg/logger"
	"github.com/jwalitptl/scada-notifier/pkg/metrics"
)

// Resolver maps a group number to its eligible recipients.
type Resolver interface {
	Resolve(ctx context.Context, groupNumber int) ([]model.Recipient, error)
}

// Summary reports what one processing pass did.
type Summary struct {
	AlarmsExpanded    int
	RecipientsCreated int
	Sent              int
	Retried           int
	FailedPermanent   int
	AlreadyTerminal   int
}

// Processor drives queued alarms to completion in two phases: expansion of
// alarms into per-recipient delivery attempts, then one gateway attempt
// per sendable row. It performs exactly one bounded pass per Run call;
// scheduling repeated passes belongs to the caller.
type Processor struct {
	alarms     repository.AlarmRepository
	deliveries repository.DeliveryRepository
	audits     repository.AuditRepository
	resolver   Resolver
	sender     gateway.Sender
	cfg        config.QueueConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func New(
	alarms repository.AlarmRepository,
	deliveries repository.DeliveryRepository,
	audits repository.AuditRepository,
	resolver Resolver,
	sender gateway.Sender,
	cfg config.QueueConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *Processor {
	return &Processor{
		alarms:     alarms,
		deliveries: deliveries,
		audits:     audits,
		resolver:   resolver,
		sender:     sender,
		cfg:        cfg,
		logger:     log,
		metrics:    m,
	}
}

// Run performs one pass. Per-recipient gateway failures are contained in
// the delivery rows; only an unreachable store makes Run itself fail.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	timer := prometheus.NewTimer(p.metrics.PassDuration)
	defer timer.ObserveDuration()

	var summary Summary
	if err := p.expandAlarms(ctx, &summary); err != nil {
		return summary, err
	}
	if err := p.sendDeliveries(ctx, &summary); err != nil {
		return summary, err
	}

	p.logger.Info("processing pass complete",
		"expanded", summary.AlarmsExpanded,
		"recipients", summary.RecipientsCreated,
		"sent", summary.Sent,
		"retried", summary.Retried,
		"failed_permanent", summary.FailedPermanent,
	)
	return summary, nil
}

// expandAlarms claims unexpanded alarms and creates one PENDING_SEND row
// per resolved recipient. The claim, the inserts and the status flip
// commit together, so an alarm is either fully expanded or untouched.
func (p *Processor) expandAlarms(ctx context.Context, summary *Summary) error {
	tx, err := p.alarms.BeginTx(ctx)
	if err != nil {
		return apperrors.NewStoreUnavailable("expansion", err)
	}
	defer tx.Rollback()

	alarms, err := p.alarms.ClaimPendingExpansions(ctx, tx, p.cfg.ExpansionBatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_expansions", "error").Inc()
		return apperrors.NewStoreUnavailable("expansion", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_expansions", "success").Inc()

	for _, alarm := range alarms {
		recipients, err := p.resolver.Resolve(ctx, alarm.GroupNumber)
		if err != nil {
			// Leave this alarm PENDING_EXPANSION for a later run.
			p.logger.Error(err, "failed to resolve recipients",
				"alarm_id", alarm.ID.String(),
				"group_number", alarm.GroupNumber,
			)
			continue
		}

		if len(recipients) > 0 {
			attempts := buildAttempts(alarm, recipients)
			if err := p.deliveries.CreateBatch(ctx, tx, attempts); err != nil {
				return apperrors.NewStoreUnavailable("expansion", err)
			}
		}
		if err := p.alarms.MarkExpanded(ctx, tx, alarm.ID); err != nil {
			return apperrors.NewStoreUnavailable("expansion", err)
		}

		summary.AlarmsExpanded++
		summary.RecipientsCreated += len(recipients)
		p.metrics.AlarmsExpanded.Inc()
		p.metrics.RecipientsResolved.Add(float64(len(recipients)))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreUnavailable("expansion", err)
	}
	return nil
}

// sendDeliveries claims sendable rows, makes one gateway attempt each and
// records the outcome. One attempt's failure never blocks the rest.
func (p *Processor) sendDeliveries(ctx context.Context, summary *Summary) error {
	tx, err := p.deliveries.BeginTx(ctx)
	if err != nil {
		return apperrors.NewStoreUnavailable("send", err)
	}
	defer tx.Rollback()

	attempts, err := p.deliveries.ClaimSendable(ctx, tx, p.cfg.SendBatchSize, p.cfg.MaxAttempts)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_sendable", "error").Inc()
		return apperrors.NewStoreUnavailable("send", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_sendable", "success").Inc()

	for _, attempt := range attempts {
		result := p.sender.Send(ctx, attempt.PhoneNumber, attempt.Message)
		status, lastError := p.transition(attempt, result)

		updated, err := p.deliveries.RecordOutcome(ctx, tx, attempt.ID, status, lastError)
		if err != nil {
			p.logger.Error(err, "failed to record outcome", "attempt_id", attempt.ID.String())
			continue
		}
		if !updated {
			p.logger.Warn("attempt already terminal, outcome discarded",
				"attempt_id", attempt.ID.String(),
			)
			summary.AlreadyTerminal++
			continue
		}

		p.writeAudit(ctx, tx, attempt, result)

		switch status {
		case model.DeliveryStatusSent:
			summary.Sent++
			p.metrics.DeliveriesSent.Inc()
		case model.DeliveryStatusFailedRetryable:
			summary.Retried++
			p.metrics.DeliveriesRetried.Inc()
		case model.DeliveryStatusFailedPermanent:
			summary.FailedPermanent++
			p.metrics.DeliveriesFailed.Inc()
			p.logger.Warn("delivery failed permanently",
				"attempt_id", attempt.ID.String(),
				"phone_number", attempt.PhoneNumber,
				"attempt_count", attempt.AttemptCount+1,
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreUnavailable("send", err)
	}
	return nil
}

// transition maps a gateway result to the next delivery status.
func (p *Processor) transition(attempt *model.DeliveryAttempt, result gateway.Result) (model.DeliveryStatus, *string) {
	switch result.Outcome {
	case gateway.Success:
		return model.DeliveryStatusSent, nil
	case gateway.RetryableFailure:
		errText := result.ErrorText()
		if attempt.AttemptCount+1 >= p.cfg.MaxAttempts {
			return model.DeliveryStatusFailedPermanent, &errText
		}
		return model.DeliveryStatusFailedRetryable, &errText
	default:
		errText := result.ErrorText()
		return model.DeliveryStatusFailedPermanent, &errText
	}
}

func (p *Processor) writeAudit(ctx context.Context, tx repository.Tx, attempt *model.DeliveryAttempt, result gateway.Result) {
	var response *string
	if result.Body != "" {
		response = &result.Body
	} else if result.Err != nil {
		errText := result.Err.Error()
		response = &errText
	}

	entry := &model.AuditEntry{
		AlarmEventID:    attempt.AlarmEventID,
		UserID:          attempt.UserID,
		AlarmMessage:    attempt.Message,
		Status:          result.Outcome.String(),
		GatewayResponse: response,
	}
	if err := p.audits.Create(ctx, tx, entry); err != nil {
		// The attempt row still carries the outcome; losing the audit
		// detail is not worth failing the delivery over.
		p.logger.Error(err, "failed to write audit entry", "attempt_id", attempt.ID.String())
	}
}

func buildAttempts(alarm *model.AlarmEvent, recipients []model.Recipient) []*model.DeliveryAttempt {
	now := time.Now()
	attempts := make([]*model.DeliveryAttempt, 0, len(recipients))
	for _, r := range recipients {
		attempts = append(attempts, &model.DeliveryAttempt{
			ID:           uuid.New(),
			AlarmEventID: alarm.ID,
			UserID:       r.UserID,
			PhoneNumber:  r.PhoneNumber,
			Status:       model.DeliveryStatusPendingSend,
			AttemptCount: 0,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return attempts
}
