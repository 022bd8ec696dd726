package processor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/scada-notifier/internal/gateway"
	"github.com/jwalitptl/scada-notifier/internal/model"
	"github.com/jwalitptl/scada-notifier/internal/repository"
)

// memStore is an in-memory stand-in for the postgres repositories. It
// mimics the claim discipline: rows claimed by an open transaction are
// invisible to other claims until that transaction finishes.
type memStore struct {
	mu                sync.Mutex
	alarms            map[uuid.UUID]*model.AlarmEvent
	alarmOrder        []uuid.UUID
	deliveries        map[uuid.UUID]*model.DeliveryAttempt
	deliveryOrder     []uuid.UUID
	audits            []*model.AuditEntry
	claimedAlarms     map[uuid.UUID]bool
	claimedDeliveries map[uuid.UUID]bool
	beginErr          error
	claimErr          error
}

func newMemStore() *memStore {
	return &memStore{
		alarms:            make(map[uuid.UUID]*model.AlarmEvent),
		deliveries:        make(map[uuid.UUID]*model.DeliveryAttempt),
		claimedAlarms:     make(map[uuid.UUID]bool),
		claimedDeliveries: make(map[uuid.UUID]bool),
	}
}

type memTx struct {
	store       *memStore
	alarmIDs    []uuid.UUID
	deliveryIDs []uuid.UUID
	done        bool
}

func (t *memTx) finish() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	for _, id := range t.alarmIDs {
		delete(t.store.claimedAlarms, id)
	}
	for _, id := range t.deliveryIDs {
		delete(t.store.claimedDeliveries, id)
	}
	return nil
}

func (t *memTx) Commit() error   { return t.finish() }
func (t *memTx) Rollback() error { return t.finish() }

func (s *memStore) BeginTx(context.Context) (repository.Tx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &memTx{store: s}, nil
}

func (s *memStore) Create(_ context.Context, alarm *model.AlarmEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alarm
	s.alarms[alarm.ID] = &cp
	s.alarmOrder = append(s.alarmOrder, alarm.ID)
	return nil
}

func (s *memStore) ClaimPendingExpansions(_ context.Context, tx repository.Tx, limit int) ([]*model.AlarmEvent, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mt := tx.(*memTx)
	var claimed []*model.AlarmEvent
	for _, id := range s.alarmOrder {
		if len(claimed) >= limit {
			break
		}
		alarm := s.alarms[id]
		if alarm.Status != model.AlarmStatusPendingExpansion || s.claimedAlarms[id] {
			continue
		}
		s.claimedAlarms[id] = true
		mt.alarmIDs = append(mt.alarmIDs, id)
		cp := *alarm
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (s *memStore) MarkExpanded(_ context.Context, _ repository.Tx, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alarm := s.alarms[id]
	alarm.Status = model.AlarmStatusExpanded
	alarm.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) CreateBatch(_ context.Context, _ repository.Tx, attempts []*model.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, attempt := range attempts {
		cp := *attempt
		s.deliveries[attempt.ID] = &cp
		s.deliveryOrder = append(s.deliveryOrder, attempt.ID)
	}
	return nil
}

func (s *memStore) ClaimSendable(_ context.Context, tx repository.Tx, limit, maxAttempts int) ([]*model.DeliveryAttempt, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mt := tx.(*memTx)
	var eligible []*model.DeliveryAttempt
	for _, id := range s.deliveryOrder {
		d := s.deliveries[id]
		sendable := d.Status == model.DeliveryStatusPendingSend || d.Status == model.DeliveryStatusFailedRetryable
		if !sendable || d.AttemptCount >= maxAttempts || s.claimedDeliveries[id] {
			continue
		}
		eligible = append(eligible, d)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].UpdatedAt.Before(eligible[j].UpdatedAt)
	})
	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	claimed := make([]*model.DeliveryAttempt, 0, len(eligible))
	for _, d := range eligible {
		s.claimedDeliveries[d.ID] = true
		mt.deliveryIDs = append(mt.deliveryIDs, d.ID)
		cp := *d
		if alarm, ok := s.alarms[d.AlarmEventID]; ok {
			cp.Message = alarm.Message
		}
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (s *memStore) RecordOutcome(_ context.Context, _ repository.Tx, id uuid.UUID, status model.DeliveryStatus, lastError *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deliveries[id]
	if d.Status.IsTerminal() {
		return false, nil
	}
	d.Status = status
	d.AttemptCount++
	d.LastError = lastError
	d.UpdatedAt = time.Now()
	return true, nil
}

func (s *memStore) CreateAudit(_ context.Context, _ repository.Tx, entry *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.audits = append(s.audits, &cp)
	return nil
}

// auditAdapter exposes memStore as an AuditRepository without colliding
// with the AlarmRepository Create method.
type auditAdapter struct{ store *memStore }

func (a auditAdapter) Create(ctx context.Context, tx repository.Tx, entry *model.AuditEntry) error {
	return a.store.CreateAudit(ctx, tx, entry)
}

func (s *memStore) deliveriesForAlarm(alarmID uuid.UUID) []*model.DeliveryAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.DeliveryAttempt
	for _, id := range s.deliveryOrder {
		d := s.deliveries[id]
		if d.AlarmEventID == alarmID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out
}

type fakeResolver struct {
	groups map[int][]model.Recipient
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, groupNumber int) ([]model.Recipient, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.groups[groupNumber], nil
}

type senderFunc func(ctx context.Context, phoneNumber, message string) gateway.Result

func (f senderFunc) Send(ctx context.Context, phoneNumber, message string) gateway.Result {
	return f(ctx, phoneNumber, message)
}
