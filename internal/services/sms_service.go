package services

import (
	"context"
	"errors"
	"time"

	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/events"
	"sms-campaign/internal/metrics"
	"sms-campaign/internal/proxy"
	"sms-campaign/internal/repository"
	sms_errors "sms-campaign/pkg/errors"
	"sms-campaign/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SmsService wraps the repository with validation, locking and lifecycle events.
type SmsService struct {
	repo    repository.SmsRepository
	bus     *events.Bus
	lockTTL time.Duration
	logger  *logger.Logger
	now     func() time.Time
}

func NewSmsService(repo repository.SmsRepository, bus *events.Bus, lockTTL time.Duration, l *logger.Logger) *SmsService {
	if l == nil {
		l = logger.NewNop()
	}
	return &SmsService{
		repo:    repo,
		bus:     bus,
		lockTTL: lockTTL,
		logger:  l,
		now:     time.Now,
	}
}

func (s *SmsService) GetEntities(ctx context.Context, q repository.ListQuery) ([]sms.Sms, int64, error) {
	return s.repo.List(ctx, q)
}

func (s *SmsService) GetEntity(ctx context.Context, id uuid.UUID) (*sms.Sms, error) {
	entity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// NewEntity returns a transient message with defaults applied.
func (s *SmsService) NewEntity() *sms.Sms {
	return sms.New()
}

func (s *SmsService) CloneEntity(entity *sms.Sms) *sms.Sms {
	return entity.Clone()
}

// SaveEntity validates and persists entity between the pre and post save
// events. A new entity takes p as its owner.
func (s *SmsService) SaveEntity(ctx context.Context, p proxy.Principal, entity *sms.Sms, unlock bool) error {
	if err := validateSms(entity); err != nil {
		return err
	}

	isNew := entity.IsNew()
	if isNew {
		entity.CreatedBy = p.ID
		entity.CreatedByUser = p.Name
	} else {
		modifiedBy := p.ID
		entity.ModifiedBy = &modifiedBy
	}

	ev := &events.SmsEvent{Sms: entity, Principal: p, IsNew: isNew}
	if err := s.bus.DispatchSms(ctx, events.SmsPreSave, ev); err != nil {
		metrics.LifecycleEventsTotal.WithLabelValues("save", "vetoed").Inc()
		return err
	}

	var err error
	if isNew {
		err = s.repo.Create(ctx, entity)
	} else {
		err = s.repo.Update(ctx, entity, unlock)
	}
	if err != nil {
		metrics.LifecycleEventsTotal.WithLabelValues("save", "error").Inc()
		return err
	}

	metrics.LifecycleEventsTotal.WithLabelValues("save", "ok").Inc()
	return s.bus.DispatchSms(ctx, events.SmsPostSave, ev)
}

func (s *SmsService) DeleteEntity(ctx context.Context, p proxy.Principal, entity *sms.Sms) error {
	ev := &events.SmsEvent{Sms: entity, Principal: p}
	if err := s.bus.DispatchSms(ctx, events.SmsPreDelete, ev); err != nil {
		metrics.LifecycleEventsTotal.WithLabelValues("delete", "vetoed").Inc()
		return err
	}
	if err := s.repo.Delete(ctx, entity.ID); err != nil {
		metrics.LifecycleEventsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.LifecycleEventsTotal.WithLabelValues("delete", "ok").Inc()
	return s.bus.DispatchSms(ctx, events.SmsPostDelete, ev)
}

// DeleteEntities fires the pre delete event per entity, removes every entity
// no listener vetoed in one call, then fires the post delete events. Vetoed
// entities are returned keyed by id.
func (s *SmsService) DeleteEntities(ctx context.Context, p proxy.Principal, entities []*sms.Sms) ([]sms.Sms, map[uuid.UUID]error, error) {
	vetoed := map[uuid.UUID]error{}
	byID := make(map[uuid.UUID]*events.SmsEvent, len(entities))
	ids := make([]uuid.UUID, 0, len(entities))

	for _, entity := range entities {
		ev := &events.SmsEvent{Sms: entity, Principal: p}
		if err := s.bus.DispatchSms(ctx, events.SmsPreDelete, ev); err != nil {
			if !errors.Is(err, sms_errors.ErrVetoed) {
				return nil, vetoed, err
			}
			vetoed[entity.ID] = err
			continue
		}
		byID[entity.ID] = ev
		ids = append(ids, entity.ID)
	}

	if len(ids) == 0 {
		return nil, vetoed, nil
	}

	deleted, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		metrics.LifecycleEventsTotal.WithLabelValues("batch_delete", "error").Inc()
		return nil, vetoed, err
	}
	metrics.LifecycleEventsTotal.WithLabelValues("batch_delete", "ok").Inc()

	for i := range deleted {
		ev, ok := byID[deleted[i].ID]
		if !ok {
			continue
		}
		if err := s.bus.DispatchSms(ctx, events.SmsPostDelete, ev); err != nil {
			s.logger.WarnCtx(ctx, "post delete dispatch failed", zap.String("sms_id", deleted[i].ID.String()), zap.Error(err))
		}
	}
	return deleted, vetoed, nil
}

// IsLocked reports whether someone other than p holds a live lock.
func (s *SmsService) IsLocked(entity *sms.Sms, p proxy.Principal) bool {
	return entity.IsLockedFor(p.ID, s.now(), s.lockTTL)
}

func (s *SmsService) Lock(ctx context.Context, entity *sms.Sms, p proxy.Principal) error {
	if err := s.repo.Lock(ctx, entity.ID, p.ID, p.Name, s.lockTTL); err != nil {
		return err
	}
	now := s.now()
	holder := p.ID
	entity.CheckedOut = &now
	entity.CheckedOutBy = &holder
	entity.CheckedOutByUser = p.Name
	return nil
}

func (s *SmsService) Unlock(ctx context.Context, entity *sms.Sms) error {
	if err := s.repo.Unlock(ctx, entity.ID); err != nil {
		return err
	}
	entity.CheckedOut = nil
	entity.CheckedOutBy = nil
	entity.CheckedOutByUser = ""
	return nil
}

// lockHolder names whoever holds the lock on entity.
func lockHolder(entity *sms.Sms) string {
	if entity.CheckedOutByUser != "" {
		return entity.CheckedOutByUser
	}
	if entity.CheckedOutBy != nil {
		return entity.CheckedOutBy.String()
	}
	return "another user"
}
