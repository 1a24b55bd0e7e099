package services

import (
	"context"
	"errors"

	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/proxy"
	sms_errors "sms-campaign/pkg/errors"
	"sms-campaign/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// newDraftKey stages content for entities that do not exist yet.
const newDraftKey = "new"

// FormService drives the new, clone and edit workflow.
type FormService struct {
	sms    *SmsService
	gate   *proxy.AccessControl
	store  SessionStore
	logger *logger.Logger
}

func NewFormService(smsService *SmsService, gate *proxy.AccessControl, store SessionStore, l *logger.Logger) *FormService {
	if l == nil {
		l = logger.NewNop()
	}
	return &FormService{sms: smsService, gate: gate, store: store, logger: l}
}

func (s *FormService) OpenNew(ctx context.Context, p proxy.Principal, sessionID string) (Outcome, error) {
	if err := s.gate.CanCreate(p); err != nil {
		return Outcome{State: StateAccessDenied}, err
	}
	out := Outcome{State: StateEditing, Sms: s.sms.NewEntity()}
	out.Draft = s.loadDraft(ctx, sessionID, newDraftKey)
	return out, nil
}

func (s *FormService) OpenClone(ctx context.Context, p proxy.Principal, sessionID string, id uuid.UUID) (Outcome, error) {
	source, out, err := s.cloneSource(ctx, p, sessionID, id)
	if source == nil {
		return out, err
	}
	return Outcome{State: StateEditing, Sms: s.sms.CloneEntity(source)}, nil
}

func (s *FormService) OpenEdit(ctx context.Context, p proxy.Principal, sessionID string, id uuid.UUID) (Outcome, error) {
	entity, out, err := s.editable(ctx, p, sessionID, id)
	if entity == nil {
		return out, err
	}

	if err := s.sms.Lock(ctx, entity, p); err != nil {
		var locked *sms_errors.LockedError
		if errors.As(err, &locked) {
			holder := locked.HolderName
			if holder == "" {
				holder = locked.HolderID.String()
			}
			return s.lockedOutcome(ctx, sessionID, entity.Name, holder), nil
		}
		return Outcome{}, err
	}

	return Outcome{
		State: StateEditing,
		Sms:   entity,
		Draft: s.loadDraft(ctx, sessionID, entity.ID.String()),
	}, nil
}

func (s *FormService) SubmitNew(ctx context.Context, p proxy.Principal, sessionID string, form SmsForm, action FormAction) (Outcome, error) {
	if err := s.gate.CanCreate(p); err != nil {
		return Outcome{State: StateAccessDenied}, err
	}
	return s.submitNew(ctx, p, sessionID, s.sms.NewEntity(), form, action)
}

// SubmitClone saves a new message seeded from the message with the given id.
func (s *FormService) SubmitClone(ctx context.Context, p proxy.Principal, sessionID string, sourceID uuid.UUID, form SmsForm, action FormAction) (Outcome, error) {
	source, out, err := s.cloneSource(ctx, p, sessionID, sourceID)
	if source == nil {
		return out, err
	}
	return s.submitNew(ctx, p, sessionID, s.sms.CloneEntity(source), form, action)
}

func (s *FormService) submitNew(ctx context.Context, p proxy.Principal, sessionID string, entity *sms.Sms, form SmsForm, action FormAction) (Outcome, error) {
	if action == ActionCancel {
		s.clearDraft(ctx, sessionID, newDraftKey)
		page := currentPage(ctx, s.store, sessionID)
		return Outcome{State: StateCancelled, Redirect: &Redirect{Page: page, URL: listURL(page)}}, nil
	}

	form.applyTo(entity, s.gate.Has(p, proxy.PublishOwn) || s.gate.Has(p, proxy.PublishOther))

	out, saved, err := s.save(ctx, p, entity, false)
	if !saved {
		return out, err
	}

	s.clearDraft(ctx, sessionID, newDraftKey)
	flash := createdFlash(entity.Name, entity.ID.String())

	if action == ActionApply {
		if err := s.sms.Lock(ctx, entity, p); err != nil {
			return Outcome{}, err
		}
		return Outcome{State: StateEditing, Sms: entity, Flashes: []Flash{flash}}, nil
	}
	return Outcome{
		State:    StateSaved,
		Sms:      entity,
		Flashes:  []Flash{flash},
		Redirect: &Redirect{URL: detailURL(entity.ID.String())},
	}, nil
}

func (s *FormService) SubmitEdit(ctx context.Context, p proxy.Principal, sessionID string, id uuid.UUID, form SmsForm, action FormAction) (Outcome, error) {
	entity, out, err := s.editable(ctx, p, sessionID, id)
	if entity == nil {
		return out, err
	}

	if action == ActionCancel {
		s.clearDraft(ctx, sessionID, id.String())
		if err := s.sms.Unlock(ctx, entity); err != nil {
			return Outcome{}, err
		}
		return Outcome{
			State:    StateCancelled,
			Sms:      entity,
			Redirect: &Redirect{URL: detailURL(id.String())},
		}, nil
	}

	form.applyTo(entity, s.gate.CanPublish(p, entity.CreatedBy) == nil)

	unlock := action == ActionSave
	out, saved, err := s.save(ctx, p, entity, unlock)
	if !saved {
		return out, err
	}

	s.clearDraft(ctx, sessionID, id.String())
	flash := updatedFlash(entity.Name, id.String())

	if action == ActionApply {
		if err := s.sms.Lock(ctx, entity, p); err != nil {
			return Outcome{}, err
		}
		return Outcome{State: StateEditing, Sms: entity, Flashes: []Flash{flash}}, nil
	}
	return Outcome{
		State:    StateSaved,
		Sms:      entity,
		Flashes:  []Flash{flash},
		Redirect: &Redirect{URL: detailURL(id.String())},
	}, nil
}

// SaveDraft stages form content for the entity being edited without saving it.
func (s *FormService) SaveDraft(ctx context.Context, p proxy.Principal, sessionID string, id uuid.UUID, form SmsForm) (Outcome, error) {
	entity, out, err := s.editable(ctx, p, sessionID, id)
	if entity == nil {
		return out, err
	}
	if err := s.store.SaveDraft(ctx, sessionID, id.String(), form); err != nil {
		return Outcome{}, err
	}
	return Outcome{State: StateEditing, Sms: entity, Draft: &form}, nil
}

// save runs validation and persistence. saved is false when the caller
// should return out and err as they are.
func (s *FormService) save(ctx context.Context, p proxy.Principal, entity *sms.Sms, unlock bool) (Outcome, bool, error) {
	err := s.sms.SaveEntity(ctx, p, entity, unlock)
	if err == nil {
		return Outcome{}, true, nil
	}

	var verr *sms_errors.ValidationError
	switch {
	case errors.As(err, &verr):
		return Outcome{State: StateEditing, Sms: entity, Errors: verr.Fields}, false, nil
	case errors.Is(err, sms_errors.ErrVetoed):
		return Outcome{State: StateEditing, Sms: entity, Flashes: []Flash{vetoedFlash(entity.Name, err)}}, false, nil
	}
	return Outcome{}, false, err
}

// editable loads id and checks view, edit and lock state. A nil entity
// means the returned outcome and error end the workflow.
func (s *FormService) editable(ctx context.Context, p proxy.Principal, sessionID string, id uuid.UUID) (*sms.Sms, Outcome, error) {
	entity, err := s.sms.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, sms_errors.ErrNotFound) {
			return nil, s.notFoundOutcome(ctx, sessionID, id.String()), nil
		}
		return nil, Outcome{}, err
	}
	if err := s.gate.CanView(p, entity.CreatedBy); err != nil {
		return nil, Outcome{State: StateAccessDenied}, err
	}
	if err := s.gate.CanEdit(p, entity.CreatedBy); err != nil {
		return nil, Outcome{State: StateAccessDenied}, err
	}
	if s.sms.IsLocked(entity, p) {
		return nil, s.lockedOutcome(ctx, sessionID, entity.Name, lockHolder(entity)), nil
	}
	return entity, Outcome{}, nil
}

func (s *FormService) cloneSource(ctx context.Context, p proxy.Principal, sessionID string, id uuid.UUID) (*sms.Sms, Outcome, error) {
	source, err := s.sms.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, sms_errors.ErrNotFound) {
			return nil, s.notFoundOutcome(ctx, sessionID, id.String()), nil
		}
		return nil, Outcome{}, err
	}
	if err := s.gate.CanCreate(p); err != nil {
		return nil, Outcome{State: StateAccessDenied}, err
	}
	if err := s.gate.CanView(p, source.CreatedBy); err != nil {
		return nil, Outcome{State: StateAccessDenied}, err
	}
	return source, Outcome{}, nil
}

func (s *FormService) notFoundOutcome(ctx context.Context, sessionID, id string) Outcome {
	page := currentPage(ctx, s.store, sessionID)
	return Outcome{
		State:    StateNotFound,
		Flashes:  []Flash{notFoundFlash(id)},
		Redirect: &Redirect{Page: page, URL: listURL(page)},
	}
}

func (s *FormService) lockedOutcome(ctx context.Context, sessionID, name, holder string) Outcome {
	page := currentPage(ctx, s.store, sessionID)
	return Outcome{
		State:    StateLocked,
		Flashes:  []Flash{lockedFlash(name, holder)},
		Redirect: &Redirect{Page: page, URL: listURL(page)},
	}
}

func (s *FormService) loadDraft(ctx context.Context, sessionID, key string) *SmsForm {
	var draft SmsForm
	ok, err := s.store.LoadDraft(ctx, sessionID, key, &draft)
	if err != nil {
		s.logger.WarnCtx(ctx, "failed to load draft", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return &draft
}

func (s *FormService) clearDraft(ctx context.Context, sessionID, key string) {
	if err := s.store.ClearDraft(ctx, sessionID, key); err != nil {
		s.logger.WarnCtx(ctx, "failed to clear draft", zap.String("key", key), zap.Error(err))
	}
}
