package services

import (
	"context"
	"errors"

	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/proxy"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/google/uuid"
)

type DeleteService struct {
	sms   *SmsService
	gate  *proxy.AccessControl
	store SessionStore
}

func NewDeleteService(smsService *SmsService, gate *proxy.AccessControl, store SessionStore) *DeleteService {
	return &DeleteService{sms: smsService, gate: gate, store: store}
}

// DeleteOne removes a single message. Every outcome redirects to the list
// page the session last showed.
func (s *DeleteService) DeleteOne(ctx context.Context, p proxy.Principal, sessionID, rawID string) (Outcome, error) {
	out := s.listOutcome(ctx, sessionID)

	entity, flash, err := s.deletable(ctx, p, rawID)
	if err != nil {
		return Outcome{}, err
	}
	if flash != nil {
		out.Flashes = append(out.Flashes, *flash)
		return out, nil
	}

	if err := s.sms.DeleteEntity(ctx, p, entity); err != nil {
		if errors.Is(err, sms_errors.ErrVetoed) {
			out.Flashes = append(out.Flashes, vetoedFlash(entity.Name, err))
			return out, nil
		}
		if errors.Is(err, sms_errors.ErrNotFound) {
			out.Flashes = append(out.Flashes, notFoundFlash(rawID))
			return out, nil
		}
		return Outcome{}, err
	}

	out.Flashes = append(out.Flashes, deletedFlash(entity.Name, entity.ID.String()))
	return out, nil
}

// BatchDelete checks every id first, reports each rejected id as its own
// flash and removes the rest in one call.
func (s *DeleteService) BatchDelete(ctx context.Context, p proxy.Principal, sessionID string, rawIDs []string) (Outcome, error) {
	out := s.listOutcome(ctx, sessionID)

	survivors := make([]*sms.Sms, 0, len(rawIDs))
	seen := make(map[uuid.UUID]bool, len(rawIDs))
	for _, rawID := range rawIDs {
		entity, flash, err := s.deletable(ctx, p, rawID)
		if err != nil {
			return Outcome{}, err
		}
		if flash != nil {
			out.Flashes = append(out.Flashes, *flash)
			continue
		}
		if seen[entity.ID] {
			continue
		}
		seen[entity.ID] = true
		survivors = append(survivors, entity)
	}

	if len(survivors) == 0 {
		return out, nil
	}

	deleted, vetoed, err := s.sms.DeleteEntities(ctx, p, survivors)
	if err != nil {
		return Outcome{}, err
	}
	for _, entity := range survivors {
		if verr, ok := vetoed[entity.ID]; ok {
			out.Flashes = append(out.Flashes, vetoedFlash(entity.Name, verr))
		}
	}
	if len(deleted) > 0 {
		out.Flashes = append(out.Flashes, batchDeletedFlash(len(deleted)))
	}
	return out, nil
}

// deletable resolves rawID and runs the access and lock checks. A non-nil
// flash means the id is rejected.
func (s *DeleteService) deletable(ctx context.Context, p proxy.Principal, rawID string) (*sms.Sms, *Flash, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		f := notFoundFlash(rawID)
		return nil, &f, nil
	}

	entity, err := s.sms.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, sms_errors.ErrNotFound) {
			f := notFoundFlash(rawID)
			return nil, &f, nil
		}
		return nil, nil, err
	}

	if err := s.gate.CanDelete(p, entity.CreatedBy); err != nil {
		f := accessDeniedFlash(rawID)
		return nil, &f, nil
	}
	if s.sms.IsLocked(entity, p) {
		f := lockedFlash(entity.Name, lockHolder(entity))
		return nil, &f, nil
	}
	return entity, nil, nil
}

func (s *DeleteService) listOutcome(ctx context.Context, sessionID string) Outcome {
	page := currentPage(ctx, s.store, sessionID)
	return Outcome{Redirect: &Redirect{Page: page, URL: listURL(page)}}
}
