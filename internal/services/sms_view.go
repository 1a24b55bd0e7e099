package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sms-campaign/internal/domain/audit"
	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/events"
	"sms-campaign/internal/proxy"
	"sms-campaign/internal/repository"
	sms_errors "sms-campaign/pkg/errors"

	"github.com/google/uuid"
)

const (
	defaultHitsWindow = 30 * 24 * time.Hour
	auditLogLimit     = 50
)

// ContactPage is one page of per-recipient send stats.
type ContactPage struct {
	Items []sms.MessageStat `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type ViewDetail struct {
	Sms         *sms.Sms            `json:"sms"`
	ClickStats  []sms.TrackableLink `json:"click_stats"`
	AuditLog    []audit.Log         `json:"audit_log"`
	Permissions proxy.PermissionSet `json:"permissions"`
	Hits        []sms.HitPoint      `json:"hits"`
	Contacts    ContactPage         `json:"contacts"`
}

type ViewOutcome struct {
	Outcome
	Detail *ViewDetail `json:"detail,omitempty"`
}

type ViewService struct {
	sms          *SmsService
	gate         *proxy.AccessControl
	store        SessionStore
	stats        repository.StatsRepository
	audit        repository.AuditRepository
	defaultLimit int
	now          func() time.Time
}

func NewViewService(smsService *SmsService, gate *proxy.AccessControl, store SessionStore, stats repository.StatsRepository, auditRepo repository.AuditRepository, defaultLimit int) *ViewService {
	if defaultLimit < 1 {
		defaultLimit = 30
	}
	return &ViewService{
		sms:          smsService,
		gate:         gate,
		store:        store,
		stats:        stats,
		audit:        auditRepo,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// View assembles the detail page. from and to bound the hits series and
// default to the last 30 days; the series may span at most
// repository.MaxSeriesDays days.
func (s *ViewService) View(ctx context.Context, p proxy.Principal, sessionID string, id uuid.UUID, from, to *time.Time) (ViewOutcome, error) {
	entity, err := s.sms.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, sms_errors.ErrNotFound) {
			page := currentPage(ctx, s.store, sessionID)
			return ViewOutcome{Outcome: Outcome{
				State:    StateNotFound,
				Flashes:  []Flash{notFoundFlash(id.String())},
				Redirect: &Redirect{Page: page, URL: listURL(page)},
			}}, nil
		}
		return ViewOutcome{}, err
	}
	if err := s.gate.CanView(p, entity.CreatedBy); err != nil {
		return ViewOutcome{Outcome: Outcome{State: StateAccessDenied}}, err
	}

	end := s.now()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultHitsWindow)
	if from != nil {
		start = *from
	}
	if start.After(end) {
		return ViewOutcome{}, sms_errors.ErrInvalidInput
	}
	if days := repository.SeriesDays(start, end); days > repository.MaxSeriesDays {
		return ViewOutcome{}, fmt.Errorf("%w: hits window spans %d days, at most %d allowed", sms_errors.ErrInvalidInput, days, repository.MaxSeriesDays)
	}

	clicks, err := s.stats.ClickStats(ctx, id)
	if err != nil {
		return ViewOutcome{}, err
	}
	logs, err := s.audit.ForObject(ctx, events.AggregateTypeSms, id, entity.CreatedAt, auditLogLimit)
	if err != nil {
		return ViewOutcome{}, err
	}
	hits, err := s.stats.HitsSeries(ctx, id, start, end)
	if err != nil {
		return ViewOutcome{}, err
	}

	st, err := listState(ctx, s.store, sessionID, s.defaultLimit)
	if err != nil {
		return ViewOutcome{}, err
	}
	contacts, err := s.contactPage(ctx, id, st.ContactPage(id.String()), st.Limit)
	if err != nil {
		return ViewOutcome{}, err
	}

	return ViewOutcome{
		Outcome: Outcome{Sms: entity},
		Detail: &ViewDetail{
			Sms:         entity,
			ClickStats:  clicks,
			AuditLog:    logs,
			Permissions: s.gate.CheckBulk(p),
			Hits:        hits,
			Contacts:    contacts,
		},
	}, nil
}

// Preview returns the message for rendering. Missing messages and messages
// the caller may not view both report ErrNotFound.
func (s *ViewService) Preview(ctx context.Context, p proxy.Principal, id uuid.UUID) (*sms.Sms, error) {
	entity, err := s.sms.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanView(p, entity.CreatedBy); err != nil {
		return nil, sms_errors.ErrNotFound
	}
	return entity, nil
}

// Contacts returns a page of recipients and remembers it in the session.
func (s *ViewService) Contacts(ctx context.Context, p proxy.Principal, sessionID string, id uuid.UUID, page *int) (ContactPage, error) {
	entity, err := s.sms.GetEntity(ctx, id)
	if err != nil {
		return ContactPage{}, err
	}
	if err := s.gate.CanView(p, entity.CreatedBy); err != nil {
		return ContactPage{}, err
	}

	st, err := listState(ctx, s.store, sessionID, s.defaultLimit)
	if err != nil {
		return ContactPage{}, err
	}
	if page != nil {
		st.SetContactPage(id.String(), *page)
	}

	out, err := s.contactPage(ctx, id, st.ContactPage(id.String()), st.Limit)
	if err != nil {
		return ContactPage{}, err
	}
	if err := s.store.SaveListState(ctx, sessionID, st); err != nil {
		return ContactPage{}, err
	}
	return out, nil
}

func (s *ViewService) contactPage(ctx context.Context, id uuid.UUID, page, limit int) (ContactPage, error) {
	page = max(page, 1)
	items, total, err := s.stats.RecipientStats(ctx, id, pageOffset(page, limit), limit)
	if err != nil {
		return ContactPage{}, err
	}
	return ContactPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}
