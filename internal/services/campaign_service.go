package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/events"
	"sms-campaign/internal/gateway"
	"sms-campaign/internal/metrics"
	"sms-campaign/internal/repository"
	sms_errors "sms-campaign/pkg/errors"
	"sms-campaign/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const statusUnpublished = "sms unpublished"

// CampaignService sends messages on behalf of campaign triggers.
type CampaignService struct {
	sms     *SmsService
	stats   repository.StatsRepository
	bus     *events.Bus
	gateway gateway.Sender
	logger  *logger.Logger
	now     func() time.Time
}

func NewCampaignService(smsService *SmsService, stats repository.StatsRepository, bus *events.Bus, sender gateway.Sender, l *logger.Logger) *CampaignService {
	if l == nil {
		l = logger.NewNop()
	}
	return &CampaignService{
		sms:     smsService,
		stats:   stats,
		bus:     bus,
		gateway: sender,
		logger:  l,
		now:     time.Now,
	}
}

// Trigger sends the triggered message to one contact. ON_SEND fires for
// every send attempt. A gateway that is unavailable reports
// ErrServiceUnavailable so the trigger can be retried; any other failed
// send is recorded and returned as a failed Result.
func (s *CampaignService) Trigger(ctx context.Context, t sms.CampaignTrigger) (gateway.Result, error) {
	entity, err := s.sms.GetEntity(ctx, t.SmsID)
	if err != nil {
		metrics.CampaignTriggersTotal.WithLabelValues("error").Inc()
		return gateway.Result{}, err
	}

	if !entity.IsSendable(s.now()) {
		metrics.CampaignTriggersTotal.WithLabelValues("unpublished").Inc()
		result := gateway.Result{Statuses: []string{statusUnpublished}}
		s.bus.DispatchCampaignTrigger(ctx, &events.CampaignTriggerEvent{Trigger: t, Sms: entity, Result: &result})
		return result, nil
	}

	s.bus.DispatchCampaignTrigger(ctx, &events.CampaignTriggerEvent{Trigger: t, Sms: entity})

	content := s.bus.DispatchTokenReplacement(ctx, &events.TokenReplacementEvent{
		Content: entity.Message,
		Sms:     entity,
		Context: map[string]string{"source": "campaign", "campaign_id": t.CampaignID, "event_id": t.EventID},
		Tokens:  t.Tokens,
	})

	result, sendErr := s.gateway.Send(ctx, gateway.Message{To: t.PhoneNumber, Text: content, Reference: t.EventID})
	if sendErr != nil {
		result.Success = false
		if len(result.Statuses) == 0 {
			result.Statuses = []string{sendErr.Error()}
		}
	}
	s.bus.DispatchSend(ctx, &events.SendEvent{Sms: entity, Recipient: t.PhoneNumber, Content: content, Result: result})

	if errors.Is(sendErr, gateway.ErrUnavailable) {
		metrics.CampaignTriggersTotal.WithLabelValues("retry").Inc()
		return result, sms_errors.ErrServiceUnavailable
	}

	stat := &sms.MessageStat{
		ID:           uuid.New(),
		SmsID:        entity.ID,
		ContactID:    t.ContactID,
		CampaignID:   t.CampaignID,
		PhoneNumber:  t.PhoneNumber,
		DateSent:     s.now(),
		IsFailed:     !result.Success,
		Status:       strings.Join(result.Statuses, "; "),
		TrackingHash: result.MessageID,
	}
	if err := s.stats.RecordStat(ctx, stat); err != nil {
		s.logger.ErrorCtx(ctx, "failed to record sms stat", zap.String("sms_id", entity.ID.String()), zap.Error(err))
	}

	if !result.Success {
		metrics.CampaignTriggersTotal.WithLabelValues("failed").Inc()
		return result, nil
	}

	if err := s.sms.repo.IncrementSentCount(ctx, entity.ID); err != nil {
		s.logger.ErrorCtx(ctx, "failed to increment sent count", zap.String("sms_id", entity.ID.String()), zap.Error(err))
	}
	metrics.CampaignTriggersTotal.WithLabelValues("sent").Inc()
	return result, nil
}
