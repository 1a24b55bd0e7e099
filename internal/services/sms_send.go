package services

import (
	"context"
	"errors"
	"strings"

	"sms-campaign/internal/events"
	"sms-campaign/internal/gateway"
	"sms-campaign/internal/proxy"
	"sms-campaign/internal/redis"
	sms_errors "sms-campaign/pkg/errors"
	"sms-campaign/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExampleLimiter bounds how often one principal may send example messages.
type ExampleLimiter interface {
	AllowExample(ctx context.Context, userID string) (*redis.RateLimitResult, error)
}

type SendService struct {
	sms     *SmsService
	gate    *proxy.AccessControl
	bus     *events.Bus
	gateway gateway.Sender
	limiter ExampleLimiter
	logger  *logger.Logger
}

func NewSendService(smsService *SmsService, gate *proxy.AccessControl, bus *events.Bus, sender gateway.Sender, limiter ExampleLimiter, l *logger.Logger) *SendService {
	if l == nil {
		l = logger.NewNop()
	}
	return &SendService{
		sms:     smsService,
		gate:    gate,
		bus:     bus,
		gateway: sender,
		limiter: limiter,
		logger:  l,
	}
}

func exampleSentFlash() Flash {
	return Flash{Type: FlashNotice, Key: "sms.notice.test_sent_success", Message: "SMS example sent"}
}

func exampleFailedFlash(statuses []string) Flash {
	msg := strings.Join(statuses, "; ")
	return Flash{
		Type:    FlashError,
		Key:     "sms.notice.test_sent.failed",
		Message: msg,
		Vars:    map[string]string{"error": msg},
	}
}

// SendExample sends the message with id to number once. The returned
// outcome always asks the caller to close the send dialog.
func (s *SendService) SendExample(ctx context.Context, p proxy.Principal, id uuid.UUID, number string) (Outcome, error) {
	entity, err := s.sms.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, sms_errors.ErrNotFound) {
			return Outcome{State: StateNotFound, CloseModal: true, Flashes: []Flash{notFoundFlash(id.String())}}, nil
		}
		return Outcome{}, err
	}
	if err := s.gate.CanView(p, entity.CreatedBy); err != nil {
		return Outcome{State: StateAccessDenied, CloseModal: true, Flashes: []Flash{accessDeniedFlash(id.String())}}, err
	}

	number = strings.TrimSpace(number)
	if number == "" {
		return Outcome{Sms: entity, CloseModal: true, Flashes: []Flash{exampleSentFlash()}}, nil
	}

	if s.limiter != nil {
		res, err := s.limiter.AllowExample(ctx, p.ID.String())
		if err != nil {
			s.logger.WarnCtx(ctx, "example rate limit check failed", zap.Error(err))
		} else if !res.Allowed {
			return Outcome{}, sms_errors.ErrRateLimited
		}
	}

	content := s.bus.DispatchTokenReplacement(ctx, &events.TokenReplacementEvent{
		Content: entity.Message,
		Sms:     entity,
		Context: map[string]string{"source": "example", "recipient": number},
	})

	result, sendErr := s.gateway.Send(ctx, gateway.Message{To: number, Text: content, Reference: entity.ID.String()})
	s.bus.DispatchSend(ctx, &events.SendEvent{Sms: entity, Recipient: number, Content: content, Result: result})

	if sendErr != nil || !result.Success {
		statuses := result.Statuses
		if len(statuses) == 0 && sendErr != nil {
			statuses = []string{sendErr.Error()}
		}
		s.logger.WarnCtx(ctx, "example sms failed", zap.String("sms_id", id.String()), zap.Error(sendErr))
		return Outcome{Sms: entity, CloseModal: true, Flashes: []Flash{exampleFailedFlash(statuses)}}, nil
	}
	return Outcome{Sms: entity, CloseModal: true, Flashes: []Flash{exampleSentFlash()}}, nil
}
