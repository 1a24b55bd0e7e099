package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sms_errors "sms-campaign/pkg/errors"
	"sms-campaign/pkg/logger"

	"go.uber.org/zap"
)

var ErrBusClosed = errors.New("event bus closed")

type SmsListener func(ctx context.Context, e *SmsEvent) error
type SendListener func(ctx context.Context, e *SendEvent) error
type TokenListener func(ctx context.Context, e *TokenReplacementEvent) error
type CampaignListener func(ctx context.Context, e *CampaignTriggerEvent) error

// Bus runs listeners synchronously, in registration order, on the
// dispatching goroutine.
type Bus struct {
	mu       sync.RWMutex
	logger   *logger.Logger
	closed   bool
	sms      map[Kind][]SmsListener
	send     []SendListener
	tokens   []TokenListener
	campaign []CampaignListener
}

func NewBus(l *logger.Logger) *Bus {
	if l == nil {
		l = logger.NewNop()
	}
	return &Bus{
		logger: l,
		sms:    make(map[Kind][]SmsListener),
	}
}

func (b *Bus) OnPreSave(l SmsListener) error    { return b.onSms(SmsPreSave, l) }
func (b *Bus) OnPostSave(l SmsListener) error   { return b.onSms(SmsPostSave, l) }
func (b *Bus) OnPreDelete(l SmsListener) error  { return b.onSms(SmsPreDelete, l) }
func (b *Bus) OnPostDelete(l SmsListener) error { return b.onSms(SmsPostDelete, l) }

func (b *Bus) OnSend(l SendListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.send = append(b.send, l)
	return nil
}

func (b *Bus) OnTokenReplacement(l TokenListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.tokens = append(b.tokens, l)
	return nil
}

func (b *Bus) OnCampaignTrigger(l CampaignListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.campaign = append(b.campaign, l)
	return nil
}

func (b *Bus) onSms(kind Kind, l SmsListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.sms[kind] = append(b.sms[kind], l)
	return nil
}

// DispatchSms fires one of the save/delete kinds. For pre kinds the first
// failing listener stops the chain and the error wraps ErrVetoed.
func (b *Bus) DispatchSms(ctx context.Context, kind Kind, e *SmsEvent) error {
	switch kind {
	case SmsPreSave, SmsPostSave, SmsPreDelete, SmsPostDelete:
	default:
		return fmt.Errorf("%s is not an sms lifecycle event", kind)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	listeners := append([]SmsListener(nil), b.sms[kind]...)
	b.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, e); err != nil {
			if kind.Vetoable() {
				return fmt.Errorf("%w by %s listener: %w", sms_errors.ErrVetoed, kind, err)
			}
			b.logFailure(ctx, kind, err)
		}
	}
	return nil
}

func (b *Bus) DispatchSend(ctx context.Context, e *SendEvent) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	listeners := append([]SendListener(nil), b.send...)
	b.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, e); err != nil {
			b.logFailure(ctx, SmsOnSend, err)
		}
	}
}

// DispatchTokenReplacement returns the content after every listener has had
// a chance to rewrite it.
func (b *Bus) DispatchTokenReplacement(ctx context.Context, e *TokenReplacementEvent) string {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return e.Content
	}
	listeners := append([]TokenListener(nil), b.tokens...)
	b.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, e); err != nil {
			b.logFailure(ctx, TokenReplacement, err)
		}
	}
	return e.Content
}

func (b *Bus) DispatchCampaignTrigger(ctx context.Context, e *CampaignTriggerEvent) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	listeners := append([]CampaignListener(nil), b.campaign...)
	b.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, e); err != nil {
			b.logFailure(ctx, CampaignTriggerAction, err)
		}
	}
}

// Listeners returns the number of listeners registered for kind.
func (b *Bus) Listeners(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	switch kind {
	case SmsOnSend:
		return len(b.send)
	case TokenReplacement:
		return len(b.tokens)
	case CampaignTriggerAction:
		return len(b.campaign)
	}
	return len(b.sms[kind])
}

// Close drops every listener. Dispatching afterwards is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.sms = make(map[Kind][]SmsListener)
	b.send = nil
	b.tokens = nil
	b.campaign = nil
}

func (b *Bus) logFailure(ctx context.Context, kind Kind, err error) {
	b.logger.WarnCtx(ctx, "event listener failed", zap.String("event", kind.String()), zap.Error(err))
}
