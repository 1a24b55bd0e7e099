package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the subset of the redis client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier forwards post-save, post-delete and on-send events to
// channel:sms:{id} for out-of-process listeners.
type RedisNotifier struct {
	client Publisher
}

func NewRedisNotifier(client Publisher) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Register attaches the notifier to the bus.
func (n *RedisNotifier) Register(bus *Bus) error {
	if err := bus.OnPostSave(n.smsListener(SmsPostSave)); err != nil {
		return err
	}
	if err := bus.OnPostDelete(n.smsListener(SmsPostDelete)); err != nil {
		return err
	}
	return bus.OnSend(n.onSend)
}

type smsNotification struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsNew     bool   `json:"is_new,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	ActorName string `json:"actor_name,omitempty"`
}

type sendNotification struct {
	ID        string   `json:"id"`
	Recipient string   `json:"recipient"`
	Success   bool     `json:"success"`
	Statuses  []string `json:"statuses,omitempty"`
}

func (n *RedisNotifier) smsListener(kind Kind) SmsListener {
	return func(ctx context.Context, e *SmsEvent) error {
		if e.Sms == nil {
			return nil
		}
		id := e.Sms.ID.String()
		return n.publish(ctx, kind, id, smsNotification{
			ID:        id,
			Name:      e.Sms.Name,
			IsNew:     e.IsNew,
			ActorID:   e.Principal.ID.String(),
			ActorName: e.Principal.Name,
		})
	}
}

func (n *RedisNotifier) onSend(ctx context.Context, e *SendEvent) error {
	if e.Sms == nil {
		return nil
	}
	id := e.Sms.ID.String()
	return n.publish(ctx, SmsOnSend, id, sendNotification{
		ID:        id,
		Recipient: e.Recipient,
		Success:   e.Result.Success,
		Statuses:  e.Result.Statuses,
	})
}

func (n *RedisNotifier) publish(ctx context.Context, kind Kind, id string, payload any) error {
	env, err := NewEnvelope(kind, id, payload)
	if err != nil {
		return fmt.Errorf("failed to build envelope: %w", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, ChannelPrefixSms+id, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", ChannelPrefixSms+id, err)
	}
	return nil
}
