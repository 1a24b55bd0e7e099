package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/metrics"
	"sms-campaign/pkg/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	ExchangeName = "sms.campaign"
	QueueName    = "sms.campaign.trigger"
	RoutingKey   = "sms.campaign.trigger"
)

// ErrMalformed marks a payload that can never be processed.
var ErrMalformed = errors.New("malformed campaign trigger")

type TriggerHandler func(ctx context.Context, t sms.CampaignTrigger) error

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *logger.Logger
}

// NewConsumer dials RabbitMQ, declares topology, and limits the channel to
// one unacknowledged delivery.
func NewConsumer(amqpURL string, l *logger.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	if err := declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, channel: ch, log: l}, nil
}

// Consume blocks until ctx is cancelled or the delivery channel closes.
func (c *Consumer) Consume(ctx context.Context, handler TriggerHandler) error {
	deliveries, err := c.channel.Consume(
		QueueName,
		"",    // auto-generated consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			handleDelivery(ctx, c.log, d, handler)
		}
	}
}

// handleDelivery acks on success, drops malformed payloads and requeues
// everything else.
func handleDelivery(ctx context.Context, l *logger.Logger, d amqp.Delivery, handler TriggerHandler) {
	trigger, err := decodeTrigger(d.Body)
	if err != nil {
		l.ErrorCtx(ctx, "drop campaign trigger", zap.Error(err))
		metrics.CampaignTriggersTotal.WithLabelValues("malformed").Inc()
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, trigger); err != nil {
		if errors.Is(err, ErrMalformed) {
			l.ErrorCtx(ctx, "drop campaign trigger", zap.String("sms_id", trigger.SmsID.String()), zap.Error(err))
			metrics.CampaignTriggersTotal.WithLabelValues("malformed").Inc()
			_ = d.Nack(false, false)
			return
		}
		l.ErrorCtx(ctx, "campaign trigger failed", zap.String("sms_id", trigger.SmsID.String()), zap.Error(err))
		metrics.CampaignTriggersTotal.WithLabelValues("error").Inc()
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func decodeTrigger(body []byte) (sms.CampaignTrigger, error) {
	var t sms.CampaignTrigger
	if err := json.Unmarshal(body, &t); err != nil {
		return sms.CampaignTrigger{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if t.PhoneNumber == "" {
		return sms.CampaignTrigger{}, fmt.Errorf("%w: phone_number is required", ErrMalformed)
	}
	if t.SmsID == uuid.Nil {
		return sms.CampaignTrigger{}, fmt.Errorf("%w: sms_id is required", ErrMalformed)
	}
	return t, nil
}

func (c *Consumer) Close() {
	c.channel.Close()
	c.conn.Close()
}

// declare idempotently sets up the exchange, queue, and binding.
func declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(QueueName, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}
