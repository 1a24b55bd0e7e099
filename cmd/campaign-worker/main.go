package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sms-campaign/config"
	"sms-campaign/internal/domain/sms"
	"sms-campaign/internal/events"
	"sms-campaign/internal/gateway"
	"sms-campaign/internal/queue/rabbitmq"
	"sms-campaign/internal/redis"
	"sms-campaign/internal/repository"
	"sms-campaign/internal/services"
	"sms-campaign/pkg/database"
	sms_errors "sms-campaign/pkg/errors"
	"sms-campaign/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	database.Connect(cfg)
	defer database.Close()

	redis.Initialize(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redis.Close()

	smsRepo := repository.NewSmsRepository(database.DB)
	statsRepo := repository.NewStatsRepository(database.DB)

	bus := events.NewBus(l)
	defer bus.Close()
	if err := services.RegisterListeners(bus, services.ListenerDeps{
		Notifier: events.NewRedisNotifier(redis.GetClient()),
		Logger:   l,
	}); err != nil {
		log.Fatalf("Failed to register listeners: %v", err)
	}

	gwCfg := gateway.DefaultConfig()
	gwCfg.BaseURL = cfg.GatewayURL
	gwCfg.APIKey = cfg.GatewayAPIKey
	gwCfg.Sender = cfg.GatewaySender
	gwCfg.Timeout = cfg.GatewayTimeout
	sender := gateway.NewClient(gwCfg, l)
	if !sender.Configured() {
		log.Fatalf("SMS_GATEWAY_URL is required for the campaign worker")
	}

	smsService := services.NewSmsService(smsRepo, bus, cfg.SmsLockTTL, l)
	campaign := services.NewCampaignService(smsService, statsRepo, bus, sender, l)

	consumer, err := rabbitmq.NewConsumer(cfg.AMQPURL, l)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l.Infof("Campaign worker consuming %s", rabbitmq.QueueName)
	err = consumer.Consume(ctx, func(ctx context.Context, t sms.CampaignTrigger) error {
		res, err := campaign.Trigger(ctx, t)
		if errors.Is(err, sms_errors.ErrNotFound) {
			return fmt.Errorf("%w: %v", rabbitmq.ErrMalformed, err)
		}
		if err != nil {
			return err
		}
		if !res.Success {
			l.WarnCtx(ctx, "campaign sms not delivered",
				zap.String("sms_id", t.SmsID.String()),
				zap.String("campaign_id", t.CampaignID),
				zap.Strings("statuses", res.Statuses),
			)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Errorf("Consumer stopped: %v", err)
		os.Exit(1)
	}
	l.Infof("Campaign worker stopped")
}
