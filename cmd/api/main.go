package main

import (
	"context"
	"log"

	"sms-campaign/config"
	"sms-campaign/internal/events"
	"sms-campaign/internal/gateway"
	"sms-campaign/internal/handler"
	"sms-campaign/internal/proxy"
	"sms-campaign/internal/redis"
	"sms-campaign/internal/repository"
	"sms-campaign/internal/server"
	"sms-campaign/internal/services"
	"sms-campaign/internal/storage"
	"sms-campaign/pkg/database"
	"sms-campaign/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	roles, err := proxy.ParseRoles(cfg.SmsRoles)
	if err != nil {
		log.Fatalf("Invalid SMS_ROLES: %v", err)
	}
	gate := proxy.NewAccessControl(roles)

	database.Connect(cfg)
	defer database.Close()

	redis.Initialize(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redis.Close()
	rc := redis.GetClient()

	smsRepo := repository.NewSmsRepository(database.DB)
	statsRepo := repository.NewStatsRepository(database.DB)
	auditRepo := repository.NewAuditRepository(database.DB)

	bus := events.NewBus(l)
	defer bus.Close()

	var archiver services.Archiver
	s3Cfg := storage.S3Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
		Prefix:    cfg.S3Prefix,
	}
	if s3Cfg.Enabled() {
		client, err := storage.NewClient(context.Background(), s3Cfg)
		if err != nil {
			log.Fatalf("Failed to create s3 client: %v", err)
		}
		archiver = client
	} else {
		l.Warnf("S3 archive disabled: S3_REGION and S3_BUCKET are not set")
	}

	if err := services.RegisterListeners(bus, services.ListenerDeps{
		Audit:    auditRepo,
		Stats:    statsRepo,
		Archiver: archiver,
		Notifier: events.NewRedisNotifier(rc),
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
		l.Warnf("SMS gateway not configured; example sends will fail")
	}

	limiter := redis.NewRateLimiter(rc, redis.RateLimitConfig{
		ExampleLimit:  cfg.SmsExampleLimit,
		ExampleWindow: cfg.SmsExampleWindow,
		RequestLimit:  cfg.APIRateLimit,
		RequestWindow: redis.DefaultRateLimitConfig().RequestWindow,
	})
	sessions := redis.NewSessionStore(rc, cfg.SessionTTL)

	smsService := services.NewSmsService(smsRepo, bus, cfg.SmsLockTTL, l)
	smsHandler := handler.NewSmsHandler(
		services.NewListService(smsService, gate, sessions, sender, cfg.SmsPageLimit),
		services.NewFormService(smsService, gate, sessions, l),
		services.NewDeleteService(smsService, gate, sessions),
		services.NewViewService(smsService, gate, sessions, statsRepo, auditRepo, cfg.SmsPageLimit),
		services.NewSendService(smsService, gate, bus, sender, limiter, l),
	)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{Sms: smsHandler}, server.Dependencies{
		Auth:    services.NewAuthService(cfg),
		Limiter: limiter,
		Health: map[string]server.HealthCheck{
			"postgres": func(ctx context.Context) error { return database.HealthCheck() },
			"redis":    func(ctx context.Context) error { return redis.HealthCheck(ctx, rc) },
		},
	})

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
