package main

import (
	"context"
	"log"
	"time"

	"founders-chat/config"
	"founders-chat/internal/events"
	"founders-chat/internal/handler"
	"founders-chat/internal/observability"
	"founders-chat/internal/proxy"
	"founders-chat/internal/redis"
	"founders-chat/internal/repository"
	"founders-chat/internal/server"
	"founders-chat/internal/services"
	"founders-chat/internal/storage"
	"founders-chat/migrations"
	"founders-chat/pkg/database"
	"founders-chat/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	conversationRepo, messageRepo := openStore(ctx, cfg, l)
	defer database.Close()

	redisClient := openRedis(ctx, cfg, l)
	if redisClient != nil {
		defer redisClient.Close()
	}

	bus := openEventBus(cfg, redisClient, l)
	defer bus.Close()

	var mediaStore services.MediaStore
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: cfg.S3PresignTTL,
		})
		if err != nil {
			log.Fatalf("Failed to configure S3: %v", err)
		}
		mediaStore = s3Client
	} else {
		l.Warnf("S3_BUCKET not set, media uploads are disabled")
	}

	publisher := services.NewEventPublisher(bus, l)
	access := proxy.NewAccessControl(conversationRepo)
	conversationService := services.NewConversationService(conversationRepo, access, publisher)
	mediaService := services.NewMediaService(mediaStore, conversationService)
	messageService := services.NewMessageService(messageRepo, conversationService, mediaService, publisher, cfg.ReadOnFetch)
	authService := services.NewAuthService(cfg)

	deps := server.Dependencies{
		Auth:        authService,
		HealthCheck: conversationService.Ping,
	}
	if redisClient != nil {
		deps.RateLimiter = redis.NewRateLimiter(redisClient, redis.RateLimitConfig{
			MessageLimit:  cfg.MessageRateLimit,
			MessageWindow: cfg.MessageRateWindow,
		})
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Chat:    handler.NewChatHandler(conversationService),
		Message: handler.NewMessageHandler(messageService),
		Media:   handler.NewMediaHandler(mediaService),
	}, deps)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %s", err)
	}
}

func openStore(ctx context.Context, cfg *config.Config, l *logger.Logger) (repository.ConversationRepository, repository.MessageRepository) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		l.Warnf("Using in-memory store, data is lost on restart")
		store := repository.NewMemoryStore()
		return store, store
	}

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.DBAutoMigrate {
		if err := database.MigrateUp(ctx, pool, migrations.FS); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}
	return repository.NewConversationRepository(pool), repository.NewMessageRepository(pool)
}

// openRedis returns nil when Redis is unreachable; rate limiting and the
// Redis event bus are then disabled.
func openRedis(ctx context.Context, cfg *config.Config, l *logger.Logger) *goredis.Client {
	client, err := redis.Connect(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, 3*time.Second)
	if err != nil {
		l.Warnf("Redis unavailable, continuing without it: %s", err)
		return nil
	}
	return client
}

func openEventBus(cfg *config.Config, redisClient *goredis.Client, l *logger.Logger) events.EventBus {
	switch cfg.EventsBackend {
	case config.EventsBackendAMQP:
		bus, err := events.NewAMQPEventBus(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("Failed to connect to AMQP: %v", err)
		}
		return bus
	case config.EventsBackendNATS:
		bus, err := events.NewNATSEventBus(cfg.NATSURL, cfg.NATSSubject, cfg.ServiceName)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		return bus
	case config.EventsBackendRedis:
		if redisClient == nil {
			l.Warnf("EVENTS_BACKEND=redis but Redis is unavailable, events are dropped")
			return events.NewNoopBus()
		}
		return events.NewRedisEventBus(redisClient, events.NewHybridChannelResolver())
	default:
		return events.NewNoopBus()
	}
}
