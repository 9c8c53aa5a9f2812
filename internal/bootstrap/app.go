package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	appsvc "warbler/internal/app"
	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/model"
	mysqlClient "warbler/internal/platform/mysql"
	rabbitmqClient "warbler/internal/platform/rabbitmq"
	redisClient "warbler/internal/platform/redis"
	"warbler/internal/repository"
	"warbler/internal/session"
	"warbler/internal/worker"
	"warbler/pkg/logger"
)

type App struct {
	Config      *config.Config
	Log         zerolog.Logger
	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Sessions    session.Store
	Auth        *appsvc.AuthService
	Messages    *appsvc.MessageService
	EventWorker *worker.EventPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty).With().Str("app", cfg.App.Name).Logger()

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), cfg.MySQL.MaxIdleConns, cfg.MySQL.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Message{}, &model.MessageEvent{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(mysqlDB)
	messageRepo := repository.NewMessageRepository(mysqlDB)
	eventRepo := repository.NewMessageEventRepository(mysqlDB)

	sessions := session.NewRedisStore(redisCli, time.Duration(cfg.Session.TTLMinute)*time.Minute)
	timeline := cache.NewTimelineCache(
		redisCli,
		time.Duration(cfg.Redis.TimelineTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.TimelineDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmqClient.NewEventPublisher(mqConn, cfg.RabbitMQ.MessageEventQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	messageService := appsvc.NewMessageService(messageRepo, userRepo, publisher, timeline, log)

	eventWorker := worker.NewEventPersistWorker(mqConn, eventRepo, cfg.RabbitMQ.MessageEventQueue, log)
	if err := eventWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start event worker failed: %w", err)
	}

	return &App{
		Config:      cfg,
		Log:         log,
		MySQL:       mysqlDB,
		Redis:       redisCli,
		MQConn:      mqConn,
		Sessions:    sessions,
		Auth:        authService,
		Messages:    messageService,
		EventWorker: eventWorker,
		StartedAt:   time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
