package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/attendance-api/internal/cache"
	"github.com/noah-isme/attendance-api/internal/config"
	"github.com/noah-isme/attendance-api/internal/database"
	"github.com/noah-isme/attendance-api/internal/handler"
	"github.com/noah-isme/attendance-api/internal/middleware"
	"github.com/noah-isme/attendance-api/internal/repository"
	"github.com/noah-isme/attendance-api/internal/router"
	"github.com/noah-isme/attendance-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, analytics fast path disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, notifications degrade to logs")
		} else {
			defer natsConn.Drain()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	sessionRepo := repository.NewSessionRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	statusRepo := repository.NewStatusRepository(db)

	notifier := service.NewNotifier(natsConn, "attendance.events", logger)

	analyticsService := service.NewAnalyticsService(recordRepo, analyticsRepo, redisClient, cfg.AnalyticsCacheTTL, notifier, logger)
	sessionService := service.NewSessionService(sessionRepo, recordRepo, scheduleRepo, analyticsService, validate, logger)
	recordService := service.NewRecordService(recordRepo, sessionRepo, statusRepo, enrollmentRepo, auditRepo, analyticsService, validate, logger)
	sweepService := service.NewSweepService(sessionRepo, recordRepo, statusRepo, enrollmentRepo, analyticsService, notifier, logger)
	rosterService := service.NewRosterService(enrollmentRepo, analyticsService, logger)

	rosterCache := cache.NewRosterCache(rosterService.BuildBundle, logger)

	sessionHandler := handler.NewSessionHandler(sessionService, logger)
	recordHandler := handler.NewRecordHandler(recordService, sessionService, rosterCache, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, logger)
	rosterHandler := handler.NewRosterHandler(rosterCache, logger)
	auditHandler := handler.NewAuditHandler(auditRepo, logger)
	adminHandler := handler.NewAdminHandler(sweepService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:   sessionHandler,
		RecordHandler:    recordHandler,
		AnalyticsHandler: analyticsHandler,
		RosterHandler:    rosterHandler,
		AuditHandler:     auditHandler,
		AdminHandler:     adminHandler,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepService.Run(sweepCtx, cfg.SweepInterval)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopSweep)
}

func waitForShutdown(app *fiber.App, stopSweep context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
