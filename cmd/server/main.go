package main

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
	"github.com/iliyamo/event-ticket-reservation/internal/database"
	"github.com/iliyamo/event-ticket-reservation/internal/handler"
	"github.com/iliyamo/event-ticket-reservation/internal/payment"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/router"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Env == "dev" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.LockWaitSeconds)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting disabled")
	}

	eventRepo := repository.NewEventRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	runner := database.NewTxRunner(db)

	var publisher service.ConfirmationPublisher
	if cfg.AMQPURL != "" {
		publisher = queue.NewPublisher(cfg.AMQPURL, logger)
		go queue.StartConsumer(cfg.AMQPURL, logger)
	} else {
		logger.Warn("RABBITMQ_URL not set, confirmation events disabled")
	}

	eventSvc := service.NewEventService(logger, runner, eventRepo)
	reservationSvc := service.NewReservationService(logger, runner, eventRepo, reservationRepo, publisher)
	paymentSvc := service.NewPaymentService(
		logger, reservationRepo, eventRepo, paymentRepo,
		payment.NewSimulatedProcessor(logger),
		time.Duration(cfg.ProcessorTimeout)*time.Second,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, userRepo, tokenRepo),
		Events:       handler.NewEventHandler(eventSvc),
		Reservations: handler.NewReservationHandler(reservationSvc),
		Payments:     handler.NewPaymentHandler(paymentSvc),
	}, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	if err := e.Start(addr); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
