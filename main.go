package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/samujjwal/gearlend/config"
	"github.com/samujjwal/gearlend/internal/consumer"
	"github.com/samujjwal/gearlend/internal/handler"
	"github.com/samujjwal/gearlend/internal/middleware"
	"github.com/samujjwal/gearlend/internal/repository"
	"github.com/samujjwal/gearlend/internal/service"
	"github.com/samujjwal/gearlend/pkg/cache"
	"github.com/samujjwal/gearlend/pkg/clock"
	"github.com/samujjwal/gearlend/pkg/database"
	"github.com/samujjwal/gearlend/pkg/gateway"
	"github.com/samujjwal/gearlend/pkg/logger"
	"github.com/samujjwal/gearlend/pkg/rabbitmq"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}

	redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to redis")
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to rabbitmq publisher")
	}
	defer publisher.Close()

	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to rabbitmq consumer")
	}
	defer mqConsumer.Close()

	// Repositories
	bookingRepo := repository.NewBookingRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	userRepo := repository.NewUserRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	depositRepo := repository.NewDepositRepository(db)

	// Services
	clk := clock.System()
	gw := gateway.NewStub()
	ledgerSvc := service.NewLedgerService(ledgerRepo, bookingRepo, log)
	riskSvc := service.NewRiskService(userRepo, redisCache, clk, log)
	stateMachine := service.NewBookingStateMachine(service.StateMachineConfig{
		PaymentTimeout:   cfg.PaymentTimeout,
		InspectionWindow: cfg.InspectionWindow,
		DepositHoldTTL:   cfg.DepositHoldTTL,
	}, bookingRepo, depositRepo, ledgerSvc, riskSvc, gw, publisher, clk, log)
	payoutSvc := service.NewPayoutService(payoutRepo, ledgerSvc, gw, log)

	// Payment events from the gateway drive COMPLETE_PAYMENT
	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatal().Err(err).Msg("start consuming payment events")
	}
	consumer.NewPaymentConsumer(stateMachine, log).Start(context.Background(), msgs)

	// Scheduled sweeps
	go runEvery(cfg.SweepInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		stateMachine.AutoTransitionExpiredBookings(ctx)
		stateMachine.ReleaseExpiredDeposits(ctx)
	})
	go runEvery(cfg.AutoPayoutInterval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		payoutSvc.ScheduleAutomaticPayouts(ctx)
	})

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.NewErrorHandler(log)
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Info().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "gearlend-core"})
	})

	handler.NewBookingHandler(stateMachine, bookingRepo).RegisterRoutes(e)
	handler.NewFinanceHandler(ledgerSvc, riskSvc, payoutSvc).RegisterRoutes(e)

	log.Info().Str("port", cfg.ServerPort).Msg("gearlend core starting")
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}

func runEvery(interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		fn()
	}
}
