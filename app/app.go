package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/cankaraca/gymstreak/common/cache"
	"github.com/cankaraca/gymstreak/common/config"
	"github.com/cankaraca/gymstreak/common/database"
	apperrors "github.com/cankaraca/gymstreak/common/errors"
	commonevents "github.com/cankaraca/gymstreak/common/events"
	"github.com/cankaraca/gymstreak/common/logger"
	"github.com/cankaraca/gymstreak/common/natsjetstream"
	"github.com/cankaraca/gymstreak/internal/events"
	"github.com/cankaraca/gymstreak/internal/events/publisher"
	"github.com/cankaraca/gymstreak/internal/handler"
	"github.com/cankaraca/gymstreak/internal/middleware"
	"github.com/cankaraca/gymstreak/internal/repository"
	"github.com/cankaraca/gymstreak/internal/service"
)

type App struct {
	cfg        *config.Config
	httpServer *http.Server
	db         *database.DynamoDBClient
	redis      *cache.RedisClient
	natsClient *natsjetstream.Client
	logger     *logger.Logger

	checkInService  service.CheckInService
	contestService  service.ContestService
	rankingService  service.RankingService
	backfillService service.BackfillService

	eventPublisher  *publisher.EventPublisher
	eventSubscriber *events.EventSubscriber

	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, *apperrors.AppError) {
	app := &App{
		cfg:     cfg,
		cleanup: make([]func() error, 0),
	}

	if err := app.initLogger(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init logger")
	}

	if err := app.initDatabase(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init database")
	}

	if err := app.initRedis(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init redis client")
	}

	if err := app.initNATS(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init nats client")
	}

	app.initMessagePublisher()
	app.initServices()

	if err := app.initMessageSubscriber(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init messaging subscriber")
	}

	app.initHTTP()

	return app, nil
}

func (a *App) initLogger() error {
	a.logger = logger.ForEnvironment(a.cfg.Server.Environment, a.cfg.Server.LogLevel, "checkin-engine")
	return nil
}

func (a *App) initDatabase() error {
	dynamoClient, err := database.NewDynamoDBClient(a.cfg)
	if err != nil {
		return err
	}

	a.db = dynamoClient
	return nil
}

func (a *App) initRedis() error {
	redisClient, err := cache.NewRedisClient(a.cfg.Redis)
	if err != nil {
		return err
	}

	a.redis = redisClient
	a.cleanup = append(a.cleanup, redisClient.Close)
	return nil
}

func (a *App) initNATS(ctx context.Context) error {
	natsClient, err := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           a.cfg.NATS.URL,
		MaxReconnect:  a.cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	a.natsClient = natsClient

	stream := jetstream.StreamConfig{
		Name:     commonevents.CheckInEventsStream,
		Subjects: []string{commonevents.CheckInEventsWildcard},
	}

	if _, err := a.natsClient.JetStream().CreateOrUpdateStream(ctx, stream); err != nil {
		a.logger.Error("Failed to create stream",
			"error", err,
			"stream", stream.Name,
		)
		return err
	}
	a.logger.Info("Stream ready", "stream", stream.Name)

	a.cleanup = append(a.cleanup, natsClient.Close)

	return nil
}

func (a *App) initMessagePublisher() {
	a.eventPublisher = publisher.NewEventPublisher(a.natsClient, a.logger)
}

func (a *App) initServices() {
	checkInRepo := repository.NewCheckInRepository(a.db)
	contestRepo := repository.NewContestRepository(a.db)
	participantRepo := repository.NewParticipantRepository(a.db)
	configRepo := repository.NewConfigRepository(a.db)
	transactionRepo := database.NewTransactionRepository(a.db)

	leaderboardTTL := time.Duration(a.cfg.Contest.LeaderboardTTLHours) * time.Hour
	leaderboardRepo := cache.NewLeaderboardRepo(a.redis, leaderboardTTL)

	a.checkInService = service.NewCheckInService(checkInRepo, a.eventPublisher, a.logger)
	a.contestService = service.NewContestService(
		configRepo,
		contestRepo,
		participantRepo,
		transactionRepo,
		a.eventPublisher,
		a.logger,
	)
	a.rankingService = service.NewRankingService(
		participantRepo,
		leaderboardRepo,
		a.logger,
	)
	a.backfillService = service.NewBackfillService(
		checkInRepo,
		contestRepo,
		participantRepo,
		transactionRepo,
		a.contestService,
		a.rankingService,
		a.eventPublisher,
		a.logger,
	)
}

func (a *App) initMessageSubscriber(ctx context.Context) error {
	a.eventSubscriber = events.NewEventSubscriber(a.natsClient, a.rankingService, a.logger)
	return a.eventSubscriber.Start(ctx)
}

func (a *App) initHTTP() {
	if a.cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), a.requestLogger())

	checkInHandler := handler.NewCheckInHandler(a.checkInService, a.logger)
	contestHandler := handler.NewContestHandler(a.contestService, a.rankingService, a.logger)
	adminHandler := handler.NewAdminHandler(a.backfillService, a.cfg.Server.AdminSecret, a.logger)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthRequired(a.cfg.Server.JWTSecret))
	{
		api.POST("/checkins/eligibility", checkInHandler.CheckEligibility)
		api.POST("/checkins", checkInHandler.RecordCheckIn)
		api.POST("/contests/checkins", contestHandler.ProcessContestCheckIn)
		api.GET("/contests/:id/leaderboard", contestHandler.GetLeaderboard)
	}

	admin := router.Group("/admin")
	admin.Use(adminHandler.RequireSecret())
	{
		admin.POST("/backfill/rebuild", adminHandler.RebuildParticipation)
		admin.POST("/backfill/dedup", adminHandler.DeduplicateCheckIns)
	}

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.HTTPPort),
		Handler: router,
	}
}

func (a *App) Start() *apperrors.AppError {
	go func() {
		a.logger.Info(fmt.Sprintf("HTTP server listening on %d", a.cfg.Server.HTTPPort))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal("Failed to serve", "error", err)
		}
	}()

	a.logger.Info("Application started successfully")

	return nil
}

func (a *App) Stop() *apperrors.AppError {
	a.logger.Info("Stopping application...")

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("HTTP shutdown error", "error", err)
		}
	}

	for _, cleanup := range a.cleanup {
		if err := cleanup(); err != nil {
			a.logger.Error("Cleanup error", "error", err)
		}
	}

	a.logger.Info("Application stopped")
	return nil
}

func (a *App) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		a.logger.Info(fmt.Sprintf("Method: %s %s, Status: %d, Duration: %v",
			ctx.Request.Method, ctx.Request.URL.Path, ctx.Writer.Status(), time.Since(start)))
	}
}
