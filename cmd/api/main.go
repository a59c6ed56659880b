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

	"github.com/noah-isme/coursework-engine/internal/config"
	"github.com/noah-isme/coursework-engine/internal/database"
	"github.com/noah-isme/coursework-engine/internal/handler"
	"github.com/noah-isme/coursework-engine/internal/middleware"
	"github.com/noah-isme/coursework-engine/internal/repository"
	"github.com/noah-isme/coursework-engine/internal/router"
	"github.com/noah-isme/coursework-engine/internal/service"
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

	if cfg.DatabaseAutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("%v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, leaderboard caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	} else {
		logger.Warn().Msg("nats url not configured, event publishing disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	store := repository.NewStore(db)
	events := service.NewNATSEventPublisher(natsConn, cfg.NATSSubjectPrefix, logger)
	cache := service.NewRedisLeaderboardCache(redisClient, cfg.LeaderboardCacheTTL)

	leaderboardService := service.NewLeaderboardService(store, cache, events, logger)
	homeworkService := service.NewHomeworkScoringService(store, leaderboardService, events, logger)
	assignmentService := service.NewPeerReviewAssignmentService(store, validate, events, logger)
	projectService := service.NewProjectScoringService(store, validate, leaderboardService, events, logger)
	statisticsService := service.NewStatisticsService(store, logger)
	enrollmentService := service.NewEnrollmentService(store, leaderboardService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	probes := []handler.HealthProbe{{Name: "postgres", Check: database.PingPostgres(db)}}
	if redisClient != nil {
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: database.PingRedis(redisClient)})
	}
	if natsConn != nil {
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: database.PingNATS(natsConn)})
	}

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		HomeworkHandler:   handler.NewAdminHomeworkHandler(homeworkService, statisticsService, logger),
		ProjectHandler:    handler.NewAdminProjectHandler(assignmentService, projectService, statisticsService, validate, cfg.AssignmentSeed, logger),
		CourseHandler:     handler.NewAdminCourseHandler(leaderboardService, logger),
		EnrollmentHandler: handler.NewAdminEnrollmentHandler(enrollmentService, validate, logger),
		HealthProbes:      probes,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cfg.ShutdownGracePeriod)
}

func waitForShutdown(app *fiber.App, grace time.Duration) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
