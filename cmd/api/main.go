package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/noah-isme/od-tracker-api/internal/config"
	"github.com/noah-isme/od-tracker-api/internal/database"
	"github.com/noah-isme/od-tracker-api/internal/handler"
	"github.com/noah-isme/od-tracker-api/internal/middleware"
	"github.com/noah-isme/od-tracker-api/internal/repository"
	"github.com/noah-isme/od-tracker-api/internal/router"
	"github.com/noah-isme/od-tracker-api/internal/service"
	"github.com/noah-isme/od-tracker-api/internal/validation"
)

const shutdownTimeout = 5 * time.Second

// resources are the process-wide clients closed on shutdown.
type resources struct {
	mongo *mongo.Client
	sql   *gorm.DB
	redis *redis.Client
	nats  *nats.Conn
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	startCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout+5*time.Second)
	defer cancel()

	var res resources
	repo, err := openStore(startCtx, cfg, &res)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to connect to store")
	}

	res.redis, err = database.ConnectRedis(startCtx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if res.redis == nil {
		logger.Info().Msg("redis not configured, stats cache disabled")
	}

	res.nats, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}

	var events service.ODEventPublisher
	if res.nats != nil {
		events = service.NewNATSEventPublisher(res.nats, cfg.NATSSubjectPrefix)
	} else {
		logger.Info().Msg("nats not configured, od events are logged only")
	}

	authService, err := service.NewAuthService(cfg.StudentEmailDomain, service.FacultyCredentials{
		Username:     cfg.FacultyUsername,
		Password:     cfg.FacultyPassword,
		PasswordHash: cfg.FacultyPasswordHash,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure authentication")
	}

	validate := validation.New()
	odRequestService := service.NewODRequestService(repo, validate, res.redis, cfg.StatsCacheTTL, events, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authService, logger),
		ODRequestHandler: handler.NewODRequestHandler(odRequestService, logger),
		HealthHandler:    handler.NewHealthHandler(cfg, repo, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, &res, logger)
}

func openStore(ctx context.Context, cfg config.Config, res *resources) (repository.ODRequestRepository, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		res.sql = db
		if err := repository.MigrateODRequests(db); err != nil {
			return nil, err
		}
		return repository.NewGormODRequestRepository(db), nil
	default:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoConnectTimeout)
		if err != nil {
			return nil, err
		}
		res.mongo = client
		collection := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		return repository.NewMongoODRequestRepository(collection), nil
	}
}

func waitForShutdown(app *fiber.App, res *resources, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if res.nats != nil {
		if err := res.nats.Drain(); err != nil {
			logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
	if res.redis != nil {
		if err := res.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if res.mongo != nil {
		if err := res.mongo.Disconnect(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to disconnect mongo client")
		}
	}
	if res.sql != nil {
		if err := database.ClosePostgres(res.sql); err != nil {
			logger.Warn().Err(err).Msg("failed to close database")
		}
	}

	logger.Info().Msg("server stopped")
}
