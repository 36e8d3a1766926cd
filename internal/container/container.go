package container

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-trip-planner/app/db"
	"github.com/FACorreiaa/go-trip-planner/config"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
	"github.com/FACorreiaa/go-trip-planner/internal/api/planning"
	"github.com/FACorreiaa/go-trip-planner/internal/api/plans"
	"github.com/FACorreiaa/go-trip-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-trip-planner/internal/worker"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	Redis            *redis.Client
	Queue            worker.Queue
	Workers          *worker.Pool
	ItineraryHandler *itinerary.HandlerImpl
	PlacesHandler    *places.HandlerImpl
	PlanningHandler  *planning.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}
	c := &Container{Config: cfg, Logger: logger, Pool: pool}

	if err := c.initQueue(ctx); err != nil {
		c.Close()
		return nil, err
	}

	model, err := generativeAI.NewGateway(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("Failed to initialize model gateway", slog.Any("error", err))
		c.Close()
		return nil, err
	}

	// repositories
	itineraryRepo := itinerary.NewRepository(pool, logger)
	placesRepo := places.NewRepository(pool, logger)
	plansRepo := plans.NewRepository(pool, logger)

	// generation pipeline, run by the workers
	generator := recommendation.NewGenerator(model, recommendation.DefaultPolicy(cfg.Generation.MaxAttempts, cfg.LLM.AttemptTimeout), logger)
	materializer := places.NewMaterializer(placesRepo, logger)
	generationHandler := itinerary.NewGenerationHandler(itineraryRepo, generator, materializer, logger)
	c.Workers = worker.NewPool(c.Queue, generationHandler, cfg.Worker.Workers, cfg.Worker.TaskTimeout, logger)

	// caller-facing services
	itineraryService := itinerary.NewServiceImpl(itineraryRepo, c.Queue, cfg.Generation, logger)
	placesService := places.NewServiceImpl(placesRepo, itineraryRepo, logger)

	planGateway, err := planning.NewPlanGateway(cfg.Planning, model, logger)
	if err != nil {
		logger.Error("Failed to initialize plan gateway", slog.Any("error", err))
		c.Close()
		return nil, err
	}
	synthesizer := planning.NewSynthesizer(itineraryRepo, placesRepo, planGateway, planning.DefaultPolicy(cfg.Planning), cfg.Planning, logger)
	planStore := plans.NewServiceImpl(plansRepo, activePlanTTL(cfg, logger), logger)
	planningService := planning.NewServiceImpl(itineraryRepo, synthesizer, planStore, logger)

	c.ItineraryHandler = itinerary.NewHandlerImpl(itineraryService, logger)
	c.PlacesHandler = places.NewHandlerImpl(placesService, logger)
	c.PlanningHandler = planning.NewHandlerImpl(planningService, logger)
	return c, nil
}

// activePlanTTL turns the in-process plan cache off when tasks travel through
// Redis, since that setup runs several instances against one database.
func activePlanTTL(cfg *config.Config, logger *slog.Logger) time.Duration {
	if strings.EqualFold(cfg.Worker.Queue, "redis") {
		logger.Info("Active plan cache disabled for shared queue deployments")
		return 0
	}
	return cfg.Cache.ActivePlanTTL
}

func (c *Container) initQueue(ctx context.Context) error {
	switch strings.ToLower(c.Config.Worker.Queue) {
	case "", "memory":
		c.Queue = worker.NewMemoryQueue(c.Config.Worker.Buffer)
	case "redis":
		rc := c.Config.Repositories.Redis
		c.Redis = redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			c.Logger.Error("Failed to reach redis", slog.String("addr", rc.Addr), slog.Any("error", err))
			return fmt.Errorf("redis ping: %w", err)
		}
		c.Queue = worker.NewRedisQueue(c.Redis, c.Config.Worker.QueueKey)
	default:
		return fmt.Errorf("unsupported worker queue: %s", c.Config.Worker.Queue)
	}
	c.Logger.Info("Task queue ready", slog.String("queue", c.Config.Worker.Queue))
	return nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			c.Logger.Warn("Failed to close task queue", slog.Any("error", err))
		}
	} else if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
