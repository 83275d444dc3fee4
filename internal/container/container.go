package container

import (
	"context"

	"ballotbox/internal/config"
	"ballotbox/internal/repository"
	"ballotbox/internal/service"
	"ballotbox/pkg/database"
	"ballotbox/pkg/logger"
	"ballotbox/pkg/redis"
)

// Services bundles the three engines behind the HTTP layer.
type Services struct {
	Lifecycle *service.LifecycleService
	Ballots   *service.BallotService
	Tally     *service.TallyService
}

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	Database    *database.PostgresDB
	RedisClient *redis.Client
	Services    *Services
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Redis is optional: without it every read goes to Postgres and cast
	// idempotency falls back to the active-ballot check alone.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without caching")
	}

	sessionRepo := repository.NewPostgresSessionRepository(db, cfg.StorageTimeout)
	voteRepo := repository.NewPostgresVoteRepository(db, cfg.StorageTimeout)
	resultsRepo := repository.NewPostgresResultsRepository(db, cfg.StorageTimeout)
	userRepo := repository.NewPostgresUserRepository(db, cfg.StorageTimeout)
	auditSink := repository.NewPostgresAuditSink(db, cfg.StorageTimeout)

	cache := service.NewResultsCache(redisClient, logger.Logger)

	services := &Services{
		Lifecycle: service.NewLifecycleService(sessionRepo, voteRepo, auditSink, cache, logger.Logger, cfg.LockPublishedSessions),
		Ballots:   service.NewBallotService(sessionRepo, voteRepo, userRepo, redisClient, auditSink, cache, logger.Logger),
		Tally:     service.NewTallyService(sessionRepo, voteRepo, resultsRepo, cache, logger.Logger, cfg.ResultsSigningKey),
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Database:    db,
		RedisClient: redisClient,
		Services:    services,
	}, nil
}

// Close releases the container's connections.
func (c *Container) Close() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if c.Database != nil {
		c.Database.Close()
	}
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
