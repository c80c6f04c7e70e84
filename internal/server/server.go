package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/idempotency"
	"taskboard/internal/job"
	"taskboard/internal/metrics"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Config *config.Config
	Logger *zap.Logger

	scheduler *cron.Cron
}

func Init(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	dbConfig := database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	if dbConfig.Driver == "sqlite" {
		// sqlite has a single writer
		dbConfig.MaxOpenConns = 1
	}
	db, err := database.New(dbConfig)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	if err := migrate(cfg, db, logger); err != nil {
		database.Close(db, logger)
		return nil, err
	}

	m := metrics.New(logger)
	s := &Server{DB: db, Config: cfg, Logger: logger}

	var store middleware.IdempotencyStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			database.Close(db, logger)
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		s.Redis = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.Redis.Ping(ctx).Err(); err != nil {
			// requests still go through, without replay protection, until redis is back
			logger.Warn("Redis is unreachable", zap.Error(err))
		}
		cancel()
		store = idempotency.NewRedisStore(s.Redis, cfg.IdempotencyTTL)
	}

	s.Engine = NewRouter(RouterConfig{
		DB:          db,
		LockTimeout: cfg.Database.LockTimeout,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     m,
		Idempotency: store,
		Logger:      logger,
	})

	if cfg.DensityAuditSchedule != "" {
		s.scheduler = cron.New()
		audit := job.NewDensityJob(repository.NewOrderedStore(db, cfg.Database.LockTimeout), m, logger)
		if _, err := audit.Schedule(s.scheduler, cfg.DensityAuditSchedule); err != nil {
			s.close()
			return nil, fmt.Errorf("schedule density audit: %w", err)
		}
	}

	return s, nil
}

func migrate(cfg *config.Config, db *gorm.DB, logger *zap.Logger) error {
	if cfg.Database.Driver == "postgres" && !cfg.Database.AutoMigrate {
		return database.Migrate(cfg.Database.MigrationURL(), logger)
	}
	return database.AutoMigrate(db)
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:              ":" + s.Config.ServerPort,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.scheduler != nil {
		s.scheduler.Start()
	}

	go func() {
		s.Logger.Info("Server running", zap.String("port", s.Config.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("Failed to listen", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	s.close()
	s.Logger.Info("Server exited properly")
}

func (s *Server) close() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.Logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	database.Close(s.DB, s.Logger)
}
