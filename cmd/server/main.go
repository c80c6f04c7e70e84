package main

import (
	"go.uber.org/zap"

	_ "taskboard/docs"
	"taskboard/internal/config"
	"taskboard/internal/logging"
	"taskboard/internal/server"
)

// @title           Taskboard API
// @version         1.0
// @description     Boards, columns and tasks with server-validated ordering.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting taskboard",
		zap.String("port", cfg.ServerPort),
		zap.String("mode", cfg.GinMode),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("idempotency", cfg.RedisURL != ""),
		zap.String("density_audit", cfg.DensityAuditSchedule),
	)

	s, err := server.Init(cfg, logger)
	if err != nil {
		logger.Fatal("Server initialization failed", zap.Error(err))
	}

	s.Run()
}
