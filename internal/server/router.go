package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/handler"
	"taskboard/internal/metrics"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	DB          *gorm.DB
	LockTimeout time.Duration
	JWTSecret   string
	CORSOrigins []string
	Metrics     *metrics.Metrics
	// Defaults to promhttp.Handler() for the default registry.
	MetricsHandler http.Handler
	// Optional; nil disables Idempotency-Key handling.
	Idempotency middleware.IdempotencyStore
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(cfg.Logger),
		middleware.Metrics(cfg.Metrics),
		middleware.CORS(cfg.CORSOrigins),
	)

	deps := service.Deps{
		Store:   repository.NewOrderedStore(cfg.DB, cfg.LockTimeout),
		Boards:  repository.NewBoardRepository(cfg.DB),
		Columns: repository.NewColumnRepository(cfg.DB),
		Tasks:   repository.NewTaskRepository(cfg.DB),
		Metrics: cfg.Metrics,
		Logger:  cfg.Logger,
	}

	boardHandler := handler.NewBoardHandler(service.NewBoardService(deps), cfg.Logger)
	columnHandler := handler.NewColumnHandler(service.NewColumnService(deps), cfg.Logger)
	taskHandler := handler.NewTaskHandler(service.NewTaskService(deps), cfg.Logger)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	// Public routes
	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(metricsHandler))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// create wraps a create handler with the idempotency middleware when a store is configured
	create := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.Idempotency == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{middleware.Idempotency(cfg.Idempotency, cfg.Metrics, cfg.Logger), h}
	}

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// Board routes
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.POST("/boards", create(boardHandler.Create)...)
		authorized.PUT("/boards/reorder", boardHandler.Reorder)
		authorized.GET("/boards/:boardId", boardHandler.GetByID)
		authorized.PATCH("/boards/:boardId", boardHandler.Update)
		authorized.DELETE("/boards/:boardId", boardHandler.Delete)

		// Column routes
		authorized.GET("/boards/:boardId/columns", columnHandler.GetAll)
		authorized.POST("/boards/:boardId/columns", create(columnHandler.Create)...)
		authorized.PUT("/boards/:boardId/columns/reorder", columnHandler.Reorder)
		authorized.PATCH("/columns/:id", columnHandler.Update)
		authorized.DELETE("/columns/:id", columnHandler.Delete)

		// Task routes
		authorized.GET("/columns/:id/tasks", taskHandler.GetByColumnID)
		authorized.POST("/columns/:id/tasks", create(taskHandler.Create)...)
		authorized.PUT("/columns/:id/tasks/reorder", taskHandler.Reorder)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.PATCH("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/move", taskHandler.MoveTask)
	}

	return r
}
