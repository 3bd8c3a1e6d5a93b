package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/sector-rotation-go/internal/api/handlers"
	"github.com/irfndi/sector-rotation-go/internal/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Dependencies are the collaborators the HTTP API is built from.
type Dependencies struct {
	Rotation       handlers.RotationService
	Critical       map[string]handlers.HealthChecker
	Optional       map[string]handlers.HealthChecker
	CacheStats     handlers.CacheStatsProvider
	JWTSecret      string
	AllowedOrigins []string
	MaxUploadBytes int64
	ServiceName    string
	Version        string
	Logger         *logrus.Logger
}

// NewRouter builds the gin engine with recovery, tracing and CORS.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(deps.ServiceName))
	router.Use(middleware.CORS(deps.AllowedOrigins))
	SetupRoutes(router, deps)
	return router
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	health := handlers.NewHealthHandler(deps.Critical, deps.Optional, deps.Version)
	if deps.CacheStats != nil {
		health.WithCacheStats(deps.CacheStats)
	}
	router.GET("/health", health.HealthCheck)

	auth := middleware.NewAuthMiddleware(deps.JWTSecret)
	rotationHandler := handlers.NewRotationHandler(deps.Rotation, deps.MaxUploadBytes, deps.Logger)

	v1 := router.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		rotation := v1.Group("/rotation")
		{
			rotation.GET("/report", rotationHandler.GetReport)
			rotation.POST("/watchlist", rotationHandler.UploadWatchlist)
			rotation.GET("/reports", rotationHandler.ListReports)
			rotation.GET("/reports/:id", rotationHandler.GetStoredReport)
			rotation.GET("/reports/:id/heatmap", rotationHandler.GetHeatmap)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "route not found"})
	})
}
