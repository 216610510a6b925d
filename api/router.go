package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"

	"github.com/yourusername/mediafetch-go/api/handlers"
	"github.com/yourusername/mediafetch-go/api/middleware"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

// RouterDeps groups the services behind the HTTP surface
type RouterDeps struct {
	Downloads   handlers.DownloadService
	Dispatcher  handlers.RunningChecker
	Diagnostics handlers.Diagnostics
	Files       handlers.FileCatalog
	Hub         *handlers.SessionHub
	LogAdapter  *logger.LoggerAdapter
	LogsDir     string
}

// SetupRouter builds the gin engine with every route registered
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.LoggerWithAdapter(deps.LogAdapter))
	router.Use(middleware.RecoveryWithAdapter(deps.LogAdapter))

	log := deps.LogAdapter.General()

	healthHandler := handlers.NewHealthHandler(deps.Dispatcher)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/ping", healthHandler.Ping)

		downloadHandler := handlers.NewDownloadHandler(deps.Downloads, log)
		v1.POST("/downloads", downloadHandler.Submit)

		sessions := v1.Group("/sessions/:session_id")
		{
			sessions.GET("", downloadHandler.GetSession)
			sessions.POST("/cancel", downloadHandler.CancelSession)
			sessions.GET("/ws", deps.Hub.ServeWS)
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", downloadHandler.ListTasks)
			tasks.GET("/stats", downloadHandler.GetStats)
			tasks.GET("/:id", downloadHandler.GetTask)
		}

		fileHandler := handlers.NewFileHandler(deps.Files, log)
		files := v1.Group("/files")
		{
			files.GET("", fileHandler.ListFiles)
			files.GET("/:name", fileHandler.GetFile)
		}

		diagHandler := handlers.NewDiagnosticsHandler(deps.Diagnostics, log)
		diagnostics := v1.Group("/diagnostics")
		{
			diagnostics.GET("/accelerator", diagHandler.Accelerator)
			diagnostics.GET("/performance", diagHandler.Performance)
			diagnostics.GET("/connection", diagHandler.Connection)
			diagnostics.GET("/ffmpeg", diagHandler.FFmpeg)
			diagnostics.GET("/extraction", diagHandler.Extraction)
			diagnostics.GET("/troubleshooting", diagHandler.Troubleshooting)
			diagnostics.POST("/formats", diagHandler.Formats)
		}

		maintenance := v1.Group("/maintenance")
		{
			maintenance.POST("/clear-cache", diagHandler.ClearCache)
			maintenance.POST("/update-extractor", diagHandler.UpdateExtractor)
		}

		logHandler := handlers.NewLogHandler(deps.LogsDir)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

// WithCORS wraps h with a permissive CORS policy
func WithCORS(h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPut,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(h)
}

// NewHandler returns the complete HTTP handler of the server
func NewHandler(deps RouterDeps) http.Handler {
	return WithCORS(SetupRouter(deps))
}
