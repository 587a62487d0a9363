package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitewatch/sitewatch/internal/logger"
)

// readHeaderTimeout bounds header reads on the HTTP server.
const readHeaderTimeout = 10 * time.Second

// Handlers bundles the route handlers mounted by SetupRouter.
type Handlers struct {
	Jobs        *JobsHandler
	Documents   *DocumentsHandler
	Credentials *CredentialsHandler
	Templates   *TemplatesHandler
}

// ServerConfig holds the HTTP server timeouts and bind address.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(log logger.Interface, h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	v1.GET("/jobs", h.Jobs.ListJobs)
	v1.POST("/jobs", h.Jobs.CreateJob)
	v1.GET("/jobs/:id", h.Jobs.GetJob)
	v1.PUT("/jobs/:id", h.Jobs.UpdateJob)
	v1.DELETE("/jobs/:id", h.Jobs.DeleteJob)
	v1.POST("/jobs/:id/run", h.Jobs.RunJob)
	v1.GET("/jobs/:id/runs", h.Jobs.ListJobRuns)
	v1.GET("/runs/:id", h.Jobs.GetRun)
	v1.GET("/scheduler/status", h.Jobs.GetSchedulerStatus)

	v1.GET("/documents/versions", h.Documents.ListVersions)
	v1.GET("/documents/:id/changes", h.Documents.ListChanges)

	v1.POST("/credentials", h.Credentials.CreateCredential)
	v1.GET("/credentials", h.Credentials.ListCredentials)
	v1.DELETE("/credentials/:id", h.Credentials.DeleteCredential)

	v1.GET("/templates", h.Templates.ListTemplates)
	v1.GET("/templates/suggest", h.Templates.SuggestTemplate)
	v1.GET("/templates/:id", h.Templates.GetTemplate)

	return router
}

// NewHTTPServer builds the HTTP server for the configured router.
func NewHTTPServer(cfg ServerConfig, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// loggingMiddleware logs each HTTP request with latency and status.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// corsMiddleware adds CORS headers for dashboard access.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, Authorization, "+
				"accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
