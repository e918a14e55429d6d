package api

import (
	"context"
	"net/http"
	"time"

	"github.com/article-publishing-api/internal/auth"
	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, authn *auth.Authenticator, db HealthChecker, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// uploads are streamed to the stager; keep little of the form in memory
	router.MaxMultipartMemory = 8 << 20

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(metricsMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	publishHandler := NewPublishHandler(services, cfg, log)
	articleHandler := NewArticleHandler(services, log)
	requireAdmin := adminMiddleware(authn, cfg.Auth.CookieName, log)

	// Health check and metrics
	router.GET("/health", healthCheck(services, db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Promoted images are public; documents are only offered to admins
	router.Static("/uploads", cfg.Storage.UploadsDir)
	router.Group("/files/articles", requireAdmin).Static("", cfg.Storage.ArticlesDir)

	// Public read API
	public := router.Group("/api")
	{
		public.GET("/articles", articleHandler.List)
		public.GET("/articles/featured", articleHandler.Featured)
		public.GET("/articles/:id", articleHandler.Get)
		public.GET("/articles/:id/related", articleHandler.Related)
		public.POST("/articles/:id/like", articleHandler.Like)
		public.GET("/categories", articleHandler.Categories)
	}

	// Publishing pipeline
	pipeline := router.Group("", requireAdmin)
	{
		pipeline.POST("/upload-preview", publishHandler.UploadPreview)
		pipeline.POST("/confirm-upload", publishHandler.ConfirmUpload)
		pipeline.POST("/cancel-upload", publishHandler.CancelUpload)
	}

	// Administration
	admin := router.Group("/admin", requireAdmin)
	{
		admin.GET("/articles", articleHandler.AdminList)
		admin.GET("/articles/:id", articleHandler.AdminGet)
		admin.DELETE("/articles/:id", publishHandler.DeleteArticle)
		admin.POST("/delete-article/:id", publishHandler.DeleteArticle)
		admin.POST("/toggle-destacado/:id", articleHandler.ToggleFeatured)
		admin.POST("/toggle-oculto/:id", articleHandler.ToggleHidden)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(services *service.Services, db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := contextWithTimeout(c, 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "article-publishing-api",
		}

		if db != nil {
			if err := db.HealthCheck(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["database"] = "down"
			} else {
				body["database"] = "up"
				if count, err := services.Article.Count(ctx); err == nil {
					body["articles"] = count
				}
			}
		}

		c.JSON(status, body)
	}
}

// contextWithTimeout creates a context with timeout for handlers
func contextWithTimeout(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), timeout)
}
