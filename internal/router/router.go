package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigilbox/vigil-backend/internal/config"
	"github.com/vigilbox/vigil-backend/internal/handler"
	"github.com/vigilbox/vigil-backend/internal/middleware"
	"github.com/vigilbox/vigil-backend/internal/response"
	"github.com/vigilbox/vigil-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Catalog *handler.CatalogHandler
	Results *handler.ResultsHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokenService *service.TokenService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(middleware.RequestID())

	// Request counters and latency histograms for every route.
	router.Use(middleware.Metrics())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limiter for session creation (5 req/s per IP, burst 10); keeps
	// access-code guessing slow.
	startLimiter := middleware.NewRateLimiter(5, 10)

	// ─── 1. Catalog Group (Public) ─────────────────────────────────────
	catalogAPI := router.Group("/api/v1")
	{
		listings := catalogAPI.Group("")
		listings.Use(middleware.CacheControl(30))
		{
			listings.GET("/exams", handlers.Catalog.ListExams)
			listings.GET("/topics", handlers.Catalog.ListTopics)
			listings.GET("/bundles", handlers.Catalog.ListBundles)
		}

		catalogAPI.POST("/custom-sets", handlers.Catalog.CreateCustomSet)
		catalogAPI.POST("/bundles", handlers.Catalog.SaveBundle)
	}

	// ─── 2. Session Start (Public, Rate Limited) ───────────────────────
	router.POST("/api/v1/sessions", startLimiter.Middleware(), handlers.Session.Start)

	// ─── 3. Session Group (Session Token) ──────────────────────────────
	sessionAPI := router.Group("/api/v1/sessions/:session_id")
	sessionAPI.Use(middleware.RequireSessionToken(tokenService), middleware.NoStore())
	{
		sessionAPI.GET("/state", handlers.Session.GetState)
		sessionAPI.GET("/paper", handlers.Session.GetPaper)
		sessionAPI.PUT("/answers/:question_id", handlers.Session.SaveAnswer)
		sessionAPI.DELETE("/answers/:question_id", handlers.Session.ClearAnswer)
		sessionAPI.POST("/review", handlers.Session.ToggleReview)
		sessionAPI.POST("/navigate", handlers.Session.Navigate)
		sessionAPI.POST("/signals", handlers.Session.Signal)
		sessionAPI.POST("/warning/ack", handlers.Session.AcknowledgeWarning)
		sessionAPI.POST("/submit", handlers.Session.Submit)
		sessionAPI.GET("/result", handlers.Results.GetResult)
	}

	// ─── 4. WebSocket Group (Session WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionWSAuth(tokenService))
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
