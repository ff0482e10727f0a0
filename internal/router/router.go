package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dline-edu/prova-backend/internal/config"
	"github.com/dline-edu/prova-backend/internal/handler"
	"github.com/dline-edu/prova-backend/internal/middleware"
	"github.com/dline-edu/prova-backend/internal/response"
	"github.com/dline-edu/prova-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Portal  *handler.PortalHandler
	Proctor *handler.ProctorHandler
	Test    *handler.TestHandler
	Review  *handler.ReviewHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireStudentJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireStudentJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/tests", handlers.Portal.ListTests)
		studentAPI.GET("/tests/:id/paper", handlers.Portal.GetPaper)
		studentAPI.POST("/tests/:id/submit", handlers.Portal.Submit)
		studentAPI.GET("/tests/:id/result", handlers.Portal.GetResult)
		studentAPI.POST("/tests/:id/session", handlers.Portal.StartSession)
		studentAPI.POST("/tests/:id/session/abandon", handlers.Portal.AbandonSession)

		// Proctoring evidence pipeline
		studentAPI.POST("/proctor/snapshot", handlers.Proctor.IngestSnapshot)
		studentAPI.POST("/proctor/video", handlers.Proctor.IngestVideoChunk)
		studentAPI.POST("/proctor/visibility", handlers.Proctor.IngestVisibility)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Test management
		adminAPI.POST("/tests", handlers.Test.CreateTest)
		adminAPI.GET("/tests", handlers.Test.ListTests)
		adminAPI.GET("/tests/:id", handlers.Test.GetTest)
		adminAPI.DELETE("/tests/:id", handlers.Test.DeleteTest)
		adminAPI.POST("/tests/:id/declare-results", handlers.Test.DeclareResults)
		adminAPI.GET("/tests/:id/submissions", handlers.Test.ListSubmissions)

		// Proctoring review
		adminAPI.GET("/tests/:id/sessions", handlers.Review.ListSessions)
		adminAPI.GET("/tests/:id/sessions/:email", handlers.Review.GetSession)
		adminAPI.GET("/tests/:id/media/:email", handlers.Review.GetExamMedia)
		adminAPI.GET("/tests/:id/visibility/:email", handlers.Review.GetVisibilityReport)

		// Login session management
		adminAPI.POST("/users/reset-session", handlers.Review.ResetLoginSession)
	}

	return router
}
