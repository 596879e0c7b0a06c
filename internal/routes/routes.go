package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"health-registry-server/internal/config"
	"health-registry-server/internal/handlers"
	"health-registry-server/internal/middleware"
	"health-registry-server/internal/services"
	"health-registry-server/internal/utils"
)

// NewRouter builds the gin engine with the global middleware chain and every
// route registered.
func NewRouter(cfg *config.Config, lgr zerolog.Logger, svc *services.Services, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(
		middleware.RequestID(),
		middleware.Logger(lgr),
		middleware.Recovery(),
		middleware.SecurityHeaders(),
	)

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.Burst,
	}))

	SetupRoutes(router, cfg, svc, db)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, cfg *config.Config, svc *services.Services, db *gorm.DB) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg)
	userHandler := handlers.NewUserHandler(svc.Users, cfg.Pagination)
	programHandler := handlers.NewProgramHandler(svc.Programs, cfg.Pagination)
	clientHandler := handlers.NewClientHandler(svc.Clients, svc.Enrollments, cfg.Pagination)
	enrollmentHandler := handlers.NewEnrollmentHandler(svc.Enrollments, cfg.Pagination)
	healthHandler := handlers.NewHealthHandler(db)

	searchLimit := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.SearchRequestsPerSecond,
		BurstSize:         max(1, int(cfg.RateLimit.SearchRequestsPerSecond)),
	})

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.Authenticate(svc.Auth), middleware.RequireAuthenticated())
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
			authRoutesPrivate.POST("/change-password", authHandler.ChangePassword)
		}

		programRoutes := private.Group("/programs")
		{
			programRoutes.GET("", programHandler.ListPrograms)
			programRoutes.POST("", programHandler.CreateProgram)
			programRoutes.GET("/:id", programHandler.GetProgram)
			programRoutes.PUT("/:id", programHandler.UpdateProgram)
			programRoutes.PATCH("/:id", programHandler.PatchProgram)
			programRoutes.DELETE("/:id", programHandler.DeleteProgram)
			programRoutes.GET("/:id/clients", programHandler.ListProgramClients)
		}

		clientRoutes := private.Group("/clients")
		{
			clientRoutes.GET("", clientHandler.ListClients)
			clientRoutes.POST("", clientHandler.CreateClient)
			clientRoutes.GET("/search", searchLimit, clientHandler.SearchClients)
			clientRoutes.GET("/:id", clientHandler.GetClient)
			clientRoutes.PUT("/:id", clientHandler.UpdateClient)
			clientRoutes.PATCH("/:id", clientHandler.PatchClient)
			clientRoutes.DELETE("/:id", clientHandler.DeleteClient)
			clientRoutes.POST("/:id/enroll", clientHandler.EnrollClient)
		}

		enrollmentRoutes := private.Group("/enrollments")
		{
			enrollmentRoutes.GET("", enrollmentHandler.ListEnrollments)
			enrollmentRoutes.GET("/:id", enrollmentHandler.GetEnrollment)
			enrollmentRoutes.PATCH("/:id", enrollmentHandler.PatchEnrollment)
		}

		// Staff-only routes
		userRoutes := private.Group("/users")
		userRoutes.Use(middleware.RequireStaff())
		{
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.PATCH("/:id/active", userHandler.SetUserActive)
		}
	}

	router.GET("/health", healthHandler.Health)

	router.NoRoute(func(c *gin.Context) {
		utils.NotFound(c, "Not found.")
	})
	router.NoMethod(func(c *gin.Context) {
		utils.Error(c, http.StatusMethodNotAllowed, "Method \""+c.Request.Method+"\" not allowed.")
	})
}
