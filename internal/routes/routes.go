package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/guard"
	"telehealth-app-server/internal/handlers"
	"telehealth-app-server/internal/lifecycle"
	"telehealth-app-server/internal/metrics"
	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/relay"
	"telehealth-app-server/internal/reports"
	"telehealth-app-server/internal/store"
)

// Deps are the collaborators the route table wires into handlers.
type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	Store   *store.Store
	Engine  *lifecycle.Engine
	Metrics *metrics.Collector
	// Redis backs the auth rate limiter. Nil disables limiting.
	Redis redis.Cmdable
	// Hub is the push relay. Nil in poll mode, which leaves /ws unregistered.
	Hub *relay.Hub
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(d.Log), middleware.RequestLogger(d.Log), middleware.Metrics(d.Metrics))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{d.Config.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, d)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg, log := d.Config, d.Log
	g := guard.New(d.Store.Appointments)
	reportService := reports.NewService(d.Store, g, d.Metrics, log, cfg.MaxReportBytes)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.Store, cfg, log)
	userHandler := handlers.NewUserHandler(d.Store, log)
	appointmentHandler := handlers.NewAppointmentHandler(d.Engine, log)
	messageHandler := handlers.NewMessageHandler(d.Engine, log)
	reportHandler := handlers.NewReportHandler(reportService, cfg.MaxReportBytes, log)
	notificationHandler := handlers.NewNotificationHandler(d.Store, log)
	patientNoteHandler := handlers.NewPatientNoteHandler(d.Store, g, log)
	healthHandler := handlers.NewHealthHandler(d.Store, log)

	limiter := middleware.RateLimiter(d.Redis, middleware.RateLimitConfig{
		Limit:  cfg.RateLimit.AuthLimit,
		Window: cfg.RateLimit.AuthWindow,
	}, log)

	// Public routes (no authentication required)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", limiter, authHandler.Register)
		authRoutes.POST("/register-doctor", limiter, authHandler.RegisterDoctor)
		authRoutes.POST("/login", limiter, authHandler.Login)
		authRoutes.POST("/refresh-token", limiter, authHandler.RefreshToken)
	}

	// Authenticated routes
	private := router.Group("")
	private.Use(middleware.AuthMiddleware(cfg, log))
	{
		private.POST("/auth/logout", authHandler.Logout)
		private.GET("/auth/me", authHandler.GetProfile)

		doctorOnly := middleware.RoleAuthMiddleware(log, models.RoleDoctor)
		patientOnly := middleware.RoleAuthMiddleware(log, models.RolePatient)

		appointmentRoutes := private.Group("/appointments")
		{
			// Static segments first so they never reach /:id
			appointmentRoutes.GET("/doctors", userHandler.GetDoctors)
			appointmentRoutes.GET("/me", appointmentHandler.GetMyAppointments)
			appointmentRoutes.GET("/poll", appointmentHandler.Poll)

			appointmentRoutes.POST("", patientOnly, appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			// Patients may send exactly {status: declined}; the engine routes that to cancel.
			appointmentRoutes.PATCH("/:id", appointmentHandler.UpdateAppointment)
			appointmentRoutes.POST("/:id/cancel", patientOnly, appointmentHandler.CancelAppointment)
			appointmentRoutes.POST("/:id/notes", doctorOnly, appointmentHandler.AddNote)
			appointmentRoutes.GET("/:id/messages", messageHandler.GetMessages)
			appointmentRoutes.POST("/:id/messages", messageHandler.SendMessage)
		}

		reportRoutes := private.Group("/reports")
		{
			reportRoutes.GET("", reportHandler.GetMyReports)
			reportRoutes.POST("", patientOnly, reportHandler.UploadReport)
			reportRoutes.GET("/patient/:patientId", doctorOnly, reportHandler.GetPatientReports)
			reportRoutes.GET("/:id", reportHandler.GetReportByID)
			reportRoutes.DELETE("/:id", reportHandler.DeleteReport)
		}

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkAsRead)
			notificationRoutes.POST("/mark-all-read", notificationHandler.MarkAllAsRead)
		}

		patientNoteRoutes := private.Group("/patient-notes")
		patientNoteRoutes.Use(doctorOnly)
		{
			patientNoteRoutes.GET("/patient/:patientId", patientNoteHandler.GetNotesForPatient)
			patientNoteRoutes.POST("", patientNoteHandler.CreateNote)
			patientNoteRoutes.PUT("/:id", patientNoteHandler.UpdateNote)
			patientNoteRoutes.DELETE("/:id", patientNoteHandler.DeleteNote)
		}
	}

	if d.Hub != nil {
		realtimeHandler := handlers.NewRealtimeHandler(d.Hub, cfg, log)
		router.GET("/ws", realtimeHandler.Connect)
	}

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
}
