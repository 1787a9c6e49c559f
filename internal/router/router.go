// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/internlink/placement-service/internal/config"
	"github.com/internlink/placement-service/internal/handlers"
	"github.com/internlink/placement-service/internal/metrics"
	"github.com/internlink/placement-service/internal/middleware"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/services"
)

const version = "1.0.0"

// Dependencies are the external clients built by the caller. A nil
// Publisher disables Redis fan-out.
type Dependencies struct {
	Publisher services.EventPublisher
	Gateway   services.PaymentGateway
}

func Initialize(db *gorm.DB, cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	notificationService := services.NewNotificationService(db, cfg, deps.Publisher)
	meetingService := services.NewMeetingService(cfg)
	affinityService := services.NewAffinityService(db, cfg)
	walletService := services.NewWalletService(db, cfg, deps.Gateway)

	interviewService := services.NewInterviewService(db, meetingService, notificationService)
	applicationService := services.NewApplicationService(db, interviewService, notificationService, affinityService)
	revealService := services.NewRevealService(db, cfg, walletService, storageService, notificationService)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, version)
	applicationHandler := handlers.NewApplicationHandler(applicationService)
	interviewHandler := handlers.NewInterviewHandler(interviewService)
	candidateHandler := handlers.NewCandidateHandler(revealService)
	walletHandler := handlers.NewWalletHandler(walletService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	affinityHandler := handlers.NewAffinityHandler(affinityService)

	if !affinityService.Enabled() {
		logrus.Warn("affinity service not configured, scores will report no data")
	}

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(metrics.Middleware())
	r.Use(middleware.AuditLogMiddleware(db))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes, limited per authenticated user
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthRequired(), middleware.GeneralRateLimit())
	{
		applications := v1.Group("/applications")
		{
			applications.POST("", middleware.RequireRole(models.RoleStudent), applicationHandler.Apply)
			applications.GET("/:id", applicationHandler.GetApplication)
			applications.GET("/:id/history", applicationHandler.GetHistory)
			applications.POST("/:id/withdraw", applicationHandler.Withdraw)
			applications.POST("/:id/transition", applicationHandler.Transition)
			applications.POST("/:id/interview", interviewHandler.RequestInterview)
			applications.POST("/:id/interview/response", interviewHandler.RespondToInterview)
		}

		v1.GET("/students/:id/applications", applicationHandler.ListByStudent)
		v1.GET("/companies/:id/applications", applicationHandler.ListByCompany)

		// Candidate visibility
		candidates := v1.Group("/candidates")
		candidates.Use(middleware.RequireRole(models.RoleCompany))
		{
			candidates.POST("/:studentId/cv", middleware.RevealRateLimit(), candidateHandler.ViewCV)
			candidates.POST("/:studentId/contact", middleware.RevealRateLimit(), candidateHandler.Contact)
			candidates.GET("/:studentId/reveal", candidateHandler.RevealStatus)
		}

		v1.GET("/affinity/students/:studentId/offers/:offerId", affinityHandler.GetOfferAffinity)

		wallet := v1.Group("/wallet")
		wallet.Use(middleware.RequireRole(models.RoleCompany))
		{
			wallet.GET("", walletHandler.GetWallet)
			wallet.GET("/transactions", walletHandler.GetTransactions)
			wallet.POST("/top-up", walletHandler.CreateTopUp)
			wallet.POST("/top-up/confirm", walletHandler.ConfirmTopUp)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.POST("/companies/:id/tokens", walletHandler.GrantTokens)
		}
	}

	return r, nil
}
