package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justsurfingit/jobtracker/internal/auth"
	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/logger"
	"github.com/justsurfingit/jobtracker/internal/metrics"
	"github.com/justsurfingit/jobtracker/internal/ratelimit"
	"github.com/justsurfingit/jobtracker/internal/realtime"
	"github.com/justsurfingit/jobtracker/internal/services"
)

// Deps is everything the router wires into handlers. LLM and Email may be nil.
type Deps struct {
	Log         *zap.Logger
	CORSOrigins []string

	Tokens   *auth.TokenManager
	Admins   *authz.AdminPolicy
	Limiters ratelimit.Limiters
	Hub      *realtime.Hub

	Auth         *services.AuthService
	Owners       *services.OwnershipService
	Profiles     *services.ProfileService
	Jobs         *services.JobService
	Applications *services.ApplicationService
	Hunts        *services.HuntService
	Settings     *services.SettingsService
	Dashboard    *services.DashboardService
	LLM          *services.LLMService
	Email        *services.EmailService
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		ginzap.Ginzap(d.Log, time.RFC3339, true),
		ginzap.RecoveryWithZap(d.Log, true),
		cors.New(corsConfig(d.CORSOrigins)),
		logger.Middleware(d.Log.Sugar()),
		auth.Authenticate(d.Tokens, d.Auth),
	)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	query := d.Limiters.Middleware(ratelimit.ClassQuery)
	mutation := d.Limiters.Middleware(ratelimit.ClassMutation)
	ai := d.Limiters.Middleware(ratelimit.ClassAI)
	signedIn := authz.RequireAuth()

	ownsProfile := authz.RequireOwnership(d.Owners.Profiles(), "id")
	ownsJob := authz.RequireOwnership(d.Owners.Jobs(), "id")
	ownsApplication := authz.RequireOwnership(d.Owners.Applications(), "id")
	ownsHunt := authz.RequireOwnership(d.Owners.Hunts(), "id")

	authHandler := NewAuthHandler(d.Auth)
	profileHandler := NewProfileHandler(d.Profiles)
	jobHandler := NewJobHandler(d.LLM, d.Jobs)
	applicationHandler := NewApplicationHandler(d.Applications, d.Owners)
	huntHandler := NewHuntHandler(d.Hunts, d.Owners)
	settingsHandler := NewSettingsHandler(d.Settings, d.Owners)
	dashboardHandler := NewDashboardHandler(d.Dashboard)
	automationHandler := NewAutomationHandler(d.Email, d.LLM, d.Admins)
	adminHandler := NewAdminHandler(d.Auth, d.Limiters)
	eventsHandler := NewEventsHandler(d.Hub)

	api := r.Group("/api/v1")
	{
		api.GET("/health", HealthCheck)

		authRoutes := api.Group("/auth")
		authRoutes.POST("/register", mutation, authHandler.Register)
		authRoutes.POST("/login", mutation, authHandler.Login)
		authRoutes.POST("/demo", mutation, authHandler.Demo)
		authRoutes.POST("/logout", mutation, signedIn, authHandler.Logout)
		authRoutes.GET("/session", query, signedIn, authHandler.Session)

		profiles := api.Group("/profiles")
		profiles.GET("", query, signedIn, profileHandler.List)
		profiles.POST("", mutation, signedIn, profileHandler.Create)
		profiles.GET("/:id", query, signedIn, ownsProfile, profileHandler.Get)
		profiles.PATCH("/:id", mutation, signedIn, ownsProfile, profileHandler.Update)
		profiles.DELETE("/:id", mutation, signedIn, ownsProfile, profileHandler.Delete)

		jobs := api.Group("/jobs")
		jobs.GET("", query, jobHandler.ListJobs)
		jobs.GET("/:id", query, jobHandler.GetJob)
		jobs.POST("", mutation, signedIn, jobHandler.CreateJob)
		jobs.POST("/extract", mutation, ai, signedIn, jobHandler.ParseJob)
		jobs.PATCH("/:id", mutation, signedIn, ownsJob, jobHandler.UpdateJob)
		jobs.DELETE("/:id", mutation, signedIn, ownsJob, jobHandler.DeleteJob)

		applications := api.Group("/applications")
		applications.GET("", query, signedIn, applicationHandler.List)
		applications.POST("", mutation, signedIn, applicationHandler.Create)
		applications.GET("/:id", query, signedIn, ownsApplication, applicationHandler.Get)
		applications.PATCH("/:id", mutation, signedIn, ownsApplication, applicationHandler.Update)
		applications.PATCH("/:id/status", mutation, signedIn, ownsApplication, applicationHandler.UpdateStatus)
		applications.DELETE("/:id", mutation, signedIn, ownsApplication, applicationHandler.Delete)
		applications.GET("/:id/events", query, signedIn, ownsApplication, applicationHandler.Events)

		hunts := api.Group("/hunts")
		hunts.GET("", query, signedIn, huntHandler.List)
		hunts.POST("", mutation, signedIn, huntHandler.Create)
		hunts.GET("/:id", query, signedIn, ownsHunt, huntHandler.Get)
		hunts.PATCH("/:id", mutation, signedIn, ownsHunt, huntHandler.Update)
		hunts.DELETE("/:id", mutation, signedIn, ownsHunt, huntHandler.Delete)

		api.GET("/settings", query, signedIn, settingsHandler.Get)
		api.PUT("/settings", mutation, signedIn, settingsHandler.Put)

		api.GET("/dashboard/stats", query, signedIn, dashboardHandler.Stats)
		api.GET("/dashboard/activity", query, signedIn, dashboardHandler.Activity)

		automation := api.Group("/automation")
		automation.POST("/email-sync", mutation, ai, signedIn, automationHandler.EmailSync)
		automation.POST("/classify-email", mutation, ai, signedIn, automationHandler.ClassifyEmail)

		admin := api.Group("/admin", query, signedIn, authz.RequireAdmin(d.Admins))
		admin.GET("/users", adminHandler.Users)
		admin.GET("/ratelimit", adminHandler.RateLimits)

		api.GET("/events", query, signedIn, eventsHandler.Stream)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
