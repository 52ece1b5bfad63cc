package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eventease/backend/config"
	"github.com/eventease/backend/internal/analytics"
	"github.com/eventease/backend/internal/app"
	"github.com/eventease/backend/internal/attendance"
	"github.com/eventease/backend/internal/catalog"
	"github.com/eventease/backend/internal/emaillogs"
	"github.com/eventease/backend/internal/middleware"
	"github.com/eventease/backend/internal/registrations"
	"github.com/eventease/backend/internal/session"
	"github.com/eventease/backend/pkg/response"
)

func newRouter(a *app.App, cfg *config.Config, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	// Untyped nils keep the handlers' "not configured" checks working when jobs are off.
	var reports analytics.ReportQueue
	var resender emaillogs.Resender
	if a.Queue != nil {
		reports = a.Queue
	}
	if a.Emails != nil {
		resender = a.Emails
	}

	eventHandler := catalog.NewHandler(a.Catalog)
	sessionHandler := session.NewHandler(a.Sessions, logger)
	registrationHandler := registrations.NewHandler(a.Registrations, a.Catalog, logger)
	attendanceHandler := attendance.NewHandler(a.Attendance, a.Catalog, logger)
	analyticsHandler := analytics.NewHandler(a.Analytics, a.Catalog, reports, logger)
	emailLogsHandler := emaillogs.NewHandler(a.EmailLog, a.Registrations, resender, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(a.Metrics))

	router.GET("/health", func(c *gin.Context) {
		if a.Redis != nil {
			if err := a.Redis.Health(c.Request.Context()); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				response.ServiceUnavailable(c, "redis unavailable")
				return
			}
		}
		response.OK(c, gin.H{"status": "ok", "store": cfg.Store.Driver})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	sessions := router.Group("/session")
	{
		sessions.POST("/login", sessionHandler.Login)
		sessions.GET("", sessionHandler.Current)
		sessions.DELETE("", sessionHandler.Logout)
		sessions.GET("/preferences", sessionHandler.GetPreferences)
		sessions.PUT("/preferences", sessionHandler.UpdatePreferences)
	}

	router.GET("/me/registrations", registrationHandler.ListMine)

	events := router.Group("/events")
	{
		events.GET("", eventHandler.List)
		events.GET("/:id", eventHandler.Get)

		events.POST("/:id/registrations", registrationHandler.Register)
		events.GET("/:id/registrations", registrationHandler.ListForEvent)
		events.GET("/:id/registration", registrationHandler.Status)
		events.DELETE("/:id/registration", registrationHandler.Cancel)

		events.POST("/:id/checkin", attendanceHandler.CheckIn)
		events.POST("/:id/checkout", attendanceHandler.CheckOut)
		events.GET("/:id/attendance", attendanceHandler.ListForEvent)
		events.GET("/:id/attendance/me", attendanceHandler.Mine)

		events.GET("/:id/analytics", analyticsHandler.GetByEvent)
		events.POST("/:id/reports", analyticsHandler.RequestReport)

		events.GET("/:id/emails", emailLogsHandler.ListByEvent)
		events.POST("/:id/emails/resend", emailLogsHandler.Resend)
	}
	return router
}
