package main

import (
	"database/sql"
	"net/http"
	"time"

	"dialer-platform/internal/analytics"
	"dialer-platform/internal/dispatch"
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/scheduler"
	"dialer-platform/internal/settings"
	"dialer-platform/internal/tenant"
	"dialer-platform/internal/tracker"
	"dialer-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	db        *sql.DB
	leads     *leads.Service
	leadStore leads.Store
	settings  *settings.Service
	scheduler *scheduler.Service
	tracker   *tracker.Service
	analytics *analytics.Service
	webhook   string
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if deps.db != nil {
			if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Dispatch collaborator callback (public, secret-gated).
	{
		h := dispatch.OutcomeWebhookHandler{
			Tracker: deps.tracker,
			Store:   deps.leadStore,
			Secret:  deps.webhook,
		}
		r.POST("/webhooks/dispatch/outcome", h.HandleOutcome)
	}

	// tenant-scoped API group; the gateway authenticates and sets
	// X-Workspace-Id upstream.
	v1 := r.Group("/v1")
	v1.Use(tenant.RequireWorkspace())
	{
		h := httpapi.Handlers{
			Leads:     deps.leads,
			Settings:  deps.settings,
			Scheduler: deps.scheduler,
			Analytics: deps.analytics,
		}

		// LEADS routes
		leadsGroup := v1.Group("/leads")
		{
			leadsGroup.POST("", h.CreateLead)
			leadsGroup.GET("", h.ListLeads)
			leadsGroup.GET("/:lead_id", h.GetLead)
			leadsGroup.PATCH("/:lead_id", h.UpdateLead)
			leadsGroup.DELETE("/:lead_id", h.DeleteLead)
			leadsGroup.POST("/status", h.BulkUpdateStatus)
		}

		// SETTINGS routes
		settingsGroup := v1.Group("/settings")
		{
			settingsGroup.GET("", h.GetSettings)
			settingsGroup.PUT("", h.UpdateSettings)
			settingsGroup.PATCH("/automation", h.SetAutomation)
		}

		// DIALER routes
		v1.POST("/dialer/run", h.RunPass)

		// ANALYTICS routes
		analyticsGroup := v1.Group("/analytics")
		{
			analyticsGroup.GET("/stats", h.GetStats)
			analyticsGroup.GET("/appointments", h.GetAppointments)
		}
	}
}
