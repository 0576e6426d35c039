package httpapi

import (
	"errors"
	"net/http"

	"dialer-platform/internal/analytics"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/scheduler"
	"dialer-platform/internal/settings"
	"dialer-platform/internal/tenant"
	"dialer-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Leads     *leads.Service
	Settings  *settings.Service
	Scheduler *scheduler.Service
	Analytics *analytics.Service
}

func workspaceOrAbort(c *gin.Context) (string, bool) {
	ws, err := tenant.WorkspaceID(c.Request.Context())
	if err != nil || ws == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return "", false
	}
	return ws, true
}

// --- Leads ---

func (h Handlers) CreateLead(c *gin.Context) {
	if h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "leads not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	var req leads.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := h.Leads.Create(c.Request.Context(), ws, req)
	if err != nil {
		if errors.Is(err, leads.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phone required"})
			return
		}
		logger.FromGin(c).Error("lead create failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (h Handlers) ListLeads(c *gin.Context) {
	if h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "leads not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	var req leads.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	rows, total, err := h.Leads.List(c.Request.Context(), ws, req)
	if err != nil {
		logger.FromGin(c).Error("lead list failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": rows, "total": total})
}

func (h Handlers) GetLead(c *gin.Context) {
	if h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "leads not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	l, err := h.Leads.Get(c.Request.Context(), ws, c.Param("lead_id"))
	if err != nil {
		if leads.IsNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		logger.FromGin(c).Error("lead get failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h Handlers) UpdateLead(c *gin.Context) {
	if h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "leads not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	var req leads.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := h.Leads.UpdateContact(c.Request.Context(), ws, c.Param("lead_id"), req)
	if err != nil {
		switch {
		case leads.IsNotFound(err):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		case errors.Is(err, leads.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid fields"})
		default:
			logger.FromGin(c).Error("lead update failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h Handlers) DeleteLead(c *gin.Context) {
	if h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "leads not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	if err := h.Leads.Delete(c.Request.Context(), ws, c.Param("lead_id")); err != nil {
		if leads.IsNotFound(err) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found"})
			return
		}
		logger.FromGin(c).Error("lead delete failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type bulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

// BulkUpdateStatus re-labels leads, the operator path for re-queueing
// soft failures. Illegal lifecycle transitions are rejected.
func (h Handlers) BulkUpdateStatus(c *gin.Context) {
	if h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "leads not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	updated, err := h.Leads.UpdateStatusBulk(c.Request.Context(), ws, req.IDs, leads.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, leads.ErrIllegalTransition):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error(), "updated": updated})
		case errors.Is(err, leads.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ids and a valid status required"})
		case leads.IsNotFound(err):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "lead not found", "updated": updated})
		default:
			logger.FromGin(c).Error("bulk status update failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// --- Settings ---

func (h Handlers) GetSettings(c *gin.Context) {
	if h.Settings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "settings not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	s, err := h.Settings.Get(c.Request.Context(), ws)
	if err != nil {
		if errors.Is(err, settings.ErrInvalidPolicy) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		logger.FromGin(c).Error("settings get failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h Handlers) UpdateSettings(c *gin.Context) {
	if h.Settings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "settings not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	var in settings.AgentSettings
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	in.WorkspaceID = ws
	out, err := h.Settings.Update(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, settings.ErrInvalidPolicy) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.FromGin(c).Error("settings update failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

type automationRequest struct {
	Enabled bool `json:"enabled"`
}

func (h Handlers) SetAutomation(c *gin.Context) {
	if h.Settings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "settings not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	var req automationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Settings.SetAutomationEnabled(c.Request.Context(), ws, req.Enabled)
	if err != nil {
		logger.FromGin(c).Error("automation toggle failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Dialer ---

// RunPass triggers one scheduling pass outside the cron loop. Safe to
// call concurrently with the loop: reservation is per-lead atomic.
func (h Handlers) RunPass(c *gin.Context) {
	if h.Scheduler == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "scheduler not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	batch, err := h.Scheduler.RunPass(c.Request.Context(), ws)
	if err != nil {
		switch {
		case errors.Is(err, settings.ErrInvalidPolicy):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, scheduler.ErrStoreUnavailable):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable, retry next cycle"})
		case errors.Is(err, scheduler.ErrDispatchFailed):
			logger.FromGin(c).Error("dispatch failed", "batch_id", batch.ID, "err", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "dispatch failed", "batch_id": batch.ID})
		default:
			logger.FromGin(c).Error("scheduling pass failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pass failed"})
		}
		return
	}
	c.JSON(http.StatusOK, batch)
}

// --- Analytics ---

func (h Handlers) GetStats(c *gin.Context) {
	if h.Analytics == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "analytics not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	stats, err := h.Analytics.GetStats(c.Request.Context(), ws, c.Query("agent_type"))
	if err != nil {
		logger.FromGin(c).Error("stats failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h Handlers) GetAppointments(c *gin.Context) {
	if h.Analytics == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "analytics not configured"})
		return
	}
	ws, ok := workspaceOrAbort(c)
	if !ok {
		return
	}
	appts, err := h.Analytics.UpcomingAppointments(c.Request.Context(), ws, c.Query("agent_type"))
	if err != nil {
		logger.FromGin(c).Error("appointments failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "appointments failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}
