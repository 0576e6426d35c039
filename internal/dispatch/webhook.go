package dispatch

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"dialer-platform/internal/leads"
	"dialer-platform/internal/tracker"
	"dialer-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// OutcomeWebhookHandler receives the dispatch collaborator's callback,
// classifies the raw result, and feeds the attempt tracker.
//
// No business logic here beyond classification; state changes belong to
// the tracker.
//
// Tenant scoping: workspace_id travels in the payload (it was attached
// to the batch at dispatch time). The shared secret gates the public
// endpoint.
type OutcomeWebhookHandler struct {
	Tracker *tracker.Service

	// Store resolves leads by phone when the provider echoes only the
	// dialed number instead of the lead id.
	Store leads.Store

	// Secret is compared against the X-Webhook-Secret header.
	Secret string
}

const headerWebhookSecret = "X-Webhook-Secret"

// outcomeForm is the callback payload. Either lead_id or phone must be
// present; result is the provider's raw end-of-call label.
type outcomeForm struct {
	WorkspaceID    string `json:"workspace_id"`
	LeadID         string `json:"lead_id,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Result         string `json:"result"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (h OutcomeWebhookHandler) HandleOutcome(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Tracker == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "tracker not configured"})
		return
	}
	if h.Secret != "" {
		got := c.GetHeader(headerWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad secret"})
			return
		}
	}

	var form outcomeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		log.Warn("outcome webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if form.WorkspaceID == "" || form.Result == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "workspace_id and result required"})
		return
	}

	leadID := form.LeadID
	if leadID == "" {
		if form.Phone == "" || h.Store == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lead_id or phone required"})
			return
		}
		l, err := h.Store.GetByPhone(c.Request.Context(), form.WorkspaceID, form.Phone)
		if err != nil {
			if leads.IsNotFound(err) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown lead"})
				return
			}
			log.Error("lead lookup failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		leadID = l.ID
	}

	outcome := ClassifyResult(form.Result)
	err := h.Tracker.RecordOutcome(c.Request.Context(), form.WorkspaceID, leadID, outcome, form.IdempotencyKey)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"lead_id": leadID, "outcome": string(outcome)})
	case errors.Is(err, tracker.ErrNotCalling):
		// The lead left calling already (duplicate or stale callback).
		// 409 tells the provider not to retry.
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "lead not in calling state"})
	case leads.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown lead"})
	case errors.Is(err, tracker.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid outcome"})
	default:
		log.Error("outcome recording failed", "lead_id", leadID, "err", err)
		// 5xx invites a redelivery; a failed write returns its
		// idempotency key so the retry can still apply the outcome.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "outcome recording failed"})
	}
}
