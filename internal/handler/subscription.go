package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nawsaafa/talents-acting-sub003/internal/config"
	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	"github.com/nawsaafa/talents-acting-sub003/internal/service"
	apperrors "github.com/nawsaafa/talents-acting-sub003/pkg/errors"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

// SubscriptionHandler receives billing status callbacks. The payment
// processor itself is out of scope; this is the surface its webhook hits.
type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	cfg                 config.MessagingConfig
	log                 logger.Logger
}

func NewSubscriptionHandler(subscriptionService service.SubscriptionService, cfg config.MessagingConfig, log logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		cfg:                 cfg,
		log:                 log,
	}
}

type SubscriptionStatusRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

func (h *SubscriptionHandler) UpdateStatus(c *gin.Context) {
	secret := h.cfg.BillingWebhookSecret
	if secret == "" {
		h.log.Error("Billing webhook called but no secret configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing webhook not configured"})
		return
	}

	provided := c.GetHeader("X-Billing-Secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var req SubscriptionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid actor ID"})
		return
	}

	status := domain.SubscriptionStatus(req.Status)
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown subscription status"})
		return
	}

	if err := h.subscriptionService.UpdateStatus(c.Request.Context(), actorID, status); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "subscription status updated"})
}
