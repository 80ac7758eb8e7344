package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	"github.com/nawsaafa/talents-acting-sub003/internal/middleware"
	"github.com/nawsaafa/talents-acting-sub003/internal/service"
	apperrors "github.com/nawsaafa/talents-acting-sub003/pkg/errors"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

type MessagingHandler struct {
	messagingService service.MessagingService
	log              logger.Logger
}

func NewMessagingHandler(messagingService service.MessagingService, log logger.Logger) *MessagingHandler {
	return &MessagingHandler{
		messagingService: messagingService,
		log:              log,
	}
}

// Contactability answers "may I message this talent" for the compose UI,
// without sending anything.
func (h *MessagingHandler) Contactability(c *gin.Context) {
	talentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid talent ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	decision, err := h.messagingService.ContactDecision(c.Request.Context(), actor, talentID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

type StartConversationRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *MessagingHandler) StartConversation(c *gin.Context) {
	talentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid talent ID"})
		return
	}

	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFromContext(c)
	conv, msg, err := h.messagingService.StartConversation(c.Request.Context(), actor, talentID, req.Content)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"conversation": conv,
		"message":      msg,
	})
}

func (h *MessagingHandler) ListConversations(c *gin.Context) {
	actor := middleware.ActorFromContext(c)
	summaries, err := h.messagingService.ListConversations(c.Request.Context(), actor)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

func (h *MessagingHandler) GetConversation(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	conv, err := h.messagingService.GetConversation(c.Request.Context(), actor, conversationID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

func (h *MessagingHandler) GetMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	actor := middleware.ActorFromContext(c)
	messages, err := h.messagingService.GetMessages(c.Request.Context(), actor, conversationID, limit, offset)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *MessagingHandler) SendMessage(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFromContext(c)
	msg, err := h.messagingService.SendMessage(c.Request.Context(), actor, conversationID, req.Content)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// renderError distinguishes policy denials, which carry the decision and are
// shown verbatim, from boundary and infrastructure errors.
func (h *MessagingHandler) renderError(c *gin.Context, err error) {
	var denied *service.AccessDeniedError
	if errors.As(err, &denied) {
		status := http.StatusForbidden
		if denied.Decision.RequiresSubscription {
			status = http.StatusPaymentRequired
		}
		c.JSON(status, gin.H{
			"error":                 denied.Decision.Reason,
			"requires_subscription": denied.Decision.RequiresSubscription,
		})
		return
	}

	if errors.Is(err, domain.ErrEmptyMessage) || errors.Is(err, domain.ErrMessageTooLong) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := apperrors.HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Messaging request failed", "error", err, "path", c.FullPath())
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
