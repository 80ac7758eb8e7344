package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nawsaafa/talents-acting-sub003/internal/middleware"
	"github.com/nawsaafa/talents-acting-sub003/internal/service"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to the marketplace frontend origin
	},
}

// WebSocketHandler streams new messages of one conversation to a connected
// participant. The connection is read-only: sends still go through the HTTP
// path so every message passes the same access evaluation.
type WebSocketHandler struct {
	messagingService service.MessagingService
	hub              *service.ConversationHub
	log              logger.Logger
}

func NewWebSocketHandler(messagingService service.MessagingService, hub *service.ConversationHub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		messagingService: messagingService,
		hub:              hub,
		log:              log,
	}
}

func (h *WebSocketHandler) StreamConversation(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	actor := middleware.ActorFromContext(c)
	canView, err := h.messagingService.CanView(c.Request.Context(), actor, conversationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	if !canView {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a participant in this conversation."})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(conversationID)
	defer h.hub.Unsubscribe(conversationID, sub)

	// Drain client frames so pings and close frames are processed; the
	// goroutine ends when the peer goes away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("WebSocket write failed", "error", err, "conversation_id", conversationID)
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
