package handler

import (
	"github.com/nawsaafa/talents-acting-sub003/internal/config"
	"github.com/nawsaafa/talents-acting-sub003/internal/service"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Messaging    *MessagingHandler
	Subscription *SubscriptionHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(cfg),
		Auth:         NewAuthHandler(services.Auth, log),
		Messaging:    NewMessagingHandler(services.Messaging, log),
		Subscription: NewSubscriptionHandler(services.Subscription, cfg.Messaging, log),
		WebSocket:    NewWebSocketHandler(services.Messaging, services.Hub, log),
	}
}
