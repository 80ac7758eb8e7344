package service

import (
	"github.com/nawsaafa/talents-acting-sub003/internal/config"
	"github.com/nawsaafa/talents-acting-sub003/internal/repository"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

type Services struct {
	Auth         AuthService
	Subscription SubscriptionService
	Messaging    MessagingService
	RateLimit    RateLimitService
	Hub          *ConversationHub
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	hub := NewConversationHub()
	subscription := NewSubscriptionService(repos.Actor, repos.SubscriptionCache, repos.Audit, cfg.Messaging.SubscriptionCacheTTL, log)

	return &Services{
		Auth:         NewAuthService(repos.Actor, cfg.JWT, log),
		Subscription: subscription,
		Messaging:    NewMessagingService(repos.Conversation, repos.Actor, subscription, repos.Audit, hub, cfg.Messaging.PageSize, log),
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
		Hub:          hub,
	}
}
