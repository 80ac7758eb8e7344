package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

type Repositories struct {
	Actor             ActorRepository
	Conversation      ConversationRepository
	SubscriptionCache SubscriptionCacheRepository
	RateLimit         RateLimitRepository
	Audit             AuditRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		Actor:             NewActorRepository(db, log),
		Conversation:      NewConversationRepository(db, log),
		SubscriptionCache: NewSubscriptionCacheRepository(redis, log),
		RateLimit:         NewRateLimitRepository(redis, log),
		Audit:             NewAuditRepository(db, log),
	}
}
