package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

// SubscriptionCacheRepository keeps a short-lived copy of an actor's billing
// state in redis so the hot send path skips the actors table. A miss is not
// an error; callers fall back to the database.
type SubscriptionCacheRepository interface {
	Get(ctx context.Context, actorID uuid.UUID) (domain.SubscriptionStatus, bool, error)
	Set(ctx context.Context, actorID uuid.UUID, status domain.SubscriptionStatus, ttl time.Duration) error
	Invalidate(ctx context.Context, actorID uuid.UUID) error
}

type subscriptionCacheRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewSubscriptionCacheRepository(redis *redis.Client, log logger.Logger) SubscriptionCacheRepository {
	return &subscriptionCacheRepository{redis: redis, log: log}
}

func cacheKey(actorID uuid.UUID) string {
	return "subscription:" + actorID.String()
}

func (r *subscriptionCacheRepository) Get(ctx context.Context, actorID uuid.UUID) (domain.SubscriptionStatus, bool, error) {
	val, err := r.redis.Get(ctx, cacheKey(actorID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		r.log.Error("Failed to read subscription cache", "error", err, "actor_id", actorID)
		return "", false, err
	}

	status := domain.SubscriptionStatus(val)
	if !status.IsValid() {
		// Stale or corrupted entry; treat as a miss.
		return "", false, nil
	}

	return status, true, nil
}

func (r *subscriptionCacheRepository) Set(ctx context.Context, actorID uuid.UUID, status domain.SubscriptionStatus, ttl time.Duration) error {
	err := r.redis.Set(ctx, cacheKey(actorID), string(status), ttl).Err()
	if err != nil {
		r.log.Error("Failed to write subscription cache", "error", err, "actor_id", actorID)
		return err
	}
	return nil
}

func (r *subscriptionCacheRepository) Invalidate(ctx context.Context, actorID uuid.UUID) error {
	err := r.redis.Del(ctx, cacheKey(actorID)).Err()
	if err != nil {
		r.log.Error("Failed to invalidate subscription cache", "error", err, "actor_id", actorID)
		return err
	}
	return nil
}
