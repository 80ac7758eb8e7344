package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	"github.com/nawsaafa/talents-acting-sub003/internal/repository"
	apperrors "github.com/nawsaafa/talents-acting-sub003/pkg/errors"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

type SubscriptionService interface {
	// CurrentStatus returns the actor's billing state from the cache when
	// fresh, falling back to the actors table. Non-subscribable roles always
	// report NONE.
	CurrentStatus(ctx context.Context, actorID uuid.UUID, role domain.Role) (domain.SubscriptionStatus, error)
	// UpdateStatus is the billing webhook write path: persist and invalidate.
	UpdateStatus(ctx context.Context, actorID uuid.UUID, status domain.SubscriptionStatus) error
}

type subscriptionService struct {
	actorRepo repository.ActorRepository
	cache     repository.SubscriptionCacheRepository
	auditRepo repository.AuditRepository
	cacheTTL  time.Duration
	log       logger.Logger
}

func NewSubscriptionService(actorRepo repository.ActorRepository, cache repository.SubscriptionCacheRepository, auditRepo repository.AuditRepository, cacheTTL time.Duration, log logger.Logger) SubscriptionService {
	return &subscriptionService{
		actorRepo: actorRepo,
		cache:     cache,
		auditRepo: auditRepo,
		cacheTTL:  cacheTTL,
		log:       log,
	}
}

func (s *subscriptionService) CurrentStatus(ctx context.Context, actorID uuid.UUID, role domain.Role) (domain.SubscriptionStatus, error) {
	if !role.Subscribable() {
		return domain.SubscriptionNone, nil
	}

	status, hit, err := s.cache.Get(ctx, actorID)
	if err == nil && hit {
		return status, nil
	}
	if err != nil {
		// Cache trouble is not a reason to deny; fall through to the database.
		s.log.Warn("Subscription cache read failed, falling back to database", "error", err, "actor_id", actorID)
	}

	actor, err := s.actorRepo.GetByID(ctx, actorID)
	if err != nil {
		return "", err
	}

	status = actor.SubscriptionStatus
	if !status.IsValid() {
		status = domain.SubscriptionNone
	}

	if err := s.cache.Set(ctx, actorID, status, s.cacheTTL); err != nil {
		s.log.Warn("Failed to cache subscription status", "error", err, "actor_id", actorID)
	}

	return status, nil
}

func (s *subscriptionService) UpdateStatus(ctx context.Context, actorID uuid.UUID, status domain.SubscriptionStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown subscription status", apperrors.ErrBadRequest)
	}

	actor, err := s.actorRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.Role.Subscribable() {
		return fmt.Errorf("%w: actor role carries no subscription", apperrors.ErrBadRequest)
	}

	if err := s.actorRepo.UpdateSubscriptionStatus(ctx, actorID, status); err != nil {
		return err
	}

	if err := s.cache.Invalidate(ctx, actorID); err != nil {
		s.log.Warn("Failed to invalidate subscription cache", "error", err, "actor_id", actorID)
	}

	audit := &domain.AuditLog{
		EventTime: time.Now(),
		ActorID:   &actorID,
		ActorRole: string(actor.Role),
		EventType: domain.EventTypeSubscriptionChange,
		Payload:   map[string]interface{}{"from": actor.SubscriptionStatus, "to": status},
	}
	if err := s.auditRepo.CreateLog(ctx, audit); err != nil {
		s.log.Warn("Failed to audit subscription change", "error", err, "actor_id", actorID)
	}

	s.log.Info("Subscription status updated", "actor_id", actorID, "status", status)
	return nil
}
