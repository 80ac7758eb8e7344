package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nawsaafa/talents-acting-sub003/internal/access"
	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	"github.com/nawsaafa/talents-acting-sub003/internal/repository"
	apperrors "github.com/nawsaafa/talents-acting-sub003/pkg/errors"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

// AccessDeniedError carries the evaluator's decision up to the handler so the
// reason can be rendered to the user verbatim. A denial is an expected
// outcome, not an infrastructure failure.
type AccessDeniedError struct {
	Decision access.Decision
}

func (e *AccessDeniedError) Error() string {
	return e.Decision.Reason
}

func (e *AccessDeniedError) Unwrap() error {
	if e.Decision.RequiresSubscription {
		return apperrors.ErrSubscriptionRequired
	}
	return apperrors.ErrForbidden
}

type MessagingService interface {
	// ContactDecision previews whether the actor could message the talent,
	// without sending anything. Drives the "message me" button state.
	ContactDecision(ctx context.Context, actor *domain.Actor, talentID uuid.UUID) (access.Decision, error)
	StartConversation(ctx context.Context, actor *domain.Actor, talentID uuid.UUID, content string) (*domain.Conversation, *domain.Message, error)
	SendMessage(ctx context.Context, actor *domain.Actor, conversationID uuid.UUID, content string) (*domain.Message, error)
	GetConversation(ctx context.Context, actor *domain.Actor, conversationID uuid.UUID) (*domain.Conversation, error)
	GetMessages(ctx context.Context, actor *domain.Actor, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	ListConversations(ctx context.Context, actor *domain.Actor) ([]*domain.ConversationSummary, error)
	CanView(ctx context.Context, actor *domain.Actor, conversationID uuid.UUID) (bool, error)
}

type messagingService struct {
	convRepo     repository.ConversationRepository
	actorRepo    repository.ActorRepository
	subscription SubscriptionService
	auditRepo    repository.AuditRepository
	hub          *ConversationHub
	pageSize     int
	log          logger.Logger
}

func NewMessagingService(
	convRepo repository.ConversationRepository,
	actorRepo repository.ActorRepository,
	subscription SubscriptionService,
	auditRepo repository.AuditRepository,
	hub *ConversationHub,
	pageSize int,
	log logger.Logger,
) MessagingService {
	return &messagingService{
		convRepo:     convRepo,
		actorRepo:    actorRepo,
		subscription: subscription,
		auditRepo:    auditRepo,
		hub:          hub,
		pageSize:     pageSize,
		log:          log,
	}
}

func (s *messagingService) ContactDecision(ctx context.Context, actor *domain.Actor, talentID uuid.UUID) (access.Decision, error) {
	if _, err := s.requireTalent(ctx, talentID); err != nil {
		return access.Decision{}, err
	}

	status, err := s.subscription.CurrentStatus(ctx, actor.ID, actor.Role)
	if err != nil {
		// Cannot decide without the subscription fact; surface as retryable,
		// never as a silent allow or deny.
		return access.Decision{}, fmt.Errorf("subscription lookup: %w", err)
	}

	return access.CanInitiateContact(actor.Role, status), nil
}

func (s *messagingService) StartConversation(ctx context.Context, actor *domain.Actor, talentID uuid.UUID, content string) (*domain.Conversation, *domain.Message, error) {
	if actor.ID == talentID {
		return nil, nil, fmt.Errorf("%w: cannot start a conversation with yourself", apperrors.ErrBadRequest)
	}

	if _, err := s.requireTalent(ctx, talentID); err != nil {
		return nil, nil, err
	}

	status, err := s.subscription.CurrentStatus(ctx, actor.ID, actor.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("subscription lookup: %w", err)
	}

	decision := access.CanInitiateContact(actor.Role, status)
	if !decision.CanSend {
		s.auditDenied(ctx, actor, nil, decision)
		return nil, nil, &AccessDeniedError{Decision: decision}
	}

	content, err = domain.ValidateMessageContent(content)
	if err != nil {
		return nil, nil, err
	}

	conv, msg, err := s.convRepo.CreateWithFirstMessage(ctx, actor.ID, talentID, content)
	if err != nil {
		return nil, nil, fmt.Errorf("create conversation: %w", err)
	}

	s.hub.Publish(conv.ID, msg)
	s.audit(ctx, actor, &conv.ID, domain.EventTypeContactInitiated, map[string]interface{}{"talent_id": talentID})
	s.log.Info("Contact initiated", "actor_id", actor.ID, "talent_id", talentID, "conversation_id", conv.ID)

	return conv, msg, nil
}

func (s *messagingService) SendMessage(ctx context.Context, actor *domain.Actor, conversationID uuid.UUID, content string) (*domain.Message, error) {
	isParticipant, err := s.convRepo.IsParticipant(ctx, conversationID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("participation lookup: %w", err)
	}

	status, err := s.subscription.CurrentStatus(ctx, actor.ID, actor.Role)
	if err != nil {
		return nil, fmt.Errorf("subscription lookup: %w", err)
	}

	decision := access.CanReplyToConversation(actor.Role, status, isParticipant)
	if !decision.CanSend {
		s.auditDenied(ctx, actor, &conversationID, decision)
		return nil, &AccessDeniedError{Decision: decision}
	}

	content, err = domain.ValidateMessageContent(content)
	if err != nil {
		return nil, err
	}

	msg, err := s.convRepo.AddMessage(ctx, conversationID, actor.ID, content)
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}

	s.hub.Publish(conversationID, msg)
	s.audit(ctx, actor, &conversationID, domain.EventTypeMessageSent, nil)

	return msg, nil
}

func (s *messagingService) GetConversation(ctx context.Context, actor *domain.Actor, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	pair := [2]uuid.UUID{conv.ParticipantA, conv.ParticipantB}
	if !access.CanViewConversation(actor.ID, pair, actor.Role) {
		// Hide existence from outsiders.
		return nil, apperrors.ErrConversationNotFound
	}

	return conv, nil
}

func (s *messagingService) GetMessages(ctx context.Context, actor *domain.Actor, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	if _, err := s.GetConversation(ctx, actor, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.convRepo.GetMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}

	// Reading the thread marks the counterpart's messages read. Admin reads
	// are observational and leave read state alone.
	if actor.Role != domain.RoleAdmin {
		if err := s.convRepo.MarkMessagesRead(ctx, conversationID, actor.ID); err != nil {
			s.log.Warn("Failed to mark messages read", "error", err, "conversation_id", conversationID)
		}
	}

	return messages, nil
}

func (s *messagingService) ListConversations(ctx context.Context, actor *domain.Actor) ([]*domain.ConversationSummary, error) {
	return s.convRepo.ListForActor(ctx, actor.ID)
}

func (s *messagingService) CanView(ctx context.Context, actor *domain.Actor, conversationID uuid.UUID) (bool, error) {
	pair, err := s.convRepo.ParticipantIDs(ctx, conversationID)
	if err != nil {
		return false, err
	}
	return access.CanViewConversation(actor.ID, pair, actor.Role), nil
}

// requireTalent checks the contact target is an active talent profile.
// Initiation always points at a talent; talent-to-talent or contact toward a
// professional goes through replies only.
func (s *messagingService) requireTalent(ctx context.Context, talentID uuid.UUID) (*domain.Actor, error) {
	target, err := s.actorRepo.GetByID(ctx, talentID)
	if err != nil {
		return nil, err
	}
	if target.Role != domain.RoleTalent {
		return nil, fmt.Errorf("%w: contact target is not a talent profile", apperrors.ErrBadRequest)
	}
	if !target.IsActive {
		return nil, apperrors.ErrActorNotFound
	}
	return target, nil
}

func (s *messagingService) audit(ctx context.Context, actor *domain.Actor, conversationID *uuid.UUID, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	entry := &domain.AuditLog{
		EventTime:      time.Now(),
		ActorID:        &actor.ID,
		ActorRole:      string(actor.Role),
		ConversationID: conversationID,
		EventType:      eventType,
		Payload:        payload,
	}
	if err := s.auditRepo.CreateLog(ctx, entry); err != nil {
		s.log.Warn("Failed to write audit log", "error", err, "event_type", eventType)
	}
}

func (s *messagingService) auditDenied(ctx context.Context, actor *domain.Actor, conversationID *uuid.UUID, decision access.Decision) {
	s.audit(ctx, actor, conversationID, domain.EventTypeAccessDenied, map[string]interface{}{
		"reason":                decision.Reason,
		"requires_subscription": decision.RequiresSubscription,
	})
}
