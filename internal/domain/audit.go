package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID             int64                  `json:"id"`
	EventTime      time.Time              `json:"event_time"`
	ActorID        *uuid.UUID             `json:"actor_id,omitempty"`
	ActorRole      string                 `json:"actor_role"`
	ConversationID *uuid.UUID             `json:"conversation_id,omitempty"`
	EventType      string                 `json:"event_type"`
	Payload        map[string]interface{} `json:"payload"`
}

const (
	EventTypeContactInitiated   = "CONTACT_INITIATED"
	EventTypeMessageSent        = "MESSAGE_SENT"
	EventTypeAccessDenied       = "ACCESS_DENIED"
	EventTypeSubscriptionChange = "SUBSCRIPTION_CHANGED"
)
