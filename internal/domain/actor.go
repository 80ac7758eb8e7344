package domain

import (
	"time"

	"github.com/google/uuid"
)

type Actor struct {
	ID                 uuid.UUID          `json:"id"`
	Email              string             `json:"email"`
	PasswordHash       string             `json:"-"`
	DisplayName        string             `json:"display_name"`
	Role               Role               `json:"role"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status,omitempty"`
	IsActive           bool               `json:"is_active"`
	LastLoginAt        *time.Time         `json:"last_login_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type Role string

const (
	RoleTalent       Role = "talent"
	RoleProfessional Role = "professional"
	RoleCompany      Role = "company"
	RoleAdmin        Role = "admin"
)

// IsValid reports whether the role is one of the known marketplace roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleTalent, RoleProfessional, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// Subscribable reports whether the role carries a subscription at all.
// Talents and admins never have one.
func (r Role) Subscribable() bool {
	return r == RoleProfessional || r == RoleCompany
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionNone      SubscriptionStatus = "none"
)

// IsValid reports whether the status is a known billing state.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrial, SubscriptionPastDue,
		SubscriptionCancelled, SubscriptionExpired, SubscriptionNone:
		return true
	}
	return false
}

// Entitled reports whether the billing state still grants messaging.
// PAST_DUE keeps access: failed payments get a grace period before the
// gate closes, matching marketplace billing policy.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionActive || s == SubscriptionTrial || s == SubscriptionPastDue
}

type UserSession struct {
	ID               uuid.UUID  `json:"id"`
	ActorID          uuid.UUID  `json:"actor_id"`
	RefreshTokenHash string     `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedReason    *string    `json:"revoked_reason,omitempty"`
}
