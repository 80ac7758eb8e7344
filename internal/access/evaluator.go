// Package access holds the messaging authorization rules: who may start a
// conversation, who may reply, and who may read a thread. All functions are
// pure and total; they take plain facts and return decisions, never errors.
package access

import (
	"github.com/google/uuid"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
)

// Decision is the evaluator's output. Reason is user-facing and rendered
// verbatim on denial.
type Decision struct {
	CanSend              bool   `json:"can_send"`
	RequiresSubscription bool   `json:"requires_subscription"`
	Reason               string `json:"reason,omitempty"`
}

const (
	ReasonTalentCannotInitiate = "Talents cannot initiate contact"
	ReasonSubscriptionRequired = "An active subscription is required to contact talents."
	ReasonNotParticipant       = "You are not a participant in this conversation."
	ReasonUnknownRole          = "Messaging is not available for this account"
)

// gate is one policy cell: how a role's action is resolved.
type gate int

const (
	gateAllow gate = iota
	gateDeny
	gateSubscription
)

// The policy is a role x action table rather than scattered conditionals,
// so adding a role or changing a cell is a one-line change.
var initiatePolicy = map[domain.Role]gate{
	domain.RoleAdmin:        gateAllow,
	domain.RoleTalent:       gateDeny,
	domain.RoleProfessional: gateSubscription,
	domain.RoleCompany:      gateSubscription,
}

var replyPolicy = map[domain.Role]gate{
	domain.RoleAdmin:        gateAllow,
	domain.RoleTalent:       gateAllow,
	domain.RoleProfessional: gateSubscription,
	domain.RoleCompany:      gateSubscription,
}

func allow() Decision {
	return Decision{CanSend: true}
}

func deny(reason string) Decision {
	return Decision{CanSend: false, Reason: reason}
}

func denySubscription() Decision {
	return Decision{CanSend: false, RequiresSubscription: true, Reason: ReasonSubscriptionRequired}
}

func resolve(g gate, status domain.SubscriptionStatus, denyReason string) Decision {
	switch g {
	case gateAllow:
		return allow()
	case gateDeny:
		return deny(denyReason)
	case gateSubscription:
		if status.Entitled() {
			return allow()
		}
		return denySubscription()
	}
	return deny(ReasonUnknownRole)
}

// CanInitiateContact decides whether the actor may cold-start a conversation
// with a talent. Talents only ever reply; professionals and companies need an
// entitled subscription (ACTIVE, TRIAL, or grace-period PAST_DUE); admins are
// never gated.
func CanInitiateContact(role domain.Role, status domain.SubscriptionStatus) Decision {
	g, ok := initiatePolicy[role]
	if !ok {
		return deny(ReasonUnknownRole)
	}
	return resolve(g, status, ReasonTalentCannotInitiate)
}

// CanReplyToConversation decides whether the actor may send into an existing
// conversation. The participant check comes first and is unconditional: a
// non-participant is never permitted, whatever the role or subscription.
// A participant talent always may respond, regardless of the other side's
// billing state; only initiating is subscription-gated for them.
func CanReplyToConversation(role domain.Role, status domain.SubscriptionStatus, isParticipant bool) Decision {
	if !isParticipant {
		return deny(ReasonNotParticipant)
	}
	g, ok := replyPolicy[role]
	if !ok {
		return deny(ReasonUnknownRole)
	}
	return resolve(g, status, ReasonNotParticipant)
}

// CanViewConversation reports whether the actor may read the thread at all.
// Visibility is participant-or-admin, full history or nothing. Subscription
// state never affects reading: it gates acting, not seeing.
func CanViewConversation(actorID uuid.UUID, participantIDs [2]uuid.UUID, role domain.Role) bool {
	if role == domain.RoleAdmin {
		return true
	}
	return actorID == participantIDs[0] || actorID == participantIDs[1]
}
