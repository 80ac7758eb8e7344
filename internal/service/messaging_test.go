package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
	apperrors "github.com/nawsaafa/talents-acting-sub003/pkg/errors"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

// fakeConversationRepo mirrors the store semantics the real repository gets
// from postgres: a uniqueness constraint on the normalized pair and an atomic
// conversation-plus-first-message write.
type fakeConversationRepo struct {
	mu            sync.Mutex
	byPair        map[string]*domain.Conversation
	byID          map[uuid.UUID]*domain.Conversation
	messages      map[uuid.UUID][]*domain.Message
	failWith      error
	markReadCalls int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byPair:   make(map[string]*domain.Conversation),
		byID:     make(map[uuid.UUID]*domain.Conversation),
		messages: make(map[uuid.UUID][]*domain.Message),
	}
}

func pairKey(x, y uuid.UUID) string {
	a, b := domain.NormalizePair(x, y)
	return a.String() + "/" + b.String()
}

func (f *fakeConversationRepo) CreateWithFirstMessage(ctx context.Context, initiatorID, targetID uuid.UUID, content string) (*domain.Conversation, *domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return nil, nil, f.failWith
	}

	key := pairKey(initiatorID, targetID)
	conv, ok := f.byPair[key]
	if !ok {
		a, b := domain.NormalizePair(initiatorID, targetID)
		conv = &domain.Conversation{
			ID:           uuid.New(),
			ParticipantA: a,
			ParticipantB: b,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		f.byPair[key] = conv
		f.byID[conv.ID] = conv
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       initiatorID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	f.messages[conv.ID] = append(f.messages[conv.ID], msg)
	conv.UpdatedAt = msg.CreatedAt

	return conv, msg, nil
}

func (f *fakeConversationRepo) AddMessage(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.byID[conversationID]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	f.messages[conversationID] = append(f.messages[conversationID], msg)
	conv.UpdatedAt = msg.CreatedAt

	return msg, nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	return conv, nil
}

func (f *fakeConversationRepo) FindByParticipants(ctx context.Context, a, b uuid.UUID) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.byPair[pairKey(a, b)]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	return conv, nil
}

func (f *fakeConversationRepo) ListForActor(ctx context.Context, actorID uuid.UUID) ([]*domain.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.ConversationSummary
	for _, conv := range f.byID {
		if !conv.HasParticipant(actorID) {
			continue
		}
		s := &domain.ConversationSummary{Conversation: *conv}
		msgs := f.messages[conv.ID]
		if len(msgs) > 0 {
			s.LastMessage = msgs[len(msgs)-1]
		}
		for _, m := range msgs {
			if m.SenderID != actorID && m.ReadAt == nil {
				s.UnreadCount++
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeConversationRepo) GetMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := f.messages[conversationID]
	if offset >= len(msgs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[offset:end], nil
}

func (f *fakeConversationRepo) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.markReadCalls++
	now := time.Now()
	for _, m := range f.messages[conversationID] {
		if m.SenderID != readerID && m.ReadAt == nil {
			m.ReadAt = &now
		}
	}
	return nil
}

func (f *fakeConversationRepo) IsParticipant(ctx context.Context, conversationID, actorID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.byID[conversationID]
	if !ok {
		return false, nil
	}
	return conv.HasParticipant(actorID), nil
}

func (f *fakeConversationRepo) ParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([2]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.byID[conversationID]
	if !ok {
		return [2]uuid.UUID{}, apperrors.ErrConversationNotFound
	}
	return [2]uuid.UUID{conv.ParticipantA, conv.ParticipantB}, nil
}

type fakeActorRepo struct {
	mu     sync.Mutex
	actors map[uuid.UUID]*domain.Actor
}

func newFakeActorRepo(actors ...*domain.Actor) *fakeActorRepo {
	f := &fakeActorRepo{actors: make(map[uuid.UUID]*domain.Actor)}
	for _, a := range actors {
		f.actors[a.ID] = a
	}
	return f
}

func (f *fakeActorRepo) Create(ctx context.Context, actor *domain.Actor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actors[actor.ID] = actor
	return nil
}

func (f *fakeActorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor, ok := f.actors[id]
	if !ok {
		return nil, apperrors.ErrActorNotFound
	}
	return actor, nil
}

func (f *fakeActorRepo) GetByEmail(ctx context.Context, email string) (*domain.Actor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actors {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, apperrors.ErrActorNotFound
}

func (f *fakeActorRepo) Update(ctx context.Context, actor *domain.Actor) error { return nil }

func (f *fakeActorRepo) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	actor, ok := f.actors[id]
	if !ok {
		return apperrors.ErrActorNotFound
	}
	actor.SubscriptionStatus = status
	return nil
}

func (f *fakeActorRepo) CreateSession(ctx context.Context, session *domain.UserSession) error {
	return nil
}

func (f *fakeActorRepo) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.UserSession, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeActorRepo) RevokeSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	return nil
}

// stubSubscription returns a canned status per actor, standing in for the
// cache-aside service.
type stubSubscription struct {
	statuses map[uuid.UUID]domain.SubscriptionStatus
	err      error
}

func (s *stubSubscription) CurrentStatus(ctx context.Context, actorID uuid.UUID, role domain.Role) (domain.SubscriptionStatus, error) {
	if s.err != nil {
		return "", s.err
	}
	if !role.Subscribable() {
		return domain.SubscriptionNone, nil
	}
	if status, ok := s.statuses[actorID]; ok {
		return status, nil
	}
	return domain.SubscriptionNone, nil
}

func (s *stubSubscription) UpdateStatus(ctx context.Context, actorID uuid.UUID, status domain.SubscriptionStatus) error {
	s.statuses[actorID] = status
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (f *fakeAuditRepo) CreateLog(ctx context.Context, entry *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, e := range f.entries {
		types = append(types, e.EventType)
	}
	return types
}

type messagingFixture struct {
	svc      MessagingService
	convRepo *fakeConversationRepo
	audit    *fakeAuditRepo

	talent       *domain.Actor
	professional *domain.Actor
	admin        *domain.Actor
}

func newMessagingFixture(profStatus domain.SubscriptionStatus) *messagingFixture {
	talent := &domain.Actor{ID: uuid.New(), Role: domain.RoleTalent, IsActive: true}
	professional := &domain.Actor{ID: uuid.New(), Role: domain.RoleProfessional, SubscriptionStatus: profStatus, IsActive: true}
	admin := &domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin, IsActive: true}

	convRepo := newFakeConversationRepo()
	actorRepo := newFakeActorRepo(talent, professional, admin)
	audit := &fakeAuditRepo{}
	subs := &stubSubscription{statuses: map[uuid.UUID]domain.SubscriptionStatus{
		professional.ID: profStatus,
	}}

	svc := NewMessagingService(convRepo, actorRepo, subs, audit, NewConversationHub(), 50, logger.New("error"))

	return &messagingFixture{
		svc:          svc,
		convRepo:     convRepo,
		audit:        audit,
		talent:       talent,
		professional: professional,
		admin:        admin,
	}
}

func TestStartConversationActiveProfessional(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)

	conv, msg, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "Hi, I saw your profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !conv.HasParticipant(fx.professional.ID) || !conv.HasParticipant(fx.talent.ID) {
		t.Error("conversation must contain both actors")
	}
	if msg.SenderID != fx.professional.ID {
		t.Error("first message must come from the initiator")
	}

	types := fx.audit.eventTypes()
	if len(types) != 1 || types[0] != domain.EventTypeContactInitiated {
		t.Errorf("audit trail = %v, want one CONTACT_INITIATED", types)
	}
}

func TestStartConversationExpiredCompanyDenied(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionExpired)
	company := &domain.Actor{ID: fx.professional.ID, Role: domain.RoleCompany, SubscriptionStatus: domain.SubscriptionExpired, IsActive: true}

	_, _, err := fx.svc.StartConversation(context.Background(), company, fx.talent.ID, "hello")

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("got %v, want AccessDeniedError", err)
	}
	if !denied.Decision.RequiresSubscription {
		t.Error("denial must require a subscription")
	}
	if len(fx.convRepo.byID) != 0 {
		t.Error("no conversation may be created on denial")
	}

	types := fx.audit.eventTypes()
	if len(types) != 1 || types[0] != domain.EventTypeAccessDenied {
		t.Errorf("audit trail = %v, want one ACCESS_DENIED", types)
	}
}

func TestStartConversationTalentDenied(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)
	otherTalent := &domain.Actor{ID: uuid.New(), Role: domain.RoleTalent, IsActive: true}

	_, _, err := fx.svc.StartConversation(context.Background(), otherTalent, fx.talent.ID, "hey")

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("got %v, want AccessDeniedError", err)
	}
	if denied.Decision.Reason != "Talents cannot initiate contact" {
		t.Errorf("reason = %q", denied.Decision.Reason)
	}
	if denied.Decision.RequiresSubscription {
		t.Error("talent denial is role-based, not billing-based")
	}
}

func TestStartConversationTargetMustBeTalent(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)

	_, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.admin.ID, "hello")
	if !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("got %v, want bad request for non-talent target", err)
	}
}

func TestStartConversationWithSelf(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)

	_, _, err := fx.svc.StartConversation(context.Background(), fx.talent, fx.talent.ID, "hello me")
	if !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("got %v, want bad request", err)
	}
}

func TestStartConversationEmptyContent(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)

	_, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "   ")
	if !errors.Is(err, domain.ErrEmptyMessage) {
		t.Fatalf("got %v, want ErrEmptyMessage", err)
	}
	if len(fx.convRepo.byID) != 0 {
		t.Error("no conversation may be created for invalid content")
	}
}

func TestConcurrentFirstContactConverges(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "are you available?")
			if err != nil {
				t.Errorf("concurrent first contact failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(fx.convRepo.byID) != 1 {
		t.Fatalf("got %d conversations, want exactly 1", len(fx.convRepo.byID))
	}
	for id := range fx.convRepo.byID {
		if got := len(fx.convRepo.messages[id]); got != 2 {
			t.Errorf("got %d messages, want both sends in the single conversation", got)
		}
	}
}

func TestSendMessageNonParticipantDenied(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)
	conv, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "hi")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	// A fully subscribed outsider still may not inject into the thread.
	outsider := &domain.Actor{ID: uuid.New(), Role: domain.RoleProfessional, SubscriptionStatus: domain.SubscriptionActive, IsActive: true}
	_, err = fx.svc.SendMessage(context.Background(), outsider, conv.ID, "let me in")

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("got %v, want AccessDeniedError", err)
	}
	if denied.Decision.Reason != "You are not a participant in this conversation." {
		t.Errorf("reason = %q", denied.Decision.Reason)
	}
}

func TestTalentRepliesDespiteExpiredCounterpart(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)
	conv, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "hi")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	// The professional's subscription lapses after first contact.
	fx.professional.SubscriptionStatus = domain.SubscriptionExpired

	msg, err := fx.svc.SendMessage(context.Background(), fx.talent, conv.ID, "still interested!")
	if err != nil {
		t.Fatalf("talent reply must not depend on the counterpart's billing: %v", err)
	}
	if msg.SenderID != fx.talent.ID {
		t.Error("reply must be attributed to the talent")
	}
}

func TestLapsedProfessionalCannotReply(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)
	conv, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "hi")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	// Lapse the initiator, then have them try to keep messaging.
	fx.svc.(*messagingService).subscription.(*stubSubscription).statuses[fx.professional.ID] = domain.SubscriptionCancelled

	_, err = fx.svc.SendMessage(context.Background(), fx.professional, conv.ID, "one more thing")

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("got %v, want AccessDeniedError", err)
	}
	if !denied.Decision.RequiresSubscription {
		t.Error("lapsed professional denial must require a subscription")
	}
}

func TestGetMessagesViewIsolation(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)
	conv, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "hi")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	outsider := &domain.Actor{ID: uuid.New(), Role: domain.RoleCompany, SubscriptionStatus: domain.SubscriptionActive, IsActive: true}
	if _, err := fx.svc.GetMessages(context.Background(), outsider, conv.ID, 50, 0); !errors.Is(err, apperrors.ErrConversationNotFound) {
		t.Errorf("outsider read: got %v, want not-found (existence hidden)", err)
	}

	msgs, err := fx.svc.GetMessages(context.Background(), fx.talent, conv.ID, 50, 0)
	if err != nil {
		t.Fatalf("participant read failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("got %d messages, want 1", len(msgs))
	}

	if _, err := fx.svc.GetMessages(context.Background(), fx.admin, conv.ID, 50, 0); err != nil {
		t.Errorf("admin read failed: %v", err)
	}
}

func TestGetMessagesMarksCounterpartRead(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)
	conv, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "hi")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := fx.svc.GetMessages(context.Background(), fx.talent, conv.ID, 50, 0); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	for _, m := range fx.convRepo.messages[conv.ID] {
		if m.SenderID == fx.professional.ID && m.ReadAt == nil {
			t.Error("counterpart message must be marked read after the talent views it")
		}
	}

	// Admin reads are observational and leave read state untouched.
	before := fx.convRepo.markReadCalls
	if _, err := fx.svc.GetMessages(context.Background(), fx.admin, conv.ID, 50, 0); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
	if fx.convRepo.markReadCalls != before {
		t.Error("admin read must not mark messages")
	}
}

func TestContactDecisionPreview(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionNone)

	decision, err := fx.svc.ContactDecision(context.Background(), fx.professional, fx.talent.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.CanSend {
		t.Error("unsubscribed professional must not be contactable-capable")
	}
	if !decision.RequiresSubscription {
		t.Error("preview must point at the subscription gate")
	}
	if len(fx.convRepo.byID) != 0 {
		t.Error("preview must not create anything")
	}
}

func TestSubscriptionLookupFailureIsNotADenial(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)
	fx.svc.(*messagingService).subscription.(*stubSubscription).err = errors.New("redis down")

	_, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "hi")
	if err == nil {
		t.Fatal("store failure must surface as an error")
	}

	var denied *AccessDeniedError
	if errors.As(err, &denied) {
		t.Fatal("store failure must never be rendered as an access denial")
	}
}

func TestListConversationsUnreadCount(t *testing.T) {
	fx := newMessagingFixture(domain.SubscriptionActive)
	if _, _, err := fx.svc.StartConversation(context.Background(), fx.professional, fx.talent.ID, "first"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	summaries, err := fx.svc.ListConversations(context.Background(), fx.talent)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d conversations, want 1", len(summaries))
	}
	if summaries[0].UnreadCount != 1 {
		t.Errorf("unread = %d, want 1", summaries[0].UnreadCount)
	}
	if summaries[0].LastMessage == nil || summaries[0].LastMessage.Content != "first" {
		t.Error("last message must be surfaced in the summary")
	}
}
