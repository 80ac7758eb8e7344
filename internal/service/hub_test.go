package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewConversationHub()
	convID := uuid.New()

	first := hub.Subscribe(convID)
	second := hub.Subscribe(convID)
	other := hub.Subscribe(uuid.New())

	msg := &domain.Message{ID: uuid.New(), ConversationID: convID, Content: "hi"}
	hub.Publish(convID, msg)

	for _, ch := range []chan *domain.Message{first, second} {
		select {
		case got := <-ch:
			if got.ID != msg.ID {
				t.Errorf("got message %s, want %s", got.ID, msg.ID)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the message")
		}
	}

	select {
	case got := <-other:
		t.Errorf("unrelated conversation received %v", got)
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewConversationHub()
	convID := uuid.New()

	ch := hub.Subscribe(convID)
	hub.Unsubscribe(convID, ch)

	if _, open := <-ch; open {
		t.Error("unsubscribed channel must be closed")
	}

	// Publishing after the last unsubscribe must not panic.
	hub.Publish(convID, &domain.Message{ID: uuid.New(), ConversationID: convID})
}

func TestHubSlowSubscriberIsSkipped(t *testing.T) {
	hub := NewConversationHub()
	convID := uuid.New()

	ch := hub.Subscribe(convID)
	for i := 0; i < 20; i++ {
		hub.Publish(convID, &domain.Message{ID: uuid.New(), ConversationID: convID})
	}

	// The buffer caps what a stalled reader holds; the overflow is dropped,
	// not blocked on.
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want full buffer of %d", len(ch), cap(ch))
	}
}
