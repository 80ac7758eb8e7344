package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nawsaafa/talents-acting-sub003/internal/domain"
)

// ConversationHub fans new messages out to live subscribers of a
// conversation. Delivery is best effort: a subscriber with a full buffer is
// skipped, the message is still in the store and fetched on the next read.
type ConversationHub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]map[chan *domain.Message]struct{}
}

func NewConversationHub() *ConversationHub {
	return &ConversationHub{
		subs: make(map[uuid.UUID]map[chan *domain.Message]struct{}),
	}
}

func (h *ConversationHub) Subscribe(conversationID uuid.UUID) chan *domain.Message {
	ch := make(chan *domain.Message, 16)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[conversationID] == nil {
		h.subs[conversationID] = make(map[chan *domain.Message]struct{})
	}
	h.subs[conversationID][ch] = struct{}{}

	return ch
}

func (h *ConversationHub) Unsubscribe(conversationID uuid.UUID, ch chan *domain.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[conversationID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(h.subs, conversationID)
		}
	}
	close(ch)
}

func (h *ConversationHub) Publish(conversationID uuid.UUID, msg *domain.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[conversationID] {
		select {
		case ch <- msg:
		default:
		}
	}
}
