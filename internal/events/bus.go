package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const (
	LanguageChanged = "language.changed"
	GamesRecorded   = "games.recorded"
)

type Event struct {
	Name    string
	Payload any
}

// LanguagePayload is carried by LanguageChanged. Audience is the user whose
// views should switch language.
type LanguagePayload struct {
	Audience uuid.UUID `json:"audience"`
	Lang     string    `json:"lang"`
}

// GamesPayload is carried by GamesRecorded, once per stored game.
type GamesPayload struct {
	GameID  uuid.UUID   `json:"gameId"`
	Players []uuid.UUID `json:"players"`
}

type Handler func(context.Context, Event) error

type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

type Bus struct {
	mu       sync.RWMutex
	nextID   SubscriptionID
	handlers map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]subscription{}}
}

func (b *Bus) Subscribe(name string, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[name] = append(b.handlers[name], subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// Unsubscribe removes a handler. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, subs := range b.handlers {
		for i, s := range subs {
			if s.id != id {
				continue
			}
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			rest = append(rest, subs[i+1:]...)
			if len(rest) == 0 {
				delete(b.handlers, name)
			} else {
				b.handlers[name] = rest
			}
			return
		}
	}
}

// Count reports how many handlers are registered for name.
func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[e.Name]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
