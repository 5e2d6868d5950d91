// Package events carries membership lifecycle notifications between
// services without coupling them to each other.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
)

const (
	TopicMembershipActivated    = "membership.activated"
	TopicMembershipRenewed      = "membership.renewed"
	TopicMembershipCancelled    = "membership.cancelled"
	TopicMembershipExpired      = "membership.expired"
	TopicMembershipExpiringSoon = "membership.expiring_soon"
)

type MembershipEvent struct {
	Topic        string
	MembershipID int64
	CustomerID   int64
	LevelID      int64
	LevelName    string
	ExpiresAt    *time.Time
	OccurredAt   time.Time
}

type Handler func(ctx context.Context, event MembershipEvent)

// Bus is a synchronous in-process dispatcher. Handlers run inline on the
// publishing goroutine, so database transactions should commit before
// publishing.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(topic string, h Handler) {
	if topic == "" || h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *Bus) Publish(ctx context.Context, event MembershipEvent) {
	if b == nil || event.Topic == "" {
		return
	}
	b.mu.RLock()
	handlers := b.handlers[event.Topic]
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, event)
	}
}

var Module = fx.Module("events", fx.Provide(NewBus))
