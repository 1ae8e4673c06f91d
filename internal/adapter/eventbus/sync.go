// Package eventbus provides the synchronous EventBus used by the player.
package eventbus

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
)

// ErrClosed is returned by Close on a bus that is already closed.
var ErrClosed = errors.New("event bus already closed")

// SyncEventBus delivers events synchronously on the publisher's goroutine,
// type-specific subscribers first, then wildcard subscribers, each group in
// subscription order.
//
// Subscribers are snapshotted before delivery, so handlers may subscribe or
// unsubscribe while an event is being delivered.
type SyncEventBus struct {
	logger *slog.Logger

	mu             sync.RWMutex
	subscribers    map[domain.EventType][]subscription
	allSubscribers []subscription
	closed         bool
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus() *SyncEventBus {
	return &SyncEventBus{
		subscribers: make(map[domain.EventType][]subscription),
	}
}

// SetLogger sets the logger for this event bus.
func (bus *SyncEventBus) SetLogger(logger *slog.Logger) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.logger = logger
}

// Publish delivers an event to its subscribers.
// Handler panics are recovered and logged; the remaining handlers still run.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := make([]subscription, 0, len(bus.subscribers[event.Type()])+len(bus.allSubscribers))
	targets = append(targets, bus.subscribers[event.Type()]...)
	targets = append(targets, bus.allSubscribers...)
	logger := bus.logger
	bus.mu.RUnlock()

	if logger != nil {
		logger.Debug("event published",
			slog.String("event_type", string(event.Type())),
			slog.Int("subscribers", len(targets)))
	}

	for _, sub := range targets {
		bus.deliver(logger, sub, event)
	}
}

func (bus *SyncEventBus) deliver(logger *slog.Logger, sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()
	sub.handler(event)
}

// Subscribe registers a handler for events of the specified type.
// Subscribing to a closed bus returns an empty ID and registers nothing.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.SubscribeTypes([]domain.EventType{eventType}, handler)
}

// SubscribeTypes registers one handler for several event types under one ID.
func (bus *SyncEventBus) SubscribeTypes(eventTypes []domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ""
	}

	sub := subscription{id: newSubscriptionID("sub"), handler: handler}
	for _, eventType := range slices.Compact(slices.Sorted(slices.Values(eventTypes))) {
		bus.subscribers[eventType] = append(bus.subscribers[eventType], sub)
	}
	return sub.id
}

// SubscribeAll registers a handler that receives all events regardless of type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ""
	}

	sub := subscription{id: newSubscriptionID("sub-all"), handler: handler}
	bus.allSubscribers = append(bus.allSubscribers, sub)
	return sub.id
}

// Unsubscribe removes every registration made under the given ID.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	if id == "" {
		return
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	match := func(s subscription) bool { return s.id == id }
	for eventType, subs := range bus.subscribers {
		subs = slices.DeleteFunc(subs, match)
		if len(subs) == 0 {
			delete(bus.subscribers, eventType)
			continue
		}
		bus.subscribers[eventType] = subs
	}
	bus.allSubscribers = slices.DeleteFunc(bus.allSubscribers, match)
}

// HasSubscribers reports whether any subscription would receive the event type.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subscribers[eventType]) > 0 || len(bus.allSubscribers) > 0
}

// Close drops all subscriptions. Returns ErrClosed when called twice.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}
	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = nil
	return nil
}

// SubscriberCount returns the number of distinct active subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	seen := make(map[domain.SubscriptionID]struct{})
	for _, subs := range bus.subscribers {
		for _, s := range subs {
			seen[s.id] = struct{}{}
		}
	}
	return len(seen) + len(bus.allSubscribers)
}

func newSubscriptionID(prefix string) domain.SubscriptionID {
	return domain.SubscriptionID(prefix + "-" + uuid.NewString())
}

var _ ports.EventBus = (*SyncEventBus)(nil)
