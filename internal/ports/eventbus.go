// Package ports define the EventBus interface for event-driven communication.
// The bus carries catalog and playback events from the services to every host
// (desktop window, HTTP/SSE API, metrics observer).
package ports

import (
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// Thread-safety: implementations must be safe for concurrent use. The player
// session publishes from its own goroutine and duration probes publish from
// theirs.
//
// Handlers run on the publisher's goroutine. A handler must not call back into
// a PlayerSession method that waits for a reply; hosts that need to react with
// a command dispatch it from their own goroutine.
//
// Example usage:
//
//	subID := bus.Subscribe(domain.EventTrackStarted, func(event domain.Event) {
//	    e := event.(domain.TrackStartedEvent)
//	    view.SetNowPlaying(e.Track.Title)
//	})
//	defer bus.Unsubscribe(subID)
type EventBus interface {
	// Publish delivers an event to all subscribers of its type, then to the
	// wildcard subscribers.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// Returns a SubscriptionID that can be used to unsubscribe later.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// SubscribeTypes registers one handler for several event types under a
	// single SubscriptionID.
	SubscribeTypes(eventTypes []domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// SubscribeAll registers a handler that receives all events regardless of type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered handler.
	// Unknown or already removed IDs are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// HasSubscribers reports whether anyone listens to the given event type.
	HasSubscribers(eventType domain.EventType) bool

	// Close drops all subscriptions. Publishing afterwards is a no-op.
	Close() error
}
