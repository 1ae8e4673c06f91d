// Package domain defines events for the event-driven architecture.
// Events decouple the metadata and playback services from the hosts that present them.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Catalog events
	EventCatalogLoaded         EventType = "catalog.loaded"
	EventCatalogFailed         EventType = "catalog.failed"
	EventTrackDurationResolved EventType = "track.duration_resolved"

	// Playback events
	EventTrackLoading   EventType = "track.loading"
	EventTrackStarted   EventType = "track.started"
	EventTrackPaused    EventType = "track.paused"
	EventTrackStopped   EventType = "track.stopped"
	EventTrackCompleted EventType = "track.completed"
	EventTrackProgress  EventType = "track.progress"
	EventTrackError     EventType = "track.error"
	EventStateChanged   EventType = "player.state_changed"

	// Volume events
	EventVolumeChanged EventType = "volume.changed"

	// Playlist events
	EventPlaylistUpdated  EventType = "playlist.updated"
	EventPlaylistFinished EventType = "playlist.finished"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// CatalogLoadedEvent is published when an item's manifest has been resolved.
type CatalogLoadedEvent struct {
	baseEvent
	Catalog *Catalog
}

// Type returns the event type.
func (e CatalogLoadedEvent) Type() EventType {
	return EventCatalogLoaded
}

// NewCatalogLoadedEvent creates a new CatalogLoadedEvent.
func NewCatalogLoadedEvent(catalog *Catalog) CatalogLoadedEvent {
	return CatalogLoadedEvent{
		baseEvent: newBaseEvent(),
		Catalog:   catalog,
	}
}

// CatalogFailedEvent is published when the manifest cannot be fetched or parsed.
// Hosts respond by showing the access notice.
type CatalogFailedEvent struct {
	baseEvent
	ItemID string
	Error  error
}

// Type returns the event type.
func (e CatalogFailedEvent) Type() EventType {
	return EventCatalogFailed
}

// NewCatalogFailedEvent creates a new CatalogFailedEvent.
func NewCatalogFailedEvent(itemID string, err error) CatalogFailedEvent {
	return CatalogFailedEvent{
		baseEvent: newBaseEvent(),
		ItemID:    itemID,
		Error:     err,
	}
}

// TrackDurationResolvedEvent is published when a disk's last track learns its duration.
type TrackDurationResolvedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackDurationResolvedEvent) Type() EventType {
	return EventTrackDurationResolved
}

// NewTrackDurationResolvedEvent creates a new TrackDurationResolvedEvent.
func NewTrackDurationResolvedEvent(track Track) TrackDurationResolvedEvent {
	return TrackDurationResolvedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackLoadingEvent is published when a disk's audio starts loading for a track.
type TrackLoadingEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackLoadingEvent) Type() EventType {
	return EventTrackLoading
}

// NewTrackLoadingEvent creates a new TrackLoadingEvent.
func NewTrackLoadingEvent(track Track) TrackLoadingEvent {
	return TrackLoadingEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackStartedEvent is published when playback starts or resumes.
type TrackStartedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackStartedEvent) Type() EventType {
	return EventTrackStarted
}

// NewTrackStartedEvent creates a new TrackStartedEvent.
func NewTrackStartedEvent(track Track) TrackStartedEvent {
	return TrackStartedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackPausedEvent is published when playback is paused.
type TrackPausedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e TrackPausedEvent) Type() EventType {
	return EventTrackPaused
}

// NewTrackPausedEvent creates a new TrackPausedEvent.
func NewTrackPausedEvent(track Track, position time.Duration) TrackPausedEvent {
	return TrackPausedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Position:  position,
	}
}

// TrackStoppedEvent is published when the active sound is torn down.
type TrackStoppedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackStoppedEvent) Type() EventType {
	return EventTrackStopped
}

// NewTrackStoppedEvent creates a new TrackStoppedEvent.
func NewTrackStoppedEvent(track Track) TrackStoppedEvent {
	return TrackStoppedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackCompletedEvent is published when a track's sprite finishes playing naturally.
type TrackCompletedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e TrackCompletedEvent) Type() EventType {
	return EventTrackCompleted
}

// NewTrackCompletedEvent creates a new TrackCompletedEvent.
func NewTrackCompletedEvent(track Track) TrackCompletedEvent {
	return TrackCompletedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// TrackProgressEvent is published periodically during playback and after a seek.
type TrackProgressEvent struct {
	baseEvent
	Index    int
	Progress Progress
}

// Type returns the event type.
func (e TrackProgressEvent) Type() EventType {
	return EventTrackProgress
}

// NewTrackProgressEvent creates a new TrackProgressEvent.
func NewTrackProgressEvent(index int, progress Progress) TrackProgressEvent {
	return TrackProgressEvent{
		baseEvent: newBaseEvent(),
		Index:     index,
		Progress:  progress,
	}
}

// TrackErrorEvent is published when a disk's audio fails to load or play.
type TrackErrorEvent struct {
	baseEvent
	Track Track
	Error error
}

// Type returns the event type.
func (e TrackErrorEvent) Type() EventType {
	return EventTrackError
}

// NewTrackErrorEvent creates a new TrackErrorEvent.
func NewTrackErrorEvent(track Track, err error) TrackErrorEvent {
	return TrackErrorEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
		Error:     err,
	}
}

// StateChangedEvent is published on every player state transition.
type StateChangedEvent struct {
	baseEvent
	From  PlayerState
	To    PlayerState
	Index int
}

// Type returns the event type.
func (e StateChangedEvent) Type() EventType {
	return EventStateChanged
}

// NewStateChangedEvent creates a new StateChangedEvent.
func NewStateChangedEvent(from, to PlayerState, index int) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(),
		From:      from,
		To:        to,
		Index:     index,
	}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64 // 0.0 to 1.0
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{
		baseEvent: newBaseEvent(),
		Volume:    volume,
	}
}

// PlaylistUpdatedEvent is published when a session receives a new catalog.
type PlaylistUpdatedEvent struct {
	baseEvent
	Tracks       []Track
	CurrentIndex int
}

// Type returns the event type.
func (e PlaylistUpdatedEvent) Type() EventType {
	return EventPlaylistUpdated
}

// NewPlaylistUpdatedEvent creates a new PlaylistUpdatedEvent.
func NewPlaylistUpdatedEvent(tracks []Track, currentIndex int) PlaylistUpdatedEvent {
	return PlaylistUpdatedEvent{
		baseEvent:    newBaseEvent(),
		Tracks:       tracks,
		CurrentIndex: currentIndex,
	}
}

// PlaylistFinishedEvent is published when the last track of the playlist ends.
type PlaylistFinishedEvent struct {
	baseEvent
	LastTrack Track
}

// Type returns the event type.
func (e PlaylistFinishedEvent) Type() EventType {
	return EventPlaylistFinished
}

// NewPlaylistFinishedEvent creates a new PlaylistFinishedEvent.
func NewPlaylistFinishedEvent(last Track) PlaylistFinishedEvent {
	return PlaylistFinishedEvent{
		baseEvent: newBaseEvent(),
		LastTrack: last,
	}
}
