package metrics

import (
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
)

var allStates = []domain.PlayerState{
	domain.StateIdle,
	domain.StateLoading,
	domain.StatePlaying,
	domain.StatePaused,
	domain.StateStopped,
}

// EventObserver turns domain events into metric updates.
type EventObserver struct {
	bus ports.EventBus
	sub domain.SubscriptionID
}

// NewEventObserver subscribes to bus. Close unsubscribes.
func NewEventObserver(bus ports.EventBus) *EventObserver {
	o := &EventObserver{bus: bus}
	setState(domain.StateIdle)
	o.sub = bus.SubscribeTypes([]domain.EventType{
		domain.EventCatalogLoaded,
		domain.EventCatalogFailed,
		domain.EventTrackDurationResolved,
		domain.EventTrackStarted,
		domain.EventTrackCompleted,
		domain.EventTrackError,
		domain.EventStateChanged,
	}, o.observe)
	return o
}

// Close stops observing.
func (o *EventObserver) Close() {
	if o.sub != "" {
		o.bus.Unsubscribe(o.sub)
		o.sub = ""
	}
}

func (o *EventObserver) observe(event domain.Event) {
	switch e := event.(type) {
	case domain.CatalogLoadedEvent:
		CatalogLoadsTotal.WithLabelValues("success").Inc()
		CatalogTracks.Set(float64(e.Catalog.Len()))
	case domain.CatalogFailedEvent:
		CatalogLoadsTotal.WithLabelValues("failure").Inc()
	case domain.TrackDurationResolvedEvent:
		DurationsResolvedTotal.Inc()
	case domain.TrackStartedEvent:
		TracksStartedTotal.Inc()
	case domain.TrackCompletedEvent:
		TracksCompletedTotal.Inc()
	case domain.TrackErrorEvent:
		PlaybackErrorsTotal.Inc()
	case domain.StateChangedEvent:
		setState(e.To)
	}
}

func setState(current domain.PlayerState) {
	for _, s := range allStates {
		v := 0.0
		if s == current {
			v = 1
		}
		PlayerState.WithLabelValues(s.String()).Set(v)
	}
}
