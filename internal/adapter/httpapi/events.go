package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/metrics"
)

// clientBuffer is how many events a slow client may lag before events are dropped.
const clientBuffer = 64

// handleEvents streams domain events as server-sent events until the client
// goes away. Bus handlers run on the publisher's goroutine, so delivery to a
// full client buffer drops the event instead of blocking the session.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		s.logger.Error("failed to flush headers", slog.Any("error", err))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	clientID := uuid.NewString()
	log := s.logger.With(slog.String("client_id", clientID))

	events := make(chan domain.Event, clientBuffer)
	sub := s.bus.SubscribeAll(func(e domain.Event) {
		select {
		case events <- e:
		default:
			log.Warn("event stream client lagging, event dropped", slog.String("type", string(e.Type())))
		}
	})
	if sub == "" {
		return
	}
	defer s.bus.Unsubscribe(sub)

	metrics.EventStreamClients.Inc()
	defer metrics.EventStreamClients.Dec()

	if err := sendEvent(rc, w, "connected", map[string]any{
		"client_id": clientID,
		"session":   newSessionDTO(s.player.Snapshot()),
	}); err != nil {
		return
	}
	log.Debug("event stream connected")

	heartbeat := time.NewTicker(s.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case e := <-events:
			dto := newEventDTO(e)
			if err := sendEvent(rc, w, dto.Type, dto); err != nil {
				log.Debug("event stream client gone during send")
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-r.Context().Done():
			log.Debug("event stream disconnected")
			return
		}
	}
}

func sendEvent(rc *http.ResponseController, w http.ResponseWriter, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	return rc.Flush()
}
