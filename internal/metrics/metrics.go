// Package metrics exposes Prometheus collectors for the player and its HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiveplayer_http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archiveplayer_http_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archiveplayer_http_requests_in_flight",
			Help: "Number of HTTP API requests currently being processed",
		},
	)

	EventStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archiveplayer_event_stream_clients",
			Help: "Number of connected server-sent event clients",
		},
	)
)

// Catalog metrics
var (
	CatalogLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiveplayer_catalog_loads_total",
			Help: "Total number of manifest loads by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	CatalogTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "archiveplayer_catalog_tracks",
			Help: "Number of tracks in the loaded catalog",
		},
	)

	DurationsResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archiveplayer_durations_resolved_total",
			Help: "Total number of last-track durations learned from disk audio",
		},
	)
)

// Playback metrics
var (
	TracksStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archiveplayer_tracks_started_total",
			Help: "Total number of track plays that became audible",
		},
	)

	TracksCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archiveplayer_tracks_completed_total",
			Help: "Total number of tracks that played to their end",
		},
	)

	PlaybackErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "archiveplayer_playback_errors_total",
			Help: "Total number of load or playback failures",
		},
	)

	PlayerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "archiveplayer_player_state",
			Help: "1 for the current player state, 0 for the others",
		},
		[]string{"state"},
	)
)

// Application info
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "archiveplayer_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
