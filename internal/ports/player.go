package ports

import (
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

// Player is the command surface of a playback session that hosts drive.
//
// Methods block until the session has applied the command. They must not be
// called from an event handler running on the session goroutine.
type Player interface {
	PlayTrack(index int) error
	TogglePlay() error
	PlayNext() error
	PlayPrevious() error
	Seek(fraction float64) error
	SetVolume(volume float64) error

	// Dispose stops and releases the active sound. It never fails.
	Dispose() error

	// Snapshot returns the latest published session state without blocking.
	Snapshot() domain.SessionSnapshot
}

// CatalogSource returns the loaded catalog, or the error that prevented
// loading it.
type CatalogSource interface {
	Catalog() (*domain.Catalog, error)
}
