// Package ports define the view interface for presenter/view separation.
// The presenter updates the view without depending on Fyne directly.
package ports

import (
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

// PlayerView is the desktop player window as seen by its presenter.
//
// Thread-safety: the presenter calls these methods from event handlers, which
// run on the publishing goroutine. Implementations marshal onto their UI thread.
type PlayerView interface {
	// ShowCatalog replaces the window content with the player for a catalog.
	ShowCatalog(catalog *domain.Catalog)

	// ShowAccessNotice replaces the window content with the visit-in-person notice.
	ShowAccessNotice(notice domain.AccessNotice)

	// SetPlayState switches the play button between play and pause.
	SetPlayState(playing bool)

	// SetNowPlaying shows the now-playing line; an empty title hides it.
	SetNowPlaying(title string)

	// HighlightTrack marks the current track in the tracklist.
	HighlightTrack(index int)

	// SetTrackDuration updates one tracklist row's duration text.
	SetTrackDuration(index int, text string)

	// SetProgress moves the progress slider (fraction 0.0 to 1.0) and time text.
	SetProgress(fraction float64, text string)

	// SetVolume moves the volume slider (0.0 to 1.0).
	SetVolume(volume float64)

	// ShowError reports a failure to the user without blocking playback controls.
	ShowError(title string, err error)
}
