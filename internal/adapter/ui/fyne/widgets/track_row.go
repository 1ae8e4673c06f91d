// Package widgets provides custom Fyne widgets for the archive player window.
package widgets

import (
	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Ensure TrackRow reacts to taps
var (
	_ fyneapp.Tappable       = (*TrackRow)(nil)
	_ fyneapp.DoubleTappable = (*TrackRow)(nil)
)

// TrackRow is one tracklist line: either a disk header or a playable track
// with its number, title and duration. Tapping a track row activates it.
type TrackRow struct {
	widget.BaseWidget

	number   *widget.Label
	title    *widget.Label
	duration *widget.Label

	header    bool
	index     int
	activated func(index int)
}

// NewTrackRow creates an empty row that calls activated with its track index.
func NewTrackRow(activated func(index int)) *TrackRow {
	r := &TrackRow{
		number:    widget.NewLabel(""),
		title:     widget.NewLabel(""),
		duration:  widget.NewLabel(""),
		index:     -1,
		activated: activated,
	}
	r.title.Truncation = fyneapp.TextTruncateEllipsis
	r.ExtendBaseWidget(r)
	return r
}

// CreateRenderer implements fyne.Widget.
func (r *TrackRow) CreateRenderer() fyneapp.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewBorder(nil, nil, r.number, r.duration, r.title))
}

// SetHeader turns the row into a non-playable disk heading.
func (r *TrackRow) SetHeader(text string) {
	r.header = true
	r.index = -1
	r.number.SetText("")
	r.duration.SetText("")
	r.title.TextStyle = fyneapp.TextStyle{Bold: true}
	r.title.SetText(text)
}

// SetTrack fills the row for the track at a global index.
func (r *TrackRow) SetTrack(index int, number, title, duration string, current bool) {
	r.header = false
	r.index = index
	r.number.SetText(number)
	r.duration.SetText(duration)
	r.title.TextStyle = fyneapp.TextStyle{Italic: current}
	r.title.SetText(title)
}

// Tapped implements fyne.Tappable.
func (r *TrackRow) Tapped(*fyneapp.PointEvent) {
	r.activate()
}

// DoubleTapped implements fyne.DoubleTappable so a double click plays once.
func (r *TrackRow) DoubleTapped(*fyneapp.PointEvent) {}

func (r *TrackRow) activate() {
	if r.header || r.index < 0 || r.activated == nil {
		return
	}
	r.activated(r.index)
}
