package widgets

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// TappableStack wraps content and reports primary taps. The player uses it to
// open the liner notes from the cover art.
type TappableStack struct {
	widget.BaseWidget

	content fyne.CanvasObject
	onTap   func()
}

// NewTappableStack creates a new tappable stack with the given content.
func NewTappableStack(content fyne.CanvasObject, onTap func()) *TappableStack {
	t := &TappableStack{
		content: content,
		onTap:   onTap,
	}
	t.ExtendBaseWidget(t)
	return t
}

// CreateRenderer implements fyne.Widget.
func (t *TappableStack) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(t.content)
}

// Tapped implements fyne.Tappable.
func (t *TappableStack) Tapped(*fyne.PointEvent) {
	if t.onTap != nil {
		t.onTap()
	}
}

// SetOnTapped replaces the tap handler; nil disables it.
func (t *TappableStack) SetOnTapped(onTap func()) {
	t.onTap = onTap
}

// Cursor implements desktop.Cursorable.
func (t *TappableStack) Cursor() desktop.Cursor {
	if t.onTap != nil {
		return desktop.PointerCursor
	}
	return desktop.DefaultCursor
}
