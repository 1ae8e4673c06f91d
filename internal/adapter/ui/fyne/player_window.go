package fyne

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // cover art formats
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
)

const (
	// WIDTH and HEIGHT are the initial window size
	WIDTH  = 720
	HEIGHT = 560

	maxCoverBytes = 16 << 20
)

// WindowConfig configures the player window.
type WindowConfig struct {
	AppName string
	Version string

	// ItemID is shown prefilled in the "Open Item" dialog
	ItemID string

	// Client fetches cover art; nil uses http.DefaultClient
	Client    *http.Client
	UserAgent string
}

// PlayerWindow is the desktop player, a dumb view implementing ports.PlayerView.
// Every PlayerView method may be called from any goroutine; updates are
// marshalled onto the Fyne thread with fyne.Do.
type PlayerWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	logger *slog.Logger
	cfg    WindowConfig

	// Player content
	cover          *canvas.Image
	coverHolder    *widgets.TappableStack
	albumTitle     *widget.Label
	albumPerformer *widget.Label
	notesLink      *widget.Hyperlink
	rightsText     *widget.Label
	rightsLink     *widget.Hyperlink
	tracklist      *Tracklist
	prevButton     *widget.Button
	playButton     *widget.Button
	nextButton     *widget.Button
	nowPlaying     *widget.Label
	progressSlider *widget.Slider
	progressText   *widget.Label
	volumeSlider   *widget.Slider
	playerContent  fyneapp.CanvasObject

	// Access notice content
	noticeText    *widget.Label
	noticeLink    *widget.Hyperlink
	noticeContent fyneapp.CanvasObject

	// coverCancel aborts the in-flight cover download
	coverMu     sync.Mutex
	coverCancel context.CancelFunc
	pdfURL      string

	closeOnce sync.Once
	presenter *Presenter
}

// NewPlayerWindow creates the window showing a loading placeholder.
func NewPlayerWindow(app fyneapp.App, logger *slog.Logger, cfg WindowConfig) *PlayerWindow {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	w := &PlayerWindow{
		app:    app,
		logger: logger,
		cfg:    cfg,
	}

	w.window = app.NewWindow(cfg.AppName)
	w.buildUI()

	w.window.Resize(fyneapp.NewSize(WIDTH, HEIGHT))
	w.app.SetIcon(theme.MediaMusicIcon())

	loading := widget.NewProgressBarInfinite()
	w.window.SetContent(container.NewCenter(container.NewVBox(widget.NewLabel("Loading catalog..."), loading)))
	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *PlayerWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
	w.addShortcuts()
}

func (w *PlayerWindow) buildUI() {
	// Cover art; tapping it opens the liner notes when there are any
	w.cover = canvas.NewImageFromResource(theme.MediaMusicIcon())
	w.cover.FillMode = canvas.ImageFillContain
	w.cover.SetMinSize(fyneapp.NewSize(220, 220))
	w.coverHolder = widgets.NewTappableStack(w.cover, nil)

	w.albumTitle = widget.NewLabel("")
	w.albumTitle.TextStyle = fyneapp.TextStyle{Bold: true}
	w.albumTitle.Wrapping = fyneapp.TextWrapWord
	w.albumPerformer = widget.NewLabel("")
	w.albumPerformer.Wrapping = fyneapp.TextWrapWord

	w.notesLink = widget.NewHyperlink("Liner notes (PDF)", nil)
	w.notesLink.Hide()

	w.rightsText = widget.NewLabel("")
	w.rightsText.Wrapping = fyneapp.TextWrapWord
	w.rightsText.SizeName = theme.SizeNameCaptionText
	w.rightsLink = widget.NewHyperlink("", nil)
	w.rightsLink.Hide()

	side := container.NewVBox(w.coverHolder, w.albumTitle, w.albumPerformer, w.notesLink,
		widget.NewSeparator(), w.rightsText, w.rightsLink)

	w.tracklist = NewTracklist(nil)

	// Control buttons
	w.prevButton = widget.NewButtonWithIcon("", theme.MediaSkipPreviousIcon(), nil)
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.nextButton = widget.NewButtonWithIcon("", theme.MediaSkipNextIcon(), nil)

	w.nowPlaying = widget.NewLabel("")
	w.nowPlaying.Truncation = fyneapp.TextTruncateEllipsis
	w.nowPlaying.TextStyle = fyneapp.TextStyle{Bold: true, Italic: true}

	// Volume slider
	w.volumeSlider = widget.NewSlider(0, 100)
	w.volumeSlider.Orientation = widget.Horizontal
	volIcon := canvas.NewImageFromResource(theme.VolumeUpIcon())
	volIcon.SetMinSize(fyneapp.NewSize(20, 20))
	volumeHolder := container.NewBorder(nil, nil, volIcon, nil, container.NewGridWrap(fyneapp.NewSize(120, 36), w.volumeSlider))

	buttons := container.NewHBox(w.prevButton, w.playButton, w.nextButton)
	buttonsHolder := container.NewBorder(nil, nil, buttons, volumeHolder, w.nowPlaying)

	// Progress slider
	w.progressSlider = widget.NewSlider(0, 1)
	w.progressSlider.Step = 0.001
	w.progressText = widget.NewLabel("0:00 / 0:00")
	sliderHolder := container.NewBorder(nil, nil, nil, w.progressText, w.progressSlider)

	controls := container.NewVBox(sliderHolder, buttonsHolder)
	split := container.NewHSplit(container.NewVScroll(side), w.tracklist.Content())
	split.Offset = 0.35
	w.playerContent = container.NewPadded(container.NewBorder(nil, controls, nil, nil, split))

	// Access notice
	w.noticeText = widget.NewLabel("")
	w.noticeText.Wrapping = fyneapp.TextWrapWord
	w.noticeText.Alignment = fyneapp.TextAlignCenter
	w.noticeLink = widget.NewHyperlink("", nil)
	w.noticeLink.Alignment = fyneapp.TextAlignCenter
	w.noticeContent = container.NewPadded(container.NewVBox(layoutSpacer(), w.noticeText, w.noticeLink))

	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

func layoutSpacer() fyneapp.CanvasObject {
	r := canvas.NewRectangle(nil)
	r.SetMinSize(fyneapp.NewSize(1, 80))
	return r
}

func (w *PlayerWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.playButton.OnTapped = w.presenter.OnPlayClicked
	w.nextButton.OnTapped = w.presenter.OnNextClicked
	w.prevButton.OnTapped = w.presenter.OnPreviousClicked
	w.tracklist.onSelected = w.presenter.OnTrackSelected

	// Only user drags end in OnChangeEnded; programmatic updates set Value directly
	w.progressSlider.OnChangeEnded = w.presenter.OnSeekRequested
	w.volumeSlider.OnChangeEnded = func(value float64) {
		w.presenter.OnVolumeChanged(value / 100)
	}

	w.window.SetOnClosed(w.presenter.OnClosed)
}

func (w *PlayerWindow) createMenu() []*fyneapp.Menu {
	openItem := fyneapp.NewMenuItem("Open Item...", func() {
		if w.presenter == nil {
			return
		}
		NewItemDialog(w.window, w.cfg.ItemID, func(itemID string) {
			w.cfg.ItemID = itemID
			w.presenter.OnItemRequested(itemID)
		}).Show()
	})
	openNotes := fyneapp.NewMenuItem("Liner Notes", w.openLinerNotes)
	about := fyneapp.NewMenuItem("About", func() {
		showAboutDialog(w.window, w.cfg.AppName, w.cfg.Version)
	})

	// Fyne appends Quit to the first menu
	fileMenu := fyneapp.NewMenu("File", openItem, openNotes)
	helpMenu := fyneapp.NewMenu("Help", about)
	return []*fyneapp.Menu{fileMenu, helpMenu}
}

// addShortcuts binds Space to play/pause, Escape to stop, Alt+Left/Right to
// previous/next and Alt+Up/Down to volume.
func (w *PlayerWindow) addShortcuts() {
	c := w.window.Canvas()
	c.SetOnTypedKey(func(ev *fyneapp.KeyEvent) {
		if w.presenter == nil || c.Focused() != nil {
			return
		}
		switch ev.Name {
		case fyneapp.KeySpace:
			w.presenter.OnPlayClicked()
		case fyneapp.KeyEscape:
			w.presenter.OnClosed()
		}
	})

	bind := func(key fyneapp.KeyName, fn func()) {
		c.AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: fyneapp.KeyModifierAlt},
			func(fyneapp.Shortcut) { fn() })
	}
	bind(fyneapp.KeyLeft, w.presenter.OnPreviousClicked)
	bind(fyneapp.KeyRight, w.presenter.OnNextClicked)
	bind(fyneapp.KeyUp, func() { w.nudgeVolume(5) })
	bind(fyneapp.KeyDown, func() { w.nudgeVolume(-5) })
}

func (w *PlayerWindow) nudgeVolume(delta float64) {
	v := min(100, max(0, w.volumeSlider.Value+delta))
	w.volumeSlider.Value = v
	w.volumeSlider.Refresh()
	w.presenter.OnVolumeChanged(v / 100)
}

func (w *PlayerWindow) openLinerNotes() {
	if w.pdfURL == "" {
		return
	}
	u, err := url.Parse(w.pdfURL)
	if err != nil {
		w.logger.Warn("invalid liner notes url", slog.String("url", w.pdfURL), slog.Any("error", err))
		return
	}
	if err := w.app.OpenURL(u); err != nil {
		showErrorDialog(w.window, "Liner Notes", err)
	}
}

// ShowAndRun shows the window and runs the application.
func (w *PlayerWindow) ShowAndRun() {
	w.window.ShowAndRun()
}

// Close closes the window. Safe to call multiple times.
func (w *PlayerWindow) Close() {
	w.closeOnce.Do(func() {
		w.cancelCover()
		fyneapp.Do(w.window.Close)
	})
}

// GetWindow returns the underlying Fyne window.
func (w *PlayerWindow) GetWindow() fyneapp.Window {
	return w.window
}

// PlayerView implementation

// ShowCatalog replaces the window content with the player for catalog.
func (w *PlayerWindow) ShowCatalog(catalog *domain.Catalog) {
	fyneapp.Do(func() {
		w.window.SetTitle(fmt.Sprintf("%s - %s", w.cfg.AppName, catalog.AlbumTitle))
		w.albumTitle.SetText(catalog.AlbumTitle)
		w.albumPerformer.SetText(catalog.AlbumPerformer)

		w.pdfURL = catalog.PDFURL
		if u, err := url.Parse(catalog.PDFURL); err == nil && catalog.HasPDF() {
			w.notesLink.SetURL(u)
			w.notesLink.Show()
			w.coverHolder.SetOnTapped(w.openLinerNotes)
		} else {
			w.notesLink.Hide()
			w.coverHolder.SetOnTapped(nil)
		}

		rights := catalog.RightsStatement()
		w.rightsText.SetText(rights.Text)
		setLink(w.rightsLink, rights.LinkText, rights.LinkURL)

		w.tracklist.SetCatalog(catalog)
		w.cover.Image = nil
		w.cover.Resource = theme.MediaMusicIcon()
		w.cover.Refresh()
		w.window.SetContent(w.playerContent)
	})
	w.loadCover(catalog.CoverURL)
}

// ShowAccessNotice replaces the window content with the visit-in-person notice.
func (w *PlayerWindow) ShowAccessNotice(notice domain.AccessNotice) {
	w.cancelCover()
	fyneapp.Do(func() {
		w.window.SetTitle(w.cfg.AppName)
		w.noticeText.SetText(notice.Message)
		setLink(w.noticeLink, notice.LinkText, notice.LinkURL)
		w.window.SetContent(w.noticeContent)
	})
}

// SetPlayState switches the play button between play and pause.
func (w *PlayerWindow) SetPlayState(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetNowPlaying shows the now-playing line.
func (w *PlayerWindow) SetNowPlaying(title string) {
	fyneapp.Do(func() {
		w.nowPlaying.SetText(title)
	})
}

// HighlightTrack marks the current track in the tracklist.
func (w *PlayerWindow) HighlightTrack(index int) {
	fyneapp.Do(func() {
		w.tracklist.Highlight(index)
	})
}

// SetTrackDuration updates one tracklist row's duration text.
func (w *PlayerWindow) SetTrackDuration(index int, text string) {
	fyneapp.Do(func() {
		w.tracklist.SetDuration(index, text)
	})
}

// SetProgress moves the progress slider and time text.
func (w *PlayerWindow) SetProgress(fraction float64, text string) {
	fyneapp.Do(func() {
		w.progressSlider.Value = fraction
		w.progressSlider.Refresh()
		w.progressText.SetText(text)
	})
}

// SetVolume moves the volume slider.
func (w *PlayerWindow) SetVolume(volume float64) {
	fyneapp.Do(func() {
		// Convert from 0.0-1.0 to 0-100
		w.volumeSlider.Value = volume * 100.0
		w.volumeSlider.Refresh()
	})
}

// ShowError reports a failure in a dialog.
func (w *PlayerWindow) ShowError(title string, err error) {
	fyneapp.Do(func() {
		showErrorDialog(w.window, title, err)
	})
}

func setLink(link *widget.Hyperlink, text, raw string) {
	u, err := url.Parse(raw)
	if raw == "" || err != nil {
		link.Hide()
		return
	}
	if text == "" {
		text = raw
	}
	link.SetText(text)
	_ = link.SetURLFromString(u.String())
	link.Show()
}

// loadCover downloads the cover art off the UI thread, replacing any
// download still in flight.
func (w *PlayerWindow) loadCover(coverURL string) {
	w.cancelCover()
	if coverURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	w.coverMu.Lock()
	w.coverCancel = cancel
	w.coverMu.Unlock()

	go func() {
		defer cancel()
		img, err := w.fetchImage(ctx, coverURL)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("cover art unavailable", slog.String("url", coverURL), slog.Any("error", err))
			}
			return
		}
		fyneapp.Do(func() {
			if ctx.Err() != nil {
				return
			}
			w.cover.Resource = nil
			w.cover.Image = img
			w.cover.Refresh()
		})
	}()
}

func (w *PlayerWindow) cancelCover() {
	w.coverMu.Lock()
	defer w.coverMu.Unlock()
	if w.coverCancel != nil {
		w.coverCancel()
		w.coverCancel = nil
	}
}

func (w *PlayerWindow) fetchImage(ctx context.Context, src string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}

	resp, err := w.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{URL: src, StatusCode: resp.StatusCode}
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}
	return img, nil
}

// Verify PlayerView implementation
var _ ports.PlayerView = (*PlayerWindow)(nil)
