// Package fyne provides the Fyne desktop host for a player session.
// The presenter maps domain events onto a ports.PlayerView and turns view
// gestures into session commands; the window is a dumb view.
package fyne

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
	"github.com/tejashwikalptaru/archiveplayer/internal/timecode"
)

// Presenter implements the Presenter pattern (MVP architecture).
//
// Event handlers run on the publishing goroutine (usually the session loop),
// so they only touch the view. Commands run on the UI goroutine and may block
// on the session.
type Presenter struct {
	logger *slog.Logger

	player ports.Player
	bus    ports.EventBus
	view   ports.PlayerView
	prefs  ports.PreferencesRepository

	subscriptions []domain.SubscriptionID

	mu         sync.RWMutex
	catalog    *domain.Catalog
	loadItem   ItemLoader
	loadCancel context.CancelFunc
	// requested is the item of the latest OnItemRequested; catalog events
	// for other items are stale
	requested string

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// ItemLoader switches the session to another catalog item. The outcome is
// also published on the bus as CatalogLoaded or CatalogFailed.
type ItemLoader func(ctx context.Context, itemID string) error

// NewPresenter creates a presenter and subscribes it to the bus.
// prefs may be nil, in which case the volume is not persisted.
func NewPresenter(
	logger *slog.Logger,
	player ports.Player,
	bus ports.EventBus,
	view ports.PlayerView,
	prefs ports.PreferencesRepository,
) *Presenter {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Presenter{
		logger: logger,
		player: player,
		bus:    bus,
		view:   view,
		prefs:  prefs,
		ctx:    ctx,
		cancel: cancel,
	}

	p.subscribeToEvents()
	p.syncInitialState()
	return p
}

func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		// Catalog events
		domain.EventCatalogLoaded:         p.onCatalogLoaded,
		domain.EventCatalogFailed:         p.onCatalogFailed,
		domain.EventTrackDurationResolved: p.onTrackDurationResolved,

		// Playback events
		domain.EventTrackLoading:   p.onTrackLoading,
		domain.EventTrackStarted:   p.onTrackStarted,
		domain.EventTrackPaused:    p.onTrackPaused,
		domain.EventTrackStopped:   p.onTrackStopped,
		domain.EventTrackCompleted: p.onTrackCompleted,
		domain.EventTrackProgress:  p.onTrackProgress,
		domain.EventTrackError:     p.onTrackError,

		domain.EventVolumeChanged: p.onVolumeChanged,

		// Playlist events
		domain.EventPlaylistUpdated:  p.onPlaylistUpdated,
		domain.EventPlaylistFinished: p.onPlaylistFinished,
	}

	for eventType, handler := range subscriptions {
		p.subscriptions = append(p.subscriptions, p.bus.Subscribe(eventType, handler))
	}
}

func (p *Presenter) syncInitialState() {
	snap := p.player.Snapshot()
	p.view.SetVolume(snap.Volume)
	p.view.SetPlayState(snap.IsPlaying)
	if snap.HasTrack && snap.State != domain.StateIdle {
		p.view.SetNowPlaying(nowPlaying(snap.Track))
		p.view.HighlightTrack(snap.CurrentIndex)
	}
}

// Event handlers

func (p *Presenter) onCatalogLoaded(event domain.Event) {
	e, ok := event.(domain.CatalogLoadedEvent)
	if !ok || e.Catalog == nil {
		return
	}

	p.mu.Lock()
	if p.stale(e.Catalog.ItemID) {
		p.mu.Unlock()
		return
	}
	p.catalog = e.Catalog
	p.mu.Unlock()

	p.view.ShowCatalog(e.Catalog)
}

func (p *Presenter) onCatalogFailed(event domain.Event) {
	e, ok := event.(domain.CatalogFailedEvent)
	if !ok {
		return
	}

	p.mu.Lock()
	if p.stale(e.ItemID) {
		p.mu.Unlock()
		return
	}
	p.catalog = nil
	p.mu.Unlock()

	p.logger.Warn("showing access notice", slog.String("item_id", e.ItemID), slog.Any("error", e.Error))
	p.view.ShowAccessNotice(domain.DefaultAccessNotice)
}

// stale reports whether itemID belongs to a superseded request. Caller holds p.mu.
func (p *Presenter) stale(itemID string) bool {
	return p.requested != "" && itemID != p.requested
}

func (p *Presenter) onTrackDurationResolved(event domain.Event) {
	e, ok := event.(domain.TrackDurationResolvedEvent)
	if !ok || !e.Track.DurationKnown {
		return
	}
	p.view.SetTrackDuration(e.Track.GlobalIndex, timecode.Format(e.Track.Duration))
}

func (p *Presenter) onTrackLoading(event domain.Event) {
	e, ok := event.(domain.TrackLoadingEvent)
	if !ok {
		return
	}
	p.view.SetNowPlaying(nowPlaying(e.Track))
	p.view.HighlightTrack(e.Track.GlobalIndex)
}

func (p *Presenter) onTrackStarted(event domain.Event) {
	e, ok := event.(domain.TrackStartedEvent)
	if !ok {
		return
	}
	p.view.SetPlayState(true)
	p.view.SetNowPlaying(nowPlaying(e.Track))
	p.view.HighlightTrack(e.Track.GlobalIndex)
}

func (p *Presenter) onTrackPaused(event domain.Event) {
	p.view.SetPlayState(false)
}

func (p *Presenter) onTrackStopped(event domain.Event) {
	p.view.SetPlayState(false)
	p.view.SetProgress(0, progressText(domain.Progress{}))
}

func (p *Presenter) onTrackCompleted(event domain.Event) {
	// The session advances on its own; the next TrackStarted flips this back.
	p.view.SetPlayState(false)
}

func (p *Presenter) onTrackProgress(event domain.Event) {
	e, ok := event.(domain.TrackProgressEvent)
	if !ok {
		return
	}
	p.view.SetProgress(e.Progress.Fraction, progressText(e.Progress))
}

func (p *Presenter) onTrackError(event domain.Event) {
	e, ok := event.(domain.TrackErrorEvent)
	if !ok {
		return
	}
	p.view.SetPlayState(false)
	p.view.ShowError("Playback Error", e.Error)
}

func (p *Presenter) onVolumeChanged(event domain.Event) {
	e, ok := event.(domain.VolumeChangedEvent)
	if !ok {
		return
	}
	p.view.SetVolume(e.Volume)
}

func (p *Presenter) onPlaylistUpdated(event domain.Event) {
	e, ok := event.(domain.PlaylistUpdatedEvent)
	if !ok {
		return
	}
	p.view.SetPlayState(false)
	p.view.SetNowPlaying("")
	p.view.SetProgress(0, progressText(domain.Progress{}))
	if len(e.Tracks) > 0 {
		p.view.HighlightTrack(e.CurrentIndex)
	}
}

func (p *Presenter) onPlaylistFinished(event domain.Event) {
	p.view.SetPlayState(false)
	p.view.SetProgress(0, progressText(domain.Progress{}))
}

// UI command handlers (called by the view)

// OnPlayClicked toggles between play and pause.
func (p *Presenter) OnPlayClicked() {
	p.report("play/pause failed", p.player.TogglePlay())
}

// OnNextClicked plays the next track, wrapping to the first.
func (p *Presenter) OnNextClicked() {
	p.report("next track failed", p.player.PlayNext())
}

// OnPreviousClicked plays the previous track, wrapping to the last.
func (p *Presenter) OnPreviousClicked() {
	p.report("previous track failed", p.player.PlayPrevious())
}

// OnTrackSelected plays the track at a global index.
func (p *Presenter) OnTrackSelected(index int) {
	p.report("track selection failed", p.player.PlayTrack(index))
}

// OnSeekRequested seeks to a fraction of the current track.
func (p *Presenter) OnSeekRequested(fraction float64) {
	p.report("seek failed", p.player.Seek(fraction))
}

// OnVolumeChanged applies and remembers a volume (0.0 to 1.0).
func (p *Presenter) OnVolumeChanged(volume float64) {
	if err := p.player.SetVolume(volume); err != nil {
		p.report("volume change failed", err)
		return
	}
	if p.prefs != nil {
		if err := p.prefs.SaveVolume(volume); err != nil {
			p.logger.Warn("failed to save volume", slog.Any("error", err))
		}
	}
}

// SetItemLoader enables opening other items from the view.
func (p *Presenter) SetItemLoader(loader ItemLoader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadItem = loader
}

// OnItemRequested loads another item in the background. A request made while
// a previous one is still loading supersedes it.
func (p *Presenter) OnItemRequested(itemID string) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return
	}

	p.mu.Lock()
	loader := p.loadItem
	if loader == nil || p.ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	if p.loadCancel != nil {
		p.loadCancel()
	}
	ctx, cancel := context.WithCancel(p.ctx)
	p.loadCancel = cancel
	p.requested = itemID
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()

		log := p.logger.With(slog.String("item_id", itemID))
		if err := loader(ctx, itemID); err != nil {
			if ctx.Err() == nil {
				log.Warn("item load failed", slog.Any("error", err))
			}
			return
		}
		if p.prefs != nil {
			if err := p.prefs.SaveLastItem(itemID); err != nil {
				log.Warn("failed to save last item", slog.Any("error", err))
			}
		}
	}()
}

// OnClosed releases the active sound when the host view goes away.
func (p *Presenter) OnClosed() {
	_ = p.player.Dispose()
}

// Catalog returns the catalog currently shown, or nil.
func (p *Presenter) Catalog() *domain.Catalog {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog
}

// report shows a command failure. Missing catalogs and closed sessions are
// already visible in the window, so they are only logged.
func (p *Presenter) report(msg string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrNoCatalog) || errors.Is(err, domain.ErrSessionClosed) {
		p.logger.Debug(msg, slog.Any("error", err))
		return
	}
	p.logger.Error(msg, slog.Any("error", err))
	p.view.ShowError("Playback Error", err)
}

// Shutdown cancels pending item loads and unsubscribes from the bus.
// Safe to call multiple times.
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.cancel()
		p.mu.Unlock()
		p.wg.Wait()

		for _, id := range p.subscriptions {
			p.bus.Unsubscribe(id)
		}
		p.subscriptions = nil
	})
}

// nowPlaying formats the now-playing line as "Performer - Title".
func nowPlaying(t domain.Track) string {
	if t.Performer == "" {
		return t.Title
	}
	return t.Performer + " - " + t.Title
}

func progressText(p domain.Progress) string {
	return timecode.Format(p.Current) + " / " + timecode.Format(p.Total)
}
