// Package service provides the business logic of the archive player: resolving
// an item's metadata into a catalog and driving sprite playback over it.
package service

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
)

// SessionConfig tunes a PlayerSession.
type SessionConfig struct {
	// ProgressInterval is how often progress is published while playing.
	ProgressInterval time.Duration

	// DefaultSpan is the play length of tracks whose duration is unknown.
	DefaultSpan time.Duration

	// InitialVolume is the volume applied to the first sound (0.0 to 1.0).
	InitialVolume float64
}

// DefaultSessionConfig returns the settings the player ships with.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ProgressInterval: 500 * time.Millisecond,
		DefaultSpan:      domain.DefaultSpriteSpan,
		InitialVolume:    1.0,
	}
}

// PlayerSession plays the tracks of one catalog, one sprite at a time.
//
// All playback state is owned by a single goroutine that drains a mailbox of
// commands and sound-engine callbacks in arrival order. Public methods post a
// command and wait for its result; engine callbacks are posted without
// waiting. Callbacks are tagged with the load generation and play id that
// produced them, so anything arriving for a sound or play that has since been
// replaced is dropped.
//
// Events are published from the session goroutine. Subscribers must not call
// methods of the same session from inside their handler.
type PlayerSession struct {
	id     string
	logger *slog.Logger
	engine ports.SoundEngine
	bus    ports.EventBus
	cfg    SessionConfig

	ctx    context.Context
	cancel context.CancelFunc

	mbox         *mailbox
	quit         chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
	closed       atomic.Bool

	snapshot atomic.Pointer[domain.SessionSnapshot]

	// Owned by the session goroutine.
	catalog    *domain.Catalog
	current    int
	state      domain.PlayerState
	isPlaying  bool
	sound      ports.Sound
	soundReady bool
	cancelLoad context.CancelFunc
	sprite     domain.Sprite
	generation uint64
	playID     int
	volume     float64
	position   time.Duration
	ticker     *time.Ticker
	lastErr    error
}

// NewPlayerSession creates a session and starts its goroutine.
// Call Shutdown to stop it.
func NewPlayerSession(
	logger *slog.Logger,
	engine ports.SoundEngine,
	bus ports.EventBus,
	cfg SessionConfig,
) *PlayerSession {
	defaults := DefaultSessionConfig()
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = defaults.ProgressInterval
	}
	if cfg.DefaultSpan <= 0 {
		cfg.DefaultSpan = defaults.DefaultSpan
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	s := &PlayerSession{
		id:     id,
		logger: logger.With(slog.String("service", "player"), slog.String("session", id)),
		engine: engine,
		bus:    bus,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		mbox:   newMailbox(),
		quit:   make(chan struct{}),
		volume: clamp01(cfg.InitialVolume),
	}
	s.publishSnapshot()

	s.wg.Add(1)
	go s.run()

	s.logger.Debug("player session started")
	return s
}

// ID returns the session identifier.
func (s *PlayerSession) ID() string {
	return s.id
}

// SetCatalog replaces the playlist. Current playback is disposed and the
// current index resets to the first track.
func (s *PlayerSession) SetCatalog(catalog *domain.Catalog) error {
	return s.call(func() error {
		s.dispose()
		s.catalog = catalog
		s.current = 0
		s.position = 0
		s.lastErr = nil

		var tracks []domain.Track
		if catalog != nil {
			tracks = catalog.Tracks()
		}
		s.logger.Info("catalog set", slog.Int("tracks", len(tracks)))
		s.bus.Publish(domain.NewPlaylistUpdatedEvent(tracks, s.current))
		return nil
	})
}

// PlayTrack starts the track at a global index.
// An index outside the playlist returns domain.ErrInvalidIndex and changes nothing.
func (s *PlayerSession) PlayTrack(index int) error {
	return s.call(func() error { return s.playTrack(index) })
}

// TogglePlay pauses a playing track, resumes a paused one, and otherwise
// (re)starts the current track. It does nothing while audio is loading.
func (s *PlayerSession) TogglePlay() error {
	return s.call(s.togglePlay)
}

// PlayNext starts the following track, wrapping to the first.
func (s *PlayerSession) PlayNext() error {
	return s.call(func() error { return s.step(1) })
}

// PlayPrevious starts the preceding track, wrapping to the last.
func (s *PlayerSession) PlayPrevious() error {
	return s.call(func() error { return s.step(-1) })
}

// Seek jumps to a fraction (clamped to [0, 1]) of the current track.
func (s *PlayerSession) Seek(fraction float64) error {
	return s.call(func() error { return s.seek(fraction) })
}

// SetVolume sets the volume (clamped to [0, 1]) for the current and every later sound.
func (s *PlayerSession) SetVolume(volume float64) error {
	return s.call(func() error {
		s.setVolume(volume)
		return nil
	})
}

// Dispose stops and releases the current sound and the progress ticker.
// It is idempotent and never fails, including after Shutdown.
func (s *PlayerSession) Dispose() error {
	if err := s.call(func() error {
		s.dispose()
		return nil
	}); err != nil {
		s.logger.Debug("dispose after shutdown ignored")
	}
	return nil
}

// Snapshot returns the latest session state without waiting for the session goroutine.
func (s *PlayerSession) Snapshot() domain.SessionSnapshot {
	return *s.snapshot.Load()
}

// Shutdown disposes playback and stops the session goroutine.
// It is safe to call more than once.
func (s *PlayerSession) Shutdown() error {
	s.shutdownOnce.Do(func() {
		_ = s.call(func() error {
			s.dispose()
			return nil
		})
		s.closed.Store(true)
		s.cancel()
		close(s.quit)
		s.wg.Wait()
		s.logger.Debug("player session stopped")
	})
	return nil
}

// call runs fn on the session goroutine and waits for its result.
func (s *PlayerSession) call(fn func() error) error {
	if s.closed.Load() {
		return domain.ErrSessionClosed
	}

	done := make(chan error, 1)
	s.mbox.post(func() {
		err := fn()
		s.publishSnapshot()
		done <- err
	})

	select {
	case err := <-done:
		return err
	case <-s.quit:
		select {
		case err := <-done:
			return err
		default:
			return domain.ErrSessionClosed
		}
	}
}

func (s *PlayerSession) run() {
	defer s.wg.Done()

	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C
		}

		select {
		case <-s.quit:
			s.stopProgress()
			return
		case <-s.mbox.ready:
			for _, fn := range s.mbox.take() {
				fn()
			}
		case <-tick:
			s.reportProgress()
		}
		s.publishSnapshot()
	}
}

// settle waits until every closure posted so far, and every closure those
// post in turn, has run.
func (s *PlayerSession) settle() {
	for {
		if err := s.call(func() error { return nil }); err != nil {
			return
		}
		if s.mbox.len() == 0 {
			return
		}
	}
}

func (s *PlayerSession) tracks() int {
	if s.catalog == nil {
		return 0
	}
	return s.catalog.Len()
}

func (s *PlayerSession) currentTrack() domain.Track {
	if s.catalog == nil {
		return domain.Track{}
	}
	t, _ := s.catalog.Track(s.current)
	return t
}

func (s *PlayerSession) playTrack(index int) error {
	if s.tracks() == 0 {
		return nil
	}
	track, ok := s.catalog.Track(index)
	if !ok {
		s.logger.Warn("track index out of range", slog.Int("index", index), slog.Int("tracks", s.tracks()))
		return domain.ErrInvalidIndex
	}

	s.stopProgress()
	s.current = index
	s.isPlaying = false
	s.position = 0
	s.lastErr = nil
	s.sprite = track.Sprite(s.cfg.DefaultSpan)

	log := s.logger.With(slog.Int("index", index), slog.String("disk", track.DiskNum))

	if s.sound != nil && s.sound.Source() == track.AudioURL {
		if !s.soundReady {
			// The pending load plays whatever sprite is current when it completes.
			log.Debug("track queued behind pending load")
			s.bus.Publish(domain.NewTrackLoadingEvent(track))
			return nil
		}
		log.Debug("reusing disk audio", slog.Duration("offset", s.sprite.Start))
		if err := s.sound.Stop(); err != nil {
			log.Warn("failed to stop sound", slog.Any("error", err))
		}
		return s.startSprite(track)
	}

	s.releaseSound()
	return s.loadSound(track, log)
}

func (s *PlayerSession) loadSound(track domain.Track, log *slog.Logger) error {
	if track.AudioURL == "" {
		return s.failPlayback(track, domain.NewAudioEngineError("load", "", "disk has no audio file", nil))
	}

	s.generation++
	gen := s.generation
	handlers := ports.SoundHandlers{
		OnLoad:  func() { s.mbox.post(func() { s.handleLoad(gen) }) },
		OnPlay:  func(id int) { s.mbox.post(func() { s.handlePlay(gen, id) }) },
		OnEnd:   func(id int) { s.mbox.post(func() { s.handleEnd(gen, id) }) },
		OnError: func(err error) { s.mbox.post(func() { s.handleError(gen, err) }) },
	}

	s.setState(domain.StateLoading)
	s.bus.Publish(domain.NewTrackLoadingEvent(track))
	log.Debug("loading disk audio", slog.String("url", track.AudioURL))

	ctx, cancel := context.WithCancel(s.ctx)
	sound, err := s.engine.Load(ctx, track.AudioURL, handlers)
	if err != nil {
		cancel()
		return s.failPlayback(track, err)
	}

	s.sound = sound
	s.cancelLoad = cancel
	if err := sound.SetVolume(s.volume); err != nil {
		log.Warn("failed to apply volume", slog.Any("error", err))
	}
	return nil
}

func (s *PlayerSession) startSprite(track domain.Track) error {
	s.setState(domain.StateLoading)
	id, err := s.sound.Play(s.sprite)
	if err != nil {
		return s.failPlayback(track, err)
	}
	s.playID = id
	return nil
}

func (s *PlayerSession) handleLoad(gen uint64) {
	if gen != s.generation || s.sound == nil {
		return
	}
	s.soundReady = true
	s.logger.Debug("disk audio loaded", slog.String("url", s.sound.Source()))
	if err := s.startSprite(s.currentTrack()); err != nil {
		s.logger.Debug("play after load failed", slog.Any("error", err))
	}
}

func (s *PlayerSession) handlePlay(gen uint64, id int) {
	if gen != s.generation || id != s.playID {
		return
	}
	track := s.currentTrack()
	s.isPlaying = true
	s.setState(domain.StatePlaying)
	s.startProgress()
	s.logger.Info("track started", slog.Int("index", s.current), slog.String("title", track.Title))
	s.bus.Publish(domain.NewTrackStartedEvent(track))
}

func (s *PlayerSession) handleEnd(gen uint64, id int) {
	if gen != s.generation || id != s.playID {
		return
	}
	track := s.currentTrack()
	s.isPlaying = false
	s.stopProgress()
	s.position = s.sprite.Length
	s.bus.Publish(domain.NewTrackCompletedEvent(track))

	if s.current < s.tracks()-1 {
		if err := s.playTrack(s.current + 1); err != nil {
			s.logger.Warn("auto-advance failed", slog.Any("error", err))
		}
		return
	}

	s.setState(domain.StateStopped)
	s.logger.Info("playlist finished")
	s.bus.Publish(domain.NewPlaylistFinishedEvent(track))
}

func (s *PlayerSession) handleError(gen uint64, err error) {
	if gen != s.generation {
		return
	}
	_ = s.failPlayback(s.currentTrack(), err)
}

// failPlayback reports a load or play failure for track and releases the sound.
// The current index is kept and nothing advances.
func (s *PlayerSession) failPlayback(track domain.Track, err error) error {
	perr := domain.NewPlaybackError(track.AudioURL, track.GlobalIndex, err)
	s.logger.Error("playback failed",
		slog.Int("index", track.GlobalIndex),
		slog.String("url", track.AudioURL),
		slog.Any("error", err))

	s.lastErr = perr
	s.stopProgress()
	s.releaseSound()
	s.isPlaying = false
	s.setState(domain.StateIdle)
	s.bus.Publish(domain.NewTrackErrorEvent(track, perr))
	return perr
}

func (s *PlayerSession) togglePlay() error {
	if s.tracks() == 0 {
		return nil
	}
	if s.sound == nil {
		return s.playTrack(s.current)
	}

	switch s.state {
	case domain.StatePlaying:
		s.position = s.sound.Position()
		if err := s.sound.Pause(); err != nil {
			s.logger.Warn("failed to pause", slog.Any("error", err))
			return err
		}
		s.isPlaying = false
		s.stopProgress()
		s.setState(domain.StatePaused)
		s.bus.Publish(domain.NewTrackPausedEvent(s.currentTrack(), s.position))
		return nil
	case domain.StatePaused:
		// State flips to playing when the engine confirms through OnPlay.
		if err := s.sound.Resume(); err != nil {
			return s.failPlayback(s.currentTrack(), err)
		}
		return nil
	case domain.StateLoading:
		return nil
	default:
		return s.playTrack(s.current)
	}
}

func (s *PlayerSession) step(delta int) error {
	n := s.tracks()
	if n == 0 {
		return nil
	}
	return s.playTrack(((s.current+delta)%n + n) % n)
}

func (s *PlayerSession) seek(fraction float64) error {
	if s.sound == nil || (s.state != domain.StatePlaying && s.state != domain.StatePaused) {
		return nil
	}
	pos := time.Duration(clamp01(fraction) * float64(s.sprite.Length))
	if err := s.sound.Seek(pos); err != nil {
		s.logger.Warn("seek failed", slog.Duration("position", pos), slog.Any("error", err))
		return err
	}
	s.position = pos
	s.bus.Publish(domain.NewTrackProgressEvent(s.current, domain.NewProgress(pos, s.sprite.Length)))
	return nil
}

func (s *PlayerSession) setVolume(volume float64) {
	s.volume = clamp01(volume)
	if s.sound != nil {
		if err := s.sound.SetVolume(s.volume); err != nil {
			s.logger.Warn("failed to apply volume", slog.Any("error", err))
		}
	}
	s.bus.Publish(domain.NewVolumeChangedEvent(s.volume))
}

func (s *PlayerSession) dispose() {
	s.stopProgress()
	hadSound := s.sound != nil
	s.releaseSound()
	s.isPlaying = false
	s.position = 0
	s.setState(domain.StateIdle)
	if hadSound {
		s.logger.Debug("playback disposed")
		s.bus.Publish(domain.NewTrackStoppedEvent(s.currentTrack()))
	}
}

// releaseSound stops and unloads the active sound. Callbacks still in flight
// for it are invalidated by the generation bump.
func (s *PlayerSession) releaseSound() {
	s.generation++
	s.playID = 0
	s.soundReady = false
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	if s.sound == nil {
		return
	}
	if err := s.sound.Stop(); err != nil {
		s.logger.Debug("stop on release failed", slog.Any("error", err))
	}
	if err := s.sound.Unload(); err != nil {
		s.logger.Debug("unload on release failed", slog.Any("error", err))
	}
	s.sound = nil
}

func (s *PlayerSession) startProgress() {
	s.stopProgress()
	s.ticker = time.NewTicker(s.cfg.ProgressInterval)
}

func (s *PlayerSession) stopProgress() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *PlayerSession) reportProgress() {
	if s.sound == nil || !s.isPlaying || !s.sound.Playing() {
		return
	}
	s.position = s.sound.Position()
	s.bus.Publish(domain.NewTrackProgressEvent(s.current, domain.NewProgress(s.position, s.sprite.Length)))
}

func (s *PlayerSession) setState(to domain.PlayerState) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	s.bus.Publish(domain.NewStateChangedEvent(from, to, s.current))
}

func (s *PlayerSession) publishSnapshot() {
	snap := domain.SessionSnapshot{
		SessionID:    s.id,
		State:        s.state,
		CurrentIndex: s.current,
		IsPlaying:    s.isPlaying,
		Volume:       s.volume,
		Progress:     domain.NewProgress(s.position, s.sprite.Length),
	}
	if s.catalog != nil {
		snap.Track, snap.HasTrack = s.catalog.Track(s.current)
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	s.snapshot.Store(&snap)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(1, max(0, v))
}

// Verify that PlayerSession satisfies the host-facing player port
var _ ports.Player = (*PlayerSession)(nil)
