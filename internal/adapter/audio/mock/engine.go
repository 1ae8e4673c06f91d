// Package mock provides an in-memory implementation of the SoundEngine interface.
// It is used by tests and by --mock-audio runs on machines without an audio device.
package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
)

// Engine simulates sounds without decoding or playing audio.
//
// By default a load completes synchronously inside Load and positions only
// move through Advance. With SetRealtime, positions follow the wall clock and
// sprites end on their own, which makes the engine a silent stand-in for the
// real one.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	logger *slog.Logger

	mu     sync.Mutex
	sounds []*Sound
	loads  int
	closed bool

	// Behavior configuration (for testing error scenarios)
	failLoad   error
	loadError  error
	failPlay   error
	manualLoad bool
	realtime   bool
}

// NewEngine creates a new mock sound engine.
func NewEngine() *Engine {
	return &Engine{}
}

// SetLogger sets the logger for this engine.
func (e *Engine) SetLogger(logger *slog.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger
}

// SetFailLoad makes Load itself return err (nil restores normal loading).
func (e *Engine) SetFailLoad(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLoad = err
}

// SetLoadError makes every load report err through OnError instead of OnLoad.
func (e *Engine) SetLoadError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadError = err
}

// SetFailPlay makes Sound.Play return err.
func (e *Engine) SetFailPlay(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failPlay = err
}

// SetManualLoad leaves loads pending until CompleteLoad or FailLoad is called on the sound.
func (e *Engine) SetManualLoad(manual bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manualLoad = manual
}

// SetRealtime makes positions follow the wall clock and sprites end by themselves.
func (e *Engine) SetRealtime(realtime bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.realtime = realtime
}

// Load creates a sound for src.
func (e *Engine) Load(ctx context.Context, src string, handlers ports.SoundHandlers) (ports.Sound, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, domain.ErrNotInitialized
	}
	if e.failLoad != nil {
		err := e.failLoad
		e.mu.Unlock()
		return nil, domain.NewAudioEngineError("load", src, "mock load failed", err)
	}

	e.loads++
	s := &Sound{
		engine:   e,
		src:      src,
		handlers: handlers,
		volume:   1,
		realtime: e.realtime,
	}
	e.sounds = append(e.sounds, s)
	manual, loadErr, logger := e.manualLoad, e.loadError, e.logger
	e.mu.Unlock()

	if logger != nil {
		logger.Debug("mock sound created", slog.String("src", src))
	}

	if manual {
		return s, nil
	}
	if loadErr != nil {
		s.FailLoad(loadErr)
		return s, nil
	}
	s.CompleteLoad()
	return s, nil
}

// Shutdown unloads every sound.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	sounds := append([]*Sound(nil), e.sounds...)
	e.closed = true
	e.mu.Unlock()

	for _, s := range sounds {
		_ = s.Unload()
	}
	return nil
}

// LoadCount returns how many sounds were created.
func (e *Engine) LoadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

// ActiveSounds returns how many sounds have not been unloaded.
func (e *Engine) ActiveSounds() int {
	e.mu.Lock()
	sounds := append([]*Sound(nil), e.sounds...)
	e.mu.Unlock()

	n := 0
	for _, s := range sounds {
		if !s.Unloaded() {
			n++
		}
	}
	return n
}

// Last returns the most recently created sound, or nil.
func (e *Engine) Last() *Sound {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.sounds) == 0 {
		return nil
	}
	return e.sounds[len(e.sounds)-1]
}

func (e *Engine) playError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failPlay
}

// Sound is a simulated sound.
type Sound struct {
	engine   *Engine
	src      string
	handlers ports.SoundHandlers
	realtime bool

	mu       sync.Mutex
	loaded   bool
	unloaded bool
	playing  bool
	playID   int
	sprite   domain.Sprite
	position time.Duration
	resumed  time.Time
	timer    *time.Timer
	volume   float64
	plays    []domain.Sprite
}

// CompleteLoad marks the audio ready and fires OnLoad.
func (s *Sound) CompleteLoad() {
	s.mu.Lock()
	if s.unloaded || s.loaded {
		s.mu.Unlock()
		return
	}
	s.loaded = true
	s.mu.Unlock()

	if s.handlers.OnLoad != nil {
		s.handlers.OnLoad()
	}
}

// FailLoad fires OnError as if the audio could not be decoded.
func (s *Sound) FailLoad(err error) {
	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.handlers.OnError != nil {
		s.handlers.OnError(domain.NewAudioEngineError("load", s.src, "mock decode failed", err))
	}
}

// Play starts a bounded play of sprite.
func (s *Sound) Play(sprite domain.Sprite) (int, error) {
	if err := s.engine.playError(); err != nil {
		return 0, domain.NewAudioEngineError("play", s.src, "mock play failed", err)
	}

	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return 0, domain.ErrInvalidHandle
	}
	if !s.loaded {
		s.mu.Unlock()
		return 0, domain.ErrNotLoaded
	}
	s.stopTimerLocked()
	s.playID++
	id := s.playID
	s.sprite = sprite
	s.position = 0
	s.playing = true
	s.plays = append(s.plays, sprite)
	s.startClockLocked(id)
	s.mu.Unlock()

	if s.handlers.OnPlay != nil {
		s.handlers.OnPlay(id)
	}
	return id, nil
}

// Pause pauses the current play.
func (s *Sound) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return domain.ErrInvalidHandle
	}
	if !s.playing {
		return nil
	}
	s.position = s.positionLocked()
	s.playing = false
	s.stopTimerLocked()
	return nil
}

// Resume continues a paused play and fires OnPlay with its id.
func (s *Sound) Resume() error {
	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return domain.ErrInvalidHandle
	}
	if s.playing || s.playID == 0 {
		s.mu.Unlock()
		return nil
	}
	s.playing = true
	id := s.playID
	s.startClockLocked(id)
	s.mu.Unlock()

	if s.handlers.OnPlay != nil {
		s.handlers.OnPlay(id)
	}
	return nil
}

// Stop ends the current play without firing OnEnd.
func (s *Sound) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return domain.ErrInvalidHandle
	}
	s.playing = false
	s.position = 0
	s.stopTimerLocked()
	return nil
}

// Unload releases the sound. Further calls fail with ErrInvalidHandle.
func (s *Sound) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return domain.ErrInvalidHandle
	}
	s.stopTimerLocked()
	s.unloaded = true
	s.playing = false
	return nil
}

// Seek moves within the current sprite, clamped to its bounds.
func (s *Sound) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return domain.ErrInvalidHandle
	}
	s.stopTimerLocked()
	s.position = min(max(0, pos), s.sprite.Length)
	if s.playing {
		s.startClockLocked(s.playID)
	}
	return nil
}

// Position returns the position within the current sprite.
func (s *Sound) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

// Playing reports whether a sprite is audible.
func (s *Sound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SetVolume sets the volume.
func (s *Sound) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return domain.ErrInvalidVolume
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return domain.ErrInvalidHandle
	}
	s.volume = volume
	return nil
}

// Source returns the URL the sound was created for.
func (s *Sound) Source() string {
	return s.src
}

// Volume returns the last volume set (for testing).
func (s *Sound) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Plays returns every sprite passed to Play, in order (for testing).
func (s *Sound) Plays() []domain.Sprite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Sprite(nil), s.plays...)
}

// PlayID returns the id of the latest play (for testing).
func (s *Sound) PlayID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playID
}

// Unloaded reports whether Unload was called.
func (s *Sound) Unloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloaded
}

// Advance moves a playing sprite forward; reaching its end fires OnEnd.
func (s *Sound) Advance(delta time.Duration) {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.position += delta
	ended := s.position >= s.sprite.Length
	s.mu.Unlock()

	if ended {
		s.Finish()
	}
}

// Finish ends the current play as if its sprite ran out and fires OnEnd.
func (s *Sound) Finish() {
	s.finish(0)
}

func (s *Sound) finish(id int) {
	s.mu.Lock()
	if s.unloaded || s.playID == 0 || (id != 0 && id != s.playID) {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.playing = false
	s.position = s.sprite.Length
	id = s.playID
	s.mu.Unlock()

	if s.handlers.OnEnd != nil {
		s.handlers.OnEnd(id)
	}
}

// EmitEnd fires OnEnd for id regardless of the sound's state, simulating a
// callback that arrives late.
func (s *Sound) EmitEnd(id int) {
	if s.handlers.OnEnd != nil {
		s.handlers.OnEnd(id)
	}
}

// EmitLoad fires OnLoad regardless of the sound's state.
func (s *Sound) EmitLoad() {
	if s.handlers.OnLoad != nil {
		s.handlers.OnLoad()
	}
}

func (s *Sound) positionLocked() time.Duration {
	if s.realtime && s.playing {
		return min(s.position+time.Since(s.resumed), s.sprite.Length)
	}
	return s.position
}

func (s *Sound) startClockLocked(id int) {
	if !s.realtime {
		return
	}
	s.resumed = time.Now()
	s.timer = time.AfterFunc(max(0, s.sprite.Length-s.position), func() { s.finish(id) })
}

func (s *Sound) stopTimerLocked() {
	if s.realtime && s.playing {
		s.position = s.positionLocked()
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

var (
	_ ports.SoundEngine = (*Engine)(nil)
	_ ports.Sound       = (*Sound)(nil)
)
