// Package streaming provides a gopxl/beep adapter implementing the SoundEngine interface.
//
// Disk audio is streamed from the asset store over HTTP range requests and
// decoded on the fly, so playback can start before the file is downloaded.
package streaming

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/tejashwikalptaru/archiveplayer/internal/audiofmt"
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
	"github.com/tejashwikalptaru/archiveplayer/internal/remote"
)

// resampleQuality is the beep.Resample quality used when a file's rate differs
// from the speaker's.
const resampleQuality = 4

// Config holds the output device settings.
type Config struct {
	SampleRate int
	Buffer     time.Duration
	UserAgent  string
}

// DefaultConfig returns CD-rate output with a 100ms buffer.
func DefaultConfig() Config {
	return Config{SampleRate: 44100, Buffer: 100 * time.Millisecond}
}

// Engine plays sounds through the beep speaker.
//
// The speaker is process-wide, so only one Engine should be initialized.
//
// Thread-safety: This implementation is thread-safe via sync.Mutex.
type Engine struct {
	logger *slog.Logger
	client *http.Client
	cfg    Config
	rate   beep.SampleRate

	mu          sync.Mutex
	initialized bool
	sounds      map[*Sound]struct{}
}

// NewEngine creates a beep engine. Init must be called before Load.
func NewEngine(logger *slog.Logger, client *http.Client, cfg Config) *Engine {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	return &Engine{
		logger: logger.With(slog.String("component", "beep")),
		client: client,
		cfg:    cfg,
		rate:   beep.SampleRate(cfg.SampleRate),
		sounds: make(map[*Sound]struct{}),
	}
}

// Init opens the output device. Calling it again is a no-op.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	if err := speaker.Init(e.rate, e.rate.N(e.cfg.Buffer)); err != nil {
		return domain.NewAudioEngineError("init", "", "failed to open audio device", err)
	}
	e.initialized = true
	e.logger.Info("audio device opened",
		slog.Int("sample_rate", e.cfg.SampleRate),
		slog.Duration("buffer", e.cfg.Buffer))
	return nil
}

// Load starts streaming src. It returns immediately; OnLoad or OnError
// reports the outcome from another goroutine. ctx bounds every network read
// of the sound, including those made during playback.
func (e *Engine) Load(ctx context.Context, src string, handlers ports.SoundHandlers) (ports.Sound, error) {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return nil, domain.ErrNotInitialized
	}
	s := &Sound{
		engine:   e,
		src:      src,
		handlers: handlers,
		level:    1,
	}
	e.sounds[s] = struct{}{}
	e.mu.Unlock()

	go s.load(ctx)
	return s, nil
}

// Shutdown unloads every sound and closes the device.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return nil
	}
	sounds := make([]*Sound, 0, len(e.sounds))
	for s := range e.sounds {
		sounds = append(sounds, s)
	}
	e.initialized = false
	e.mu.Unlock()

	for _, s := range sounds {
		_ = s.Unload()
	}
	speaker.Clear()
	speaker.Close()
	e.logger.Info("audio device closed")
	return nil
}

func (e *Engine) forget(s *Sound) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sounds, s)
}

// Sound is one streamed disk file.
//
// Lock order: Sound.mu before the speaker lock. Speaker callbacks never take
// Sound.mu directly; they hand off to a goroutine.
type Sound struct {
	engine   *Engine
	src      string
	handlers ports.SoundHandlers

	mu       sync.Mutex
	file     *remote.File
	stream   beep.StreamSeekCloser
	format   beep.Format
	loaded   bool
	unloaded bool

	playID int
	sprite domain.Sprite
	start  int // first sample of the sprite
	end    int // sample after the last one of the sprite
	ctrl   *beep.Ctrl
	volume *effects.Volume
	level  float64
	ended  bool
}

func (s *Sound) load(ctx context.Context) {
	log := s.engine.logger.With(slog.String("src", s.src))

	stream, format, file, err := s.open(ctx)
	if err != nil {
		log.Warn("failed to load sound", slog.Any("error", err))
		if s.handlers.OnError != nil && !s.isUnloaded() {
			s.handlers.OnError(domain.NewAudioEngineError("load", s.src, "failed to open audio", err))
		}
		return
	}

	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		_ = stream.Close()
		_ = file.Close()
		return
	}
	s.file, s.stream, s.format, s.loaded = file, stream, format, true
	s.mu.Unlock()

	log.Debug("sound loaded",
		slog.Int("sample_rate", int(format.SampleRate)),
		slog.Duration("length", format.SampleRate.D(stream.Len())))
	if s.handlers.OnLoad != nil {
		s.handlers.OnLoad()
	}
}

func (s *Sound) open(ctx context.Context) (beep.StreamSeekCloser, beep.Format, *remote.File, error) {
	file, err := remote.Open(ctx, s.engine.client, s.src, remote.WithUserAgent(s.engine.cfg.UserAgent))
	if err != nil {
		return nil, beep.Format{}, nil, err
	}
	kind, err := audiofmt.Detect(file)
	if err != nil {
		_ = file.Close()
		return nil, beep.Format{}, nil, err
	}
	stream, format, err := audiofmt.Decode(kind, file)
	if err != nil {
		_ = file.Close()
		return nil, beep.Format{}, nil, err
	}
	return stream, format, file, nil
}

// Play starts a bounded play of sprite, replacing any play in progress.
func (s *Sound) Play(sprite domain.Sprite) (int, error) {
	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return 0, domain.ErrInvalidHandle
	}
	if !s.loaded {
		s.mu.Unlock()
		return 0, domain.ErrNotLoaded
	}

	rate := s.format.SampleRate
	start := min(rate.N(sprite.Start), s.stream.Len())
	end := min(rate.N(sprite.End()), s.stream.Len())

	speaker.Lock()
	s.detachLocked()
	speaker.Unlock()

	// Detached, the stream is out of the mix; seeking may hit the network
	if err := s.stream.Seek(start); err != nil {
		s.mu.Unlock()
		return 0, domain.NewAudioEngineError("play", s.src, "seek to sprite start failed", err)
	}

	s.playID++
	id := s.playID
	s.sprite, s.start, s.end, s.ended = sprite, start, end, false

	var out beep.Streamer = &spriteStreamer{stream: s.stream, end: end}
	if rate != s.engine.rate {
		out = beep.Resample(resampleQuality, rate, s.engine.rate, out)
	}
	s.ctrl = &beep.Ctrl{Streamer: beep.Seq(out, beep.Callback(func() { go s.finish(id) }))}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2}
	applyLevel(s.volume, s.level)
	speaker.Play(s.volume)
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
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = true
		speaker.Unlock()
	}
	return nil
}

// Resume continues a paused play and fires OnPlay with its id.
func (s *Sound) Resume() error {
	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return domain.ErrInvalidHandle
	}
	if s.ctrl == nil || s.ended {
		s.mu.Unlock()
		return nil
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	id := s.playID
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
	speaker.Lock()
	s.detachLocked()
	speaker.Unlock()
	return nil
}

// Unload stops the sound and releases its stream and connection.
func (s *Sound) Unload() error {
	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return domain.ErrInvalidHandle
	}
	s.unloaded = true

	speaker.Lock()
	s.detachLocked()
	speaker.Unlock()

	var errs []error
	if s.stream != nil {
		errs = append(errs, s.stream.Close())
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
	}
	s.mu.Unlock()

	s.engine.forget(s)
	return errors.Join(errs...)
}

// Seek moves within the current sprite, clamped to its bounds.
func (s *Sound) Seek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return domain.ErrInvalidHandle
	}
	if !s.loaded || s.ctrl == nil {
		return nil
	}

	target := min(max(s.start+s.format.SampleRate.N(pos), s.start), s.end)
	if err := seekPaused(speakerLock{}, s.ctrl, func() error { return s.stream.Seek(target) }); err != nil {
		return domain.NewAudioEngineError("seek", s.src, "seek failed", err)
	}
	return nil
}

// Position returns the position within the current sprite.
func (s *Sound) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || s.unloaded || s.ctrl == nil {
		return 0
	}
	speaker.Lock()
	p := s.stream.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(min(max(p-s.start, 0), s.end-s.start))
}

// Playing reports whether a sprite is audible.
func (s *Sound) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded || s.ctrl == nil || s.ended {
		return false
	}
	speaker.Lock()
	defer speaker.Unlock()
	return !s.ctrl.Paused
}

// SetVolume sets a linear volume in [0, 1]; it carries over to later plays.
func (s *Sound) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 || math.IsNaN(volume) {
		return domain.ErrInvalidVolume
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return domain.ErrInvalidHandle
	}
	s.level = volume
	if s.volume != nil {
		speaker.Lock()
		applyLevel(s.volume, volume)
		speaker.Unlock()
	}
	return nil
}

// Source returns the URL the sound was created for.
func (s *Sound) Source() string {
	return s.src
}

// finish runs off the speaker goroutine when a sprite streams out.
func (s *Sound) finish(id int) {
	s.mu.Lock()
	if s.unloaded || id != s.playID || s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	err := s.stream.Err()
	s.mu.Unlock()

	if err != nil {
		if s.handlers.OnError != nil {
			s.handlers.OnError(domain.NewAudioEngineError("stream", s.src, "decoding stopped", err))
		}
		return
	}
	if s.handlers.OnEnd != nil {
		s.handlers.OnEnd(id)
	}
}

// speakerLock adapts the process-wide speaker lock to sync.Locker.
type speakerLock struct{}

func (speakerLock) Lock()   { speaker.Lock() }
func (speakerLock) Unlock() { speaker.Unlock() }

// seekPaused runs seek with ctrl paused, holding lk only to flip the pause
// flag. A paused Ctrl never reads its streamer, so seek may block on the
// network without stalling the speaker.
func seekPaused(lk sync.Locker, ctrl *beep.Ctrl, seek func() error) error {
	lk.Lock()
	wasPaused := ctrl.Paused
	ctrl.Paused = true
	lk.Unlock()

	err := seek()

	lk.Lock()
	ctrl.Paused = wasPaused
	lk.Unlock()
	return err
}

// detachLocked silences the current play. Callers hold s.mu and the speaker lock.
func (s *Sound) detachLocked() {
	if s.ctrl != nil {
		s.ctrl.Streamer = nil
		s.ctrl = nil
		s.volume = nil
	}
	s.ended = true
}

func (s *Sound) isUnloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unloaded
}

// applyLevel maps a linear level onto the exponential Volume effect.
func applyLevel(v *effects.Volume, level float64) {
	v.Silent = level == 0
	if level > 0 {
		v.Volume = math.Log2(level)
	}
}

// spriteStreamer streams until the underlying position reaches end.
type spriteStreamer struct {
	stream beep.StreamSeeker
	end    int
}

func (b *spriteStreamer) Stream(samples [][2]float64) (int, bool) {
	left := b.end - b.stream.Position()
	if left <= 0 {
		return 0, false
	}
	if len(samples) > left {
		samples = samples[:left]
	}
	return b.stream.Stream(samples)
}

func (b *spriteStreamer) Err() error {
	return b.stream.Err()
}

var (
	_ ports.SoundEngine = (*Engine)(nil)
	_ ports.Sound       = (*Sound)(nil)
)
