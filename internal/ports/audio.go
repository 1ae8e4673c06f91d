// Package ports define interfaces for dependency inversion.
// These interfaces keep the player core independent of audio libraries, HTTP
// clients and UI toolkits.
package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

// SoundEngine creates sounds backed by remote audio files.
// This abstracts the audio library and allows for testing with mocks.
//
// Implementations must be thread-safe.
type SoundEngine interface {
	// Load starts acquiring the audio at src and returns its sound at once.
	// Completion is reported through handlers.OnLoad or handlers.OnError,
	// possibly before Load returns. ctx bounds the acquisition.
	//
	// Returns an error only when the sound cannot be created at all.
	Load(ctx context.Context, src string, handlers SoundHandlers) (Sound, error)

	// Shutdown releases all engine resources.
	Shutdown() error
}

// SoundHandlers receive a sound's lifecycle notifications. Any field may be nil.
//
// Handlers may be invoked on any goroutine, including synchronously from
// inside Load, Play or Resume, and must not block.
type SoundHandlers struct {
	// OnLoad fires once the audio is ready to play.
	OnLoad func()

	// OnPlay fires when a play id starts or resumes producing sound.
	OnPlay func(id int)

	// OnEnd fires when a play id reaches the end of its sprite.
	OnEnd func(id int)

	// OnError fires when the audio cannot be loaded or decoded.
	OnError func(err error)
}

// Sound is one loaded audio resource. At most one sprite plays at a time.
type Sound interface {
	// Play starts a bounded play of sprite and returns its play id.
	// Any sprite currently playing on this sound is stopped first.
	Play(sprite domain.Sprite) (int, error)

	// Pause pauses the current play, keeping its position.
	Pause() error

	// Resume continues a paused play. OnPlay fires with the same play id.
	Resume() error

	// Stop ends the current play without firing OnEnd.
	Stop() error

	// Unload stops playback and releases the audio. The sound is unusable afterwards.
	Unload() error

	// Seek moves within the current sprite; pos is relative to the sprite start.
	Seek(pos time.Duration) error

	// Position returns the position within the current sprite.
	Position() time.Duration

	// Playing reports whether a sprite is currently audible.
	Playing() bool

	// SetVolume sets the linear volume (0.0 to 1.0).
	SetVolume(volume float64) error

	// Source returns the URL the sound was loaded from.
	Source() string
}

// DurationProbe learns the total length of a remote audio file.
type DurationProbe interface {
	// Probe returns the duration of the audio at url.
	Probe(ctx context.Context, url string) (time.Duration, error)
}
