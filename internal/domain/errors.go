// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrInvalidIndex is returned when a track index is outside the playlist.
	ErrInvalidIndex = errors.New("invalid track index")

	// ErrNoCatalog is returned when an operation needs a catalog that has not been loaded.
	ErrNoCatalog = errors.New("no catalog loaded")

	// ErrSessionClosed is returned when a command is sent to a shut-down session.
	ErrSessionClosed = errors.New("player session closed")

	// ErrInvalidHandle is returned when an unloaded sound is used.
	ErrInvalidHandle = errors.New("invalid sound handle")

	// ErrNotLoaded is returned when a sound is played before its audio is ready.
	ErrNotLoaded = errors.New("sound not loaded")

	// ErrInvalidVolume is returned when the volume is out of valid range (0.0-1.0).
	ErrInvalidVolume = errors.New("invalid volume: must be between 0.0 and 1.0")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrUnsupportedFormat is returned when an audio container is not recognised.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrTooLarge is returned when a remote resource exceeds a download limit.
	ErrTooLarge = errors.New("resource exceeds size limit")
)

// FetchError is returned when a remote resource cannot be retrieved.
type FetchError struct {
	URL        string
	StatusCode int // HTTP status, 0 for transport failures
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(url string, status int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: status,
		Err:        err,
	}
}

// ParseError is returned when a manifest is not valid JSON or has the wrong shape.
type ParseError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(source string, err error) *ParseError {
	return &ParseError{
		Source: source,
		Err:    err,
	}
}

// PlaybackError is reported when a track's audio cannot be loaded or played.
type PlaybackError struct {
	URL   string
	Index int
	Err   error
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback of track %d (%s) failed: %v", e.Index, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// NewPlaybackError creates a new PlaybackError.
func NewPlaybackError(url string, index int, err error) *PlaybackError {
	return &PlaybackError{
		URL:   url,
		Index: index,
		Err:   err,
	}
}

// AudioEngineError represents an error from the audio engine.
// This wraps low-level audio library errors with additional context.
type AudioEngineError struct {
	Op      string // Operation that failed (e.g., "load", "play", "seek")
	Source  string // Audio URL (if applicable)
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AudioEngineError) Error() string {
	msg := fmt.Sprintf("audio engine %s failed: %s", e.Op, e.Message)
	if e.Source != "" {
		msg = fmt.Sprintf("audio engine %s failed for '%s': %s", e.Op, e.Source, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *AudioEngineError) Unwrap() error {
	return e.Err
}

// NewAudioEngineError creates a new AudioEngineError.
func NewAudioEngineError(op, source, message string, err error) *AudioEngineError {
	return &AudioEngineError{
		Op:      op,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "MetadataService", "PlayerSession")
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
