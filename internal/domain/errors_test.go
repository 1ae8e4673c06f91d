package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAudioEngineErrorIncludesCause(t *testing.T) {
	cause := errors.New("unexpected status 404")
	err := NewAudioEngineError("load", "https://host/disk1.mp3", "failed to open audio", cause)

	assert.Equal(t, "audio engine load failed for 'https://host/disk1.mp3': failed to open audio: unexpected status 404", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewAudioEngineError("play", "", "no device", nil)
	assert.Equal(t, "audio engine play failed: no device", bare.Error())
}

func TestPlaybackErrorCarriesEngineCause(t *testing.T) {
	engine := NewAudioEngineError("load", "https://host/disk1.mp3", "failed to open audio", errors.New("corrupt frame"))
	err := &PlaybackError{URL: "https://host/disk1.mp3", Err: engine}

	assert.Contains(t, err.Error(), "corrupt frame")
}
