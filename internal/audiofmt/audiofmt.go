// Package audiofmt identifies audio containers and opens beep decoders for them.
package audiofmt

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

// Kind is an audio container type.
type Kind int

const (
	Unknown Kind = iota
	WAV
	FLAC
	Vorbis
	MP3
	MPEG4
)

func (k Kind) String() string {
	switch k {
	case WAV:
		return "wav"
	case FLAC:
		return "flac"
	case Vorbis:
		return "ogg"
	case MP3:
		return "mp3"
	case MPEG4:
		return "m4a"
	default:
		return "unknown"
	}
}

// Ext returns the usual file extension, with the dot.
func (k Kind) Ext() string {
	if k == Unknown {
		return ""
	}
	return "." + k.String()
}

// Detect sniffs the container of rs and rewinds it to the start.
// RIFF/WAVE and FLAC are recognised by their magic; the rest is left to
// tag.Identify.
func Detect(rs io.ReadSeeker) (Kind, error) {
	head := make([]byte, 12)
	n, err := io.ReadFull(rs, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, err
	}
	head = head[:n]
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Unknown, err
	}

	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return WAV, nil
	case bytes.HasPrefix(head, []byte("fLaC")):
		return FLAC, nil
	}

	_, fileType, err := tag.Identify(rs)
	if _, serr := rs.Seek(0, io.SeekStart); serr != nil {
		return Unknown, serr
	}
	if err != nil {
		return Unknown, fmt.Errorf("%w: %v", domain.ErrUnsupportedFormat, err)
	}

	switch fileType {
	case tag.OGG:
		return Vorbis, nil
	case tag.MP3:
		return MP3, nil
	case tag.M4A, tag.M4B, tag.ALAC:
		return MPEG4, nil
	}
	return Unknown, fmt.Errorf("container %q: %w", fileType, domain.ErrUnsupportedFormat)
}

// Decode opens a streaming decoder for kind. MPEG-4 audio has no beep decoder.
func Decode(kind Kind, rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch kind {
	case WAV:
		return wav.Decode(rc)
	case FLAC:
		return flac.Decode(rc)
	case Vorbis:
		return vorbis.Decode(rc)
	case MP3:
		return mp3.Decode(rc)
	}
	return nil, beep.Format{}, fmt.Errorf("decode %s: %w", kind, domain.ErrUnsupportedFormat)
}
