// Package probe measures the duration of remote audio resources.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gopxl/beep/v2"
	"github.com/simonhull/audiometa"

	"github.com/tejashwikalptaru/archiveplayer/internal/audiofmt"
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
	"github.com/tejashwikalptaru/archiveplayer/internal/remote"
)

// DefaultMaxDownload caps how much of a compressed file is fetched to scan it.
const DefaultMaxDownload = 512 << 20

// Config tunes an HTTPProbe.
type Config struct {
	UserAgent   string
	MaxDownload int64
	TempDir     string
}

// HTTPProbe reads durations over HTTP range requests.
//
// WAV, FLAC and Ogg Vorbis durations come from their headers, so only the
// first few kilobytes are transferred. MP3 and MPEG-4 audio need a frame scan:
// the file is downloaded to a temporary file, bounded by MaxDownload, and
// measured with audiometa.
type HTTPProbe struct {
	logger *slog.Logger
	client *http.Client
	cfg    Config
}

// NewHTTPProbe creates a probe. A nil client means http.DefaultClient.
func NewHTTPProbe(logger *slog.Logger, client *http.Client, cfg Config) *HTTPProbe {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.MaxDownload <= 0 {
		cfg.MaxDownload = DefaultMaxDownload
	}
	return &HTTPProbe{
		logger: logger.With(slog.String("component", "probe")),
		client: client,
		cfg:    cfg,
	}
}

// Probe returns the total playing time of the audio at url.
func (p *HTTPProbe) Probe(ctx context.Context, url string) (time.Duration, error) {
	f, err := remote.Open(ctx, p.client, url, remote.WithUserAgent(p.cfg.UserAgent))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	kind, err := audiofmt.Detect(f)
	if err != nil {
		return 0, fmt.Errorf("identify %s: %w", url, err)
	}

	switch kind {
	case audiofmt.WAV, audiofmt.FLAC, audiofmt.Vorbis:
		return decoded(audiofmt.Decode(kind, f))
	case audiofmt.MP3, audiofmt.MPEG4:
		return p.scan(ctx, f, kind.Ext())
	}
	return 0, fmt.Errorf("%s: %w", url, domain.ErrUnsupportedFormat)
}

// decoded turns a beep decoder result into a duration.
func decoded(s beep.StreamSeekCloser, format beep.Format, err error) (time.Duration, error) {
	if err != nil {
		return 0, fmt.Errorf("decode header: %w", err)
	}
	defer s.Close()
	if s.Len() <= 0 {
		return 0, fmt.Errorf("stream reports no length: %w", domain.ErrUnsupportedFormat)
	}
	return format.SampleRate.D(s.Len()), nil
}

// scan downloads f to a temporary file and measures it there.
func (p *HTTPProbe) scan(ctx context.Context, f *remote.File, ext string) (time.Duration, error) {
	if size := f.Size(); size > p.cfg.MaxDownload {
		return 0, fmt.Errorf("%s (%s): %w", f.URL(), humanize.IBytes(uint64(size)), domain.ErrTooLarge)
	}

	tmp, err := os.CreateTemp(p.cfg.TempDir, "archiveplayer-probe-*"+ext)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	start := time.Now()
	n, err := io.Copy(tmp, io.LimitReader(f, p.cfg.MaxDownload+1))
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", f.URL(), err)
	}
	if n > p.cfg.MaxDownload {
		return 0, fmt.Errorf("%s exceeds %s: %w", f.URL(), humanize.IBytes(uint64(p.cfg.MaxDownload)), domain.ErrTooLarge)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	p.logger.Debug("downloaded for duration scan",
		slog.String("url", f.URL()),
		slog.String("size", humanize.IBytes(uint64(n))),
		slog.Duration("took", time.Since(start)))

	file, err := audiometa.OpenContext(ctx, tmp.Name())
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", f.URL(), err)
	}
	defer file.Close()

	if file.Audio.Duration <= 0 {
		return 0, fmt.Errorf("scan %s: no duration: %w", f.URL(), domain.ErrUnsupportedFormat)
	}
	return file.Audio.Duration, nil
}

var _ ports.DurationProbe = (*HTTPProbe)(nil)
