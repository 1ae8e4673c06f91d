// Package remote reads HTTP resources as seekable files using range requests.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

// File is an io.ReadSeekCloser over an HTTP resource.
//
// Reads stream from a single response body; a Seek away from the current
// position drops that body and the next Read issues a new range request.
// Servers that ignore Range are tolerated by discarding the skipped prefix.
//
// Thread-safety: File is not safe for concurrent use.
type File struct {
	ctx       context.Context
	client    *http.Client
	url       string
	userAgent string

	size    int64 // -1 when unknown
	off     int64
	body    io.ReadCloser
	bodyOff int64
	closed  bool
}

// Option configures a File.
type Option func(*File)

// WithUserAgent sets the User-Agent of every request.
func WithUserAgent(ua string) Option {
	return func(f *File) { f.userAgent = ua }
}

// Open issues the first request for url and returns a file positioned at 0.
// The context bounds every request the file makes.
func Open(ctx context.Context, client *http.Client, url string, opts ...Option) (*File, error) {
	if client == nil {
		client = http.DefaultClient
	}
	f := &File{ctx: ctx, client: client, url: url, size: -1}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.open(0); err != nil {
		return nil, err
	}
	return f, nil
}

// URL returns the resource location.
func (f *File) URL() string {
	return f.url
}

// Size returns the resource length in bytes, or -1 when the server did not say.
func (f *File) Size() int64 {
	return f.size
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, domain.ErrInvalidHandle
	}
	if len(p) == 0 {
		return 0, nil
	}
	if f.size >= 0 && f.off >= f.size {
		return 0, io.EOF
	}
	if f.body == nil || f.bodyOff != f.off {
		if err := f.open(f.off); err != nil {
			return 0, err
		}
		if f.body == nil {
			return 0, io.EOF
		}
	}

	n, err := f.body.Read(p)
	f.off += int64(n)
	f.bodyOff = f.off
	if errors.Is(err, io.EOF) {
		f.dropBody()
		if f.size < 0 {
			f.size = f.off
		}
	}
	return n, err
}

// Seek implements io.Seeker. Seeking relative to the end needs a known size.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, domain.ErrInvalidHandle
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.off + offset
	case io.SeekEnd:
		if f.size < 0 {
			return 0, fmt.Errorf("seek from end of %s: size unknown", f.url)
		}
		abs = f.size + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("seek: negative position %d", abs)
	}
	f.off = abs
	return abs, nil
}

// Close releases the open response body.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.dropBody()
	return nil
}

func (f *File) open(off int64) error {
	f.dropBody()

	req, err := http.NewRequestWithContext(f.ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return domain.NewFetchError(f.url, 0, err)
	}
	req.Header.Set("Range", "bytes="+strconv.FormatInt(off, 10)+"-")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.NewFetchError(f.url, 0, err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		if total, ok := parseContentRange(resp.Header.Get("Content-Range")); ok {
			f.size = total
		}
	case http.StatusOK:
		if resp.ContentLength >= 0 {
			f.size = resp.ContentLength
		}
		if off > 0 {
			if _, err := io.CopyN(io.Discard, resp.Body, off); err != nil {
				resp.Body.Close()
				if errors.Is(err, io.EOF) {
					return nil
				}
				return domain.NewFetchError(f.url, resp.StatusCode, err)
			}
		}
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		if total, ok := parseContentRange(resp.Header.Get("Content-Range")); ok {
			f.size = total
		}
		return nil
	default:
		resp.Body.Close()
		return domain.NewFetchError(f.url, resp.StatusCode, fmt.Errorf("status %s", resp.Status))
	}

	f.body = resp.Body
	f.bodyOff = off
	return nil
}

func (f *File) dropBody() {
	if f.body != nil {
		_ = f.body.Close()
		f.body = nil
	}
}

// parseContentRange extracts the complete length from "bytes a-b/total" or
// "bytes */total".
func parseContentRange(v string) (int64, bool) {
	_, total, ok := strings.Cut(v, "/")
	if !ok || total == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

var _ io.ReadSeekCloser = (*File)(nil)
