package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
)

var payload = []byte(strings.Repeat("0123456789", 100))

// rangeServer serves payload with Range support and counts requests.
func rangeServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.ServeContent(w, r, "disk.wav", time.Time{}, bytes.NewReader(payload))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestReadAll(t *testing.T) {
	srv, hits := rangeServer(t)

	f, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer f.Close()

	assert.EqualValues(t, len(payload), f.Size())
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.EqualValues(t, 1, hits.Load(), "sequential reads share one response")
}

func TestSeekIssuesRangeRequest(t *testing.T) {
	srv, hits := rangeServer(t)

	f, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer f.Close()

	pos, err := f.Seek(-5, io.SeekEnd)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload)-5, pos)

	buf := make([]byte, 10)
	n, err := io.ReadFull(f, buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "56789", string(buf[:n]))
	assert.EqualValues(t, 2, hits.Load())

	_, err = f.Seek(12, io.SeekStart)
	require.NoError(t, err)
	n, err = f.Read(buf[:3])
	require.NoError(t, err)
	assert.Equal(t, "234", string(buf[:n]))

	_, err = f.Seek(1, io.SeekCurrent)
	require.NoError(t, err)
	n, err = f.Read(buf[:2])
	require.NoError(t, err)
	assert.Equal(t, "67", string(buf[:n]))
}

func TestSeekPastEnd(t *testing.T) {
	srv, _ := rangeServer(t)

	f, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Seek(int64(len(payload))+10, io.SeekStart)
	require.NoError(t, err)
	_, err = f.Read(make([]byte, 4))
	assert.ErrorIs(t, err, io.EOF)

	_, err = f.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

func TestServerWithoutRangeSupport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Seek(990, io.SeekStart)
	require.NoError(t, err)
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))
}

func TestOpenFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "archiveplayer-test", r.UserAgent())
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), srv.Client(), srv.URL, WithUserAgent("archiveplayer-test"))
	var ferr *domain.FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusForbidden, ferr.StatusCode)
}

func TestClosedFile(t *testing.T) {
	srv, _ := rangeServer(t)

	f, err := Open(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidHandle)
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"bytes 0-99/1000", 1000, true},
		{"bytes */42", 42, true},
		{"bytes 0-99/*", 0, false},
		{"", 0, false},
		{"bytes 0-1/x", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseContentRange(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
