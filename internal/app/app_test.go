package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/archiveplayer/internal/config"
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/logger"
)

const testManifest = `{
  "scans": {"30": {"files": ["cover.jpg"]}},
  "disks": [
    {"disk": "1", "file": "disk1.mp3", "cue": {"TITLE": "Field Recordings", "PERFORMER": "Various", "tracks": [
      {"TITLE": "Waulking Song", "INDEX": "00:00:00"},
      {"TITLE": "Puirt a Beul", "INDEX": "03:10:00"}
    ]}}
  ]
}`

func newTestApp(t *testing.T) (*Application, *httptest.Server) {
	t.Helper()
	return newTestAppWith(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/74465213/metadata.json" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(testManifest))
			return
		}
		http.NotFound(w, r)
	}))
}

func newTestAppWith(t *testing.T, handler http.Handler) (*Application, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Source.BaseURL = srv.URL + "/"
	cfg.Source.ItemID = "74465213"

	app, err := NewApplication(Options{
		Config:       &cfg,
		UseMockAudio: true,
		Logger:       logger.NewTestLogger(),
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })
	return app, srv
}

func TestNewApplication(t *testing.T) {
	app, _ := newTestApp(t)

	assert.NotNil(t, app.Session())
	assert.NotNil(t, app.EventBus())
	assert.Equal(t, "74465213", app.ItemID())

	_, err := app.Catalog()
	assert.ErrorIs(t, err, domain.ErrNoCatalog)
}

func TestLoadItem(t *testing.T) {
	app, _ := newTestApp(t)

	catalog, err := app.LoadItem(context.Background(), "74465213")
	require.NoError(t, err)
	assert.Equal(t, "Field Recordings", catalog.AlbumTitle)
	assert.Equal(t, 2, catalog.Len())
	assert.True(t, strings.HasSuffix(catalog.CoverURL, "/74465213/scans/30/cover.jpg"))

	got, err := app.Catalog()
	require.NoError(t, err)
	assert.Same(t, catalog, got)

	snap := app.Session().Snapshot()
	assert.True(t, snap.HasTrack)
	assert.Equal(t, "Waulking Song", snap.Track.Title)

	require.NoError(t, app.Session().PlayTrack(1))
	assert.Equal(t, 1, app.Session().Snapshot().CurrentIndex)
}

func TestLoadItemFailureEmptiesSession(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := app.LoadItem(context.Background(), "74465213")
	require.NoError(t, err)

	_, err = app.LoadItem(context.Background(), "00000000")
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, "00000000", app.ItemID())

	_, err = app.Catalog()
	assert.Error(t, err)
	assert.False(t, app.Session().Snapshot().HasTrack)
	assert.NoError(t, app.Session().PlayTrack(0), "an empty session ignores commands")
}

func TestLoadItemSupersededByNewerItem(t *testing.T) {
	const secondManifest = `{"disks": [{"file": "b.mp3", "cue": {"TITLE": "Second Album", "tracks": [{"TITLE": "Only", "INDEX": "00:00:00"}]}}]}`

	requested := make(chan struct{})
	release := make(chan struct{})
	app, _ := newTestAppWith(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/74465213/metadata.json":
			close(requested)
			<-release
			_, _ = w.Write([]byte(testManifest))
		case "/99990001/metadata.json":
			_, _ = w.Write([]byte(secondManifest))
		default:
			http.NotFound(w, r)
		}
	}))

	firstErr := make(chan error, 1)
	go func() {
		_, err := app.LoadItem(context.Background(), "74465213")
		firstErr <- err
	}()
	<-requested

	second, err := app.LoadItem(context.Background(), "99990001")
	require.NoError(t, err)
	assert.Equal(t, "Second Album", second.AlbumTitle)

	close(release)
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)

	got, err := app.Catalog()
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, "99990001", app.ItemID())

	snap := app.Session().Snapshot()
	require.True(t, snap.HasTrack)
	assert.Equal(t, "Only", snap.Track.Title, "the session keeps the newer item")
}

func TestLoadItemRequiresID(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := app.LoadItem(context.Background(), "")
	assert.Error(t, err)
}

func TestAPIServer(t *testing.T) {
	app, _ := newTestApp(t)
	handler := app.APIServer().Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := app.LoadItem(context.Background(), "74465213")
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"album_title":"Field Recordings"`)
}

func TestWaitForDurations(t *testing.T) {
	app, _ := newTestApp(t)
	assert.ErrorIs(t, app.WaitForDurations(context.Background()), domain.ErrNoCatalog)

	catalog, err := app.LoadItem(context.Background(), "74465213")
	require.NoError(t, err)
	require.NoError(t, app.WaitForDurations(context.Background()))

	last, _ := catalog.Track(1)
	assert.False(t, last.DurationKnown, "the audio 404s, so the probe cannot resolve it")
}

func TestShutdownIsIdempotent(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := app.LoadItem(context.Background(), "74465213")
	require.NoError(t, err)

	assert.NoError(t, app.Shutdown())
	assert.NoError(t, app.Shutdown())
	assert.NoError(t, app.Session().Dispose())
}

func TestVersionInfo(t *testing.T) {
	v := GetVersionInfo()
	assert.Equal(t, Version, v.Display())
	assert.Contains(t, v.FullString(), AppName)

	v.GitTag = "v1.2.0"
	assert.Equal(t, "v1.2.0", v.Display())
}
