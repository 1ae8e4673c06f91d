package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/logger"
	"github.com/tejashwikalptaru/archiveplayer/internal/resolver"
	"github.com/tejashwikalptaru/archiveplayer/internal/testutil"
)

const itemManifest = `{
  "use": "access is onsite only",
  "scans": {"7": {"files": ["front.jpg", "notes.pdf"], "width": 1200}},
  "disks": [
    {"disk": 1, "file": "one.mp3", "cue": {"TITLE": "Album", "PERFORMER": "Singer", "tracks": [
      {"TITLE": "A", "INDEX": "00:00:00"},
      {"TITLE": "B", "INDEX": "02:00:00"}
    ]}},
    {"disk": 2, "file": "two.mp3", "cue": {"tracks": [
      {"TITLE": "C", "INDEX": "00:00:00"}
    ]}},
    {"disk": 3, "cue": {"tracks": [{"TITLE": "D", "INDEX": "00:00:00"}]}}
  ]
}`

// fakeProbe answers from a table keyed by URL.
type fakeProbe struct {
	mu        sync.Mutex
	durations map[string]time.Duration
	block     bool
	calls     []string
}

func (p *fakeProbe) Probe(ctx context.Context, url string) (time.Duration, error) {
	p.mu.Lock()
	p.calls = append(p.calls, url)
	d, ok := p.durations[url]
	block := p.block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if !ok {
		return 0, errors.New("unreachable")
	}
	return d, nil
}

func (p *fakeProbe) called() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func serveManifest(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ID/metadata.json" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestMetadata(t *testing.T, srv *httptest.Server, probe *fakeProbe) (*MetadataService, *eventLog) {
	t.Helper()
	bus := eventbus.NewSyncEventBus()
	log := &eventLog{}
	bus.SubscribeAll(log.record)

	svc := NewMetadataService(
		logger.NewTestLogger(),
		srv.Client(),
		resolver.New(srv.URL+"/", "ID"),
		probe,
		bus,
		MetadataConfig{ItemID: "ID", ProbeTimeout: time.Second},
	)
	t.Cleanup(func() {
		_ = svc.Shutdown()
		_ = bus.Close()
	})
	return svc, log
}

func TestMetadataLoadBuildsCatalog(t *testing.T) {
	srv := serveManifest(t, http.StatusOK, itemManifest)
	probe := &fakeProbe{durations: map[string]time.Duration{}}
	svc, log := newTestMetadata(t, srv, probe)

	catalog, err := svc.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 4, catalog.Len())
	assert.Equal(t, "Album", catalog.AlbumTitle)
	assert.Equal(t, srv.URL+"/ID/scans/7/notes.pdf", catalog.PDFURL)
	assert.Equal(t, srv.URL+"/ID/scans/7/front.jpg", catalog.CoverURL)
	assert.Equal(t, domain.AccessOnsiteOnly, catalog.AccessRestriction)

	loaded := log.ofType(domain.EventCatalogLoaded)
	require.Len(t, loaded, 1)
	assert.Same(t, catalog, loaded[0].(domain.CatalogLoadedEvent).Catalog)

	got, err := svc.Catalog()
	require.NoError(t, err)
	assert.Same(t, catalog, got)
}

func TestMetadataProbesLastTrackOfEachDisk(t *testing.T) {
	srv := serveManifest(t, http.StatusOK, itemManifest)
	one := srv.URL + "/ID/disks/disk 1/one.mp3"
	two := srv.URL + "/ID/disks/disk 2/two.mp3"
	probe := &fakeProbe{durations: map[string]time.Duration{one: 5 * time.Minute}}
	svc, log := newTestMetadata(t, srv, probe)

	catalog, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Shutdown())

	assert.ElementsMatch(t, []string{one, two}, probe.called(), "disk without audio is not probed")

	resolved := log.ofType(domain.EventTrackDurationResolved)
	require.Len(t, resolved, 1)
	track := resolved[0].(domain.TrackDurationResolvedEvent).Track
	assert.Equal(t, 1, track.GlobalIndex)
	assert.Equal(t, 3*time.Minute, track.Duration)

	last, _ := catalog.Track(1)
	assert.True(t, last.DurationKnown)

	unresolved, _ := catalog.Track(2)
	assert.False(t, unresolved.DurationKnown, "failed probe leaves the duration unknown")
}

func TestMetadataLoadFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   "<Error>AccessDenied</Error>",
			check: func(t *testing.T, err error) {
				var ferr *domain.FetchError
				require.ErrorAs(t, err, &ferr)
				assert.Equal(t, http.StatusForbidden, ferr.StatusCode)
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   "<html></html>",
			check: func(t *testing.T, err error) {
				var perr *domain.ParseError
				require.ErrorAs(t, err, &perr)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveManifest(t, tt.status, tt.body)
			svc, log := newTestMetadata(t, srv, &fakeProbe{})

			catalog, err := svc.Load(context.Background())
			assert.Nil(t, catalog)
			tt.check(t, err)

			failed := log.ofType(domain.EventCatalogFailed)
			require.Len(t, failed, 1)
			assert.Equal(t, "ID", failed[0].(domain.CatalogFailedEvent).ItemID)

			_, lastErr := svc.Catalog()
			assert.Equal(t, err, lastErr)
		})
	}
}

func TestMetadataCatalogBeforeLoad(t *testing.T) {
	srv := serveManifest(t, http.StatusOK, itemManifest)
	svc, _ := newTestMetadata(t, srv, nil)

	c, err := svc.Catalog()
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrNoCatalog)
}

func TestMetadataShutdownCancelsProbes(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreHTTPKeepAlive()...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(itemManifest))
	}))
	defer srv.Close()

	bus := eventbus.NewSyncEventBus()
	defer bus.Close()
	probe := &fakeProbe{block: true}
	svc := NewMetadataService(logger.NewTestLogger(), srv.Client(), resolver.New(srv.URL+"/", "ID"),
		probe, bus, MetadataConfig{ItemID: "ID", ProbeTimeout: time.Hour})

	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(probe.called()) == 2 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		_ = svc.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not cancel blocked probes")
	}
	srv.Client().CloseIdleConnections()
}

func TestMetadataCancelledLoadPublishesNothing(t *testing.T) {
	srv := serveManifest(t, http.StatusOK, itemManifest)
	svc, log := newTestMetadata(t, srv, &fakeProbe{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log.ofType(domain.EventCatalogFailed), "an abandoned load is not an access failure")

	_, err = svc.Catalog()
	assert.ErrorIs(t, err, context.Canceled)
}
