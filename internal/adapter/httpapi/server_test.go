package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/logger"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
)

var _ ports.Player = (*fakePlayer)(nil)

type fakePlayer struct {
	mu      sync.Mutex
	calls   []string
	err     error
	index   int
	seek    float64
	volume  float64
	state   domain.PlayerState
	catalog *domain.Catalog
}

func (p *fakePlayer) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.err
}

func (p *fakePlayer) PlayTrack(index int) error {
	if p.catalog != nil {
		if _, ok := p.catalog.Track(index); !ok {
			return domain.ErrInvalidIndex
		}
	}
	p.mu.Lock()
	p.index = index
	p.state = domain.StatePlaying
	p.mu.Unlock()
	return p.record("play")
}

func (p *fakePlayer) TogglePlay() error   { return p.record("toggle") }
func (p *fakePlayer) PlayNext() error     { return p.record("next") }
func (p *fakePlayer) PlayPrevious() error { return p.record("previous") }

func (p *fakePlayer) Seek(fraction float64) error {
	p.mu.Lock()
	p.seek = fraction
	p.mu.Unlock()
	return p.record("seek")
}

func (p *fakePlayer) SetVolume(volume float64) error {
	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
	return p.record("volume")
}

func (p *fakePlayer) Dispose() error {
	p.mu.Lock()
	p.state = domain.StateIdle
	p.mu.Unlock()
	_ = p.record("dispose")
	return nil
}

func (p *fakePlayer) Snapshot() domain.SessionSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.SessionSnapshot{
		SessionID:    "session-1",
		State:        p.state,
		CurrentIndex: p.index,
		Volume:       p.volume,
	}
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fakeCatalogs struct {
	catalog *domain.Catalog
	err     error
}

func (c fakeCatalogs) Catalog() (*domain.Catalog, error) {
	return c.catalog, c.err
}

func testCatalog() *domain.Catalog {
	const url = "https://host/ID/disks/disk 1/disk1.mp3"
	tracks := []domain.Track{
		{DiskNum: "1", GlobalIndex: 0, Title: "Reel One", Duration: 90 * time.Second, DurationKnown: true, AudioURL: url},
		{DiskNum: "1", DiskTrackIndex: 1, GlobalIndex: 1, Title: "Reel Two", Offset: 90 * time.Second, AudioURL: url},
	}
	disks := []domain.Disk{{DiskNum: "1", AudioURL: url, TrackCount: 2}}
	return domain.NewCatalog(domain.CatalogInfo{
		ItemID:         "74465213",
		AlbumTitle:     "Field Recordings",
		AlbumPerformer: "Various",
	}, disks, tracks)
}

func newTestServer(t *testing.T, catalogs ports.CatalogSource, cfg Config) (*Server, *fakePlayer, ports.EventBus) {
	t.Helper()
	bus := eventbus.NewSyncEventBus()
	t.Cleanup(func() { _ = bus.Close() })

	c, _ := catalogs.Catalog()
	player := &fakePlayer{volume: 1, catalog: c}
	return NewServer(logger.NewTestLogger(), player, catalogs, bus, cfg), player, bus
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCatalog(t *testing.T) {
	s, _, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})

	rec := do(t, s, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[catalogDTO](t, rec)
	assert.Equal(t, "74465213", got.ItemID)
	assert.Equal(t, "Field Recordings", got.AlbumTitle)
	require.Len(t, got.Tracks, 2)
	require.NotNil(t, got.Tracks[0].DurationSeconds)
	assert.InDelta(t, 90, *got.Tracks[0].DurationSeconds, 1e-9)
	assert.Equal(t, "1:30", got.Tracks[0].DurationText)
	assert.Nil(t, got.Tracks[1].DurationSeconds, "unknown duration is null")
	require.Len(t, got.Disks, 1)
	assert.Equal(t, 2, got.Disks[0].TrackCount)
}

func TestNoCatalogAnswersWithNotice(t *testing.T) {
	s, player, _ := newTestServer(t, fakeCatalogs{err: domain.ErrNoCatalog}, Config{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/catalog"},
		{http.MethodPost, "/api/tracks/0/play"},
		{http.MethodPost, "/api/transport/toggle"},
	} {
		rec := do(t, s, tc.method, tc.path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)

		got := decodeBody[noticeDTO](t, rec)
		assert.Equal(t, domain.DefaultAccessNotice.Message, got.Notice.Text)
		assert.Equal(t, domain.DefaultAccessNotice.LinkURL, got.Notice.LinkURL)
	}
	assert.Empty(t, player.Calls())

	rec := do(t, s, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusOK, rec.Code, "session stays readable without a catalog")
}

func TestPlayTrack(t *testing.T) {
	s, player, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})

	rec := do(t, s, http.MethodPost, "/api/tracks/1/play", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[sessionDTO](t, rec)
	assert.Equal(t, 1, got.CurrentIndex)
	assert.Equal(t, "playing", got.State)
	assert.Equal(t, []string{"play"}, player.Calls())
}

func TestPlayTrackErrors(t *testing.T) {
	s, _, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})

	rec := do(t, s, http.MethodPost, "/api/tracks/7/play", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/tracks/first/play", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"closed", domain.ErrSessionClosed, http.StatusServiceUnavailable},
		{"playback", &domain.PlaybackError{URL: "https://host/disk1.mp3", Err: assert.AnError}, http.StatusBadGateway},
		{"unexpected", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, player, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})
			player.err = tt.err
			rec := do(t, s, http.MethodPost, "/api/transport/next", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestTransport(t *testing.T) {
	s, player, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})

	for _, action := range []string{"toggle", "next", "previous"} {
		rec := do(t, s, http.MethodPost, "/api/transport/"+action, "")
		assert.Equal(t, http.StatusOK, rec.Code, action)
	}
	assert.Equal(t, []string{"toggle", "next", "previous"}, player.Calls())

	rec := do(t, s, http.MethodPost, "/api/transport/rewind", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSeekAndVolume(t *testing.T) {
	s, player, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})

	rec := do(t, s, http.MethodPost, "/api/seek", `{"fraction":0.25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.25, player.seek, 1e-9)

	rec = do(t, s, http.MethodPost, "/api/volume", `{"level":0}`)
	require.Equal(t, http.StatusOK, rec.Code, "zero is a valid level")
	assert.Zero(t, decodeBody[sessionDTO](t, rec).Volume)
}

func TestSeekValidation(t *testing.T) {
	s, player, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing", `{}`, "fraction"},
		{"too large", `{"fraction":1.5}`, "fraction"},
		{"negative", `{"fraction":-0.1}`, "fraction"},
		{"unknown field", `{"fraction":0.5,"speed":2}`, ""},
		{"not json", `half`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/seek", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			if tt.field != "" {
				got := decodeBody[errorDTO](t, rec)
				assert.Contains(t, got.Fields, tt.field)
			}
		})
	}
	assert.Empty(t, player.Calls())
}

func TestDispose(t *testing.T) {
	s, player, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{})
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/tracks/0/play", "").Code)

	rec := do(t, s, http.MethodDelete, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", decodeBody[sessionDTO](t, rec).State)
	assert.Equal(t, []string{"play", "dispose"}, player.Calls())
}

func TestRateLimit(t *testing.T) {
	s, _, _ := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{RateLimit: 1, RateBurst: 2})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/transport/next", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/transport/next", "").Code)

	rec := do(t, s, http.MethodPost, "/api/transport/next", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/session", "").Code, "reads are not limited")
}

func TestEventStream(t *testing.T) {
	s, _, bus := newTestServer(t, fakeCatalogs{catalog: testCatalog()}, Config{Heartbeat: time.Hour})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := make(chan [2]string, 8)
	go func() {
		defer close(frames)
		sc := bufio.NewScanner(resp.Body)
		var name string
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				frames <- [2]string{name, strings.TrimPrefix(line, "data: ")}
			}
		}
	}()

	first := <-frames
	assert.Equal(t, "connected", first[0])
	assert.Contains(t, first[1], `"session_id":"session-1"`)

	// The subscription is registered before "connected" is written.
	bus.Publish(domain.NewVolumeChangedEvent(0.4))

	select {
	case frame := <-frames:
		assert.Equal(t, string(domain.EventVolumeChanged), frame[0])
		var dto eventDTO
		require.NoError(t, json.Unmarshal([]byte(frame[1]), &dto))
		assert.Equal(t, map[string]any{"volume": 0.4}, dto.Data)
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	cancel()
	for range frames {
	}
}
