package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/manifest"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
	"github.com/tejashwikalptaru/archiveplayer/internal/resolver"
)

// maxManifestSize bounds how much of metadata.json is read.
const maxManifestSize = 8 << 20

// MetadataConfig tunes a MetadataService.
type MetadataConfig struct {
	ItemID       string
	UserAgent    string
	ProbeTimeout time.Duration
}

// MetadataService resolves an item's manifest into a catalog.
//
// After each successful load it probes the audio of every disk in the
// background to learn the duration of the disk's last track. Probes never
// delay Load; they are cancelled by Shutdown.
type MetadataService struct {
	logger   *slog.Logger
	client   *http.Client
	resolver *resolver.Resolver
	probe    ports.DurationProbe
	bus      ports.EventBus
	cfg      MetadataConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	catalog *domain.Catalog
	lastErr error
	closed  bool
}

// NewMetadataService creates a metadata service. probe may be nil, in which
// case last-track durations stay unknown.
func NewMetadataService(
	logger *slog.Logger,
	client *http.Client,
	res *resolver.Resolver,
	probe ports.DurationProbe,
	bus ports.EventBus,
	cfg MetadataConfig,
) *MetadataService {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MetadataService{
		logger:   logger.With(slog.String("service", "metadata"), slog.String("item", cfg.ItemID)),
		client:   client,
		resolver: res,
		probe:    probe,
		bus:      bus,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		lastErr:  domain.ErrNoCatalog,
	}
}

// Load fetches and parses the manifest and builds a fresh catalog.
//
// Transport failures and non-2xx answers return a *domain.FetchError,
// undecodable manifests a *domain.ParseError. Either way a CatalogFailedEvent
// is published so hosts can show the access notice.
func (s *MetadataService) Load(ctx context.Context) (*domain.Catalog, error) {
	url, _ := s.resolver.Resolve(manifest.FileName)
	s.logger.Debug("fetching manifest", slog.String("url", url))

	data, err := s.fetch(ctx, url)
	if err == nil {
		var m *manifest.Manifest
		if m, err = manifest.Parse(url, data); err == nil {
			catalog := m.Catalog(s.cfg.ItemID, s.resolver)
			s.setResult(catalog, nil)

			s.logger.Info("catalog loaded",
				slog.Int("disks", len(catalog.Disks())),
				slog.Int("tracks", catalog.Len()),
				slog.Bool("pdf", catalog.HasPDF()))
			s.bus.Publish(domain.NewCatalogLoadedEvent(catalog))
			s.probeLastTracks(catalog)
			return catalog, nil
		}
	}

	s.setResult(nil, err)
	if errors.Is(err, context.Canceled) {
		// Abandoned by the caller, usually for another item
		s.logger.Debug("catalog load cancelled", slog.String("url", url))
		return nil, err
	}
	s.logger.Error("failed to load catalog", slog.String("url", url), slog.Any("error", err))
	s.bus.Publish(domain.NewCatalogFailedEvent(s.cfg.ItemID, err))
	return nil, err
}

// Catalog returns the last loaded catalog, or the error of the last attempt.
func (s *MetadataService) Catalog() (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, s.lastErr
}

// Shutdown cancels running duration probes and waits for them to return.
func (s *MetadataService) Shutdown() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// WaitProbes blocks until every duration probe of the last load has returned.
func (s *MetadataService) WaitProbes() {
	s.wg.Wait()
}

func (s *MetadataService) setResult(catalog *domain.Catalog, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
	s.lastErr = err
}

func (s *MetadataService) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewFetchError(url, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewFetchError(url, resp.StatusCode, fmt.Errorf("status %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize+1))
	if err != nil {
		return nil, domain.NewFetchError(url, 0, err)
	}
	if len(data) > maxManifestSize {
		return nil, domain.NewFetchError(url, 0, domain.ErrTooLarge)
	}
	return data, nil
}

// probeLastTracks starts one probe per disk whose last track has audio.
func (s *MetadataService) probeLastTracks(catalog *domain.Catalog) {
	if s.probe == nil {
		return
	}

	// A load that finishes after Shutdown starts no probes
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	for _, disk := range catalog.Disks() {
		last := disk.LastTrack()
		if last < 0 || disk.AudioURL == "" {
			continue
		}

		s.wg.Add(1)
		go func(index int, url string) {
			defer s.wg.Done()
			s.resolveDuration(catalog, index, url)
		}(last, disk.AudioURL)
	}
}

func (s *MetadataService) resolveDuration(catalog *domain.Catalog, index int, url string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ProbeTimeout)
	defer cancel()

	log := s.logger.With(slog.Int("index", index), slog.String("url", url))

	total, err := s.probe.Probe(ctx, url)
	if err != nil {
		log.Warn("duration probe failed", slog.Any("error", err))
		return
	}

	track, ok := catalog.ResolveDuration(index, total)
	if !ok {
		return
	}
	log.Debug("last track duration resolved", slog.Duration("duration", track.Duration))
	s.bus.Publish(domain.NewTrackDurationResolvedEvent(track))
}

var _ ports.CatalogSource = (*MetadataService)(nil)
