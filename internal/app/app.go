// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle
// for both hosts: the desktop window and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/audio/streaming"
	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/httpapi"
	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/probe"
	"github.com/tejashwikalptaru/archiveplayer/internal/adapter/repository/memory"
	fyneui "github.com/tejashwikalptaru/archiveplayer/internal/adapter/ui/fyne"
	"github.com/tejashwikalptaru/archiveplayer/internal/config"
	"github.com/tejashwikalptaru/archiveplayer/internal/domain"
	"github.com/tejashwikalptaru/archiveplayer/internal/logger"
	"github.com/tejashwikalptaru/archiveplayer/internal/metrics"
	"github.com/tejashwikalptaru/archiveplayer/internal/ports"
	"github.com/tejashwikalptaru/archiveplayer/internal/resolver"
	"github.com/tejashwikalptaru/archiveplayer/internal/service"
)

const (
	// AppID is the unique application identifier
	AppID = "org.archiveplayer.app"

	// AppName is the display name
	AppName = "Archive Player"
)

// ErrSuperseded is returned by LoadItem when a later LoadItem replaced it
// before it finished.
var ErrSuperseded = errors.New("item load superseded")

// Options selects how the application is assembled.
type Options struct {
	// Config is the validated configuration
	Config *config.Config

	// UseMockAudio replaces the speaker with a silent engine
	UseMockAudio bool

	// Logger overrides the logger built from Config.Logging
	Logger *slog.Logger

	// HTTPClient overrides the client used for manifests, probes and audio
	HTTPClient *http.Client

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
type Application struct {
	logger *slog.Logger
	cfg    *config.Config
	opts   Options

	// Infrastructure
	client   *http.Client
	eventBus *eventbus.SyncEventBus
	observer *metrics.EventObserver
	engine   ports.SoundEngine
	probe    ports.DurationProbe

	// Services
	session *service.PlayerSession

	// metadata is replaced on every LoadItem
	attachMu sync.Mutex
	mu       sync.RWMutex
	metadata *service.MetadataService
	itemID   string

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewApplication creates a new application with all dependencies wired.
func NewApplication(opts Options) (*Application, error) {
	if opts.Config == nil {
		def := config.Default()
		opts.Config = &def
	}
	cfg := opts.Config

	a := &Application{cfg: cfg, opts: opts, itemID: cfg.Source.ItemID}

	// Step 1: Create logger
	a.logger = opts.Logger
	if a.logger == nil {
		level, err := logger.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		a.logger = logger.NewLogger(logger.Config{Level: level, Format: cfg.Logging.Format})
	}
	a.logger.Info("initializing application", slog.String("version", GetVersionInfo().FullString()))
	publishVersionMetric()

	// Step 2: Create an event bus and the metrics observer
	a.eventBus = eventbus.NewSyncEventBus()
	a.eventBus.SetLogger(a.logger.With(slog.String("component", "eventbus")))
	a.observer = metrics.NewEventObserver(a.eventBus)

	// Step 3: HTTP client shared by manifest fetches, probes and streaming
	a.client = opts.HTTPClient
	if a.client == nil {
		// No client timeout: audio streams stay open; requests carry contexts
		a.client = &http.Client{}
	}

	// Step 4: Create a sound engine
	if opts.UseMockAudio {
		engine := mock.NewEngine()
		engine.SetLogger(a.logger.With(slog.String("engine", "mock")))
		engine.SetRealtime(true)
		a.engine = engine
	} else {
		engine := streaming.NewEngine(a.logger.With(slog.String("engine", "streaming")), a.client, streaming.Config{
			SampleRate: cfg.Player.SampleRate,
			Buffer:     cfg.AudioBuffer(),
			UserAgent:  cfg.HTTP.UserAgent,
		})
		if err := engine.Init(); err != nil {
			_ = a.eventBus.Close()
			return nil, fmt.Errorf("failed to initialize audio engine: %w", err)
		}
		a.engine = engine
	}

	// Step 5: Duration probe and player session
	a.probe = probe.NewHTTPProbe(a.logger.With(slog.String("component", "probe")), a.client, probe.Config{
		UserAgent:   cfg.HTTP.UserAgent,
		MaxDownload: cfg.MaxProbeDownload(),
	})

	a.session = service.NewPlayerSession(
		a.logger.With(slog.String("service", "session")),
		a.engine,
		a.eventBus,
		service.SessionConfig{
			ProgressInterval: cfg.ProgressInterval(),
			DefaultSpan:      cfg.DefaultSpan(),
			InitialVolume:    cfg.Player.InitialVolume,
		},
	)

	return a, nil
}

// LoadItem resolves an item's manifest and hands the catalog to the session.
// The previous item's duration probes are cancelled first. On failure the
// session is emptied, so hosts fall back to the access notice.
func (a *Application) LoadItem(ctx context.Context, itemID string) (*domain.Catalog, error) {
	if itemID == "" {
		return nil, errors.New("no item id configured")
	}

	md := service.NewMetadataService(a.logger, a.client, resolver.New(a.cfg.Source.BaseURL, itemID), a.probe, a.eventBus,
		service.MetadataConfig{
			ItemID:       itemID,
			UserAgent:    a.cfg.HTTP.UserAgent,
			ProbeTimeout: a.cfg.ProbeTimeout(),
		})

	a.mu.Lock()
	previous := a.metadata
	a.metadata, a.itemID = md, itemID
	a.mu.Unlock()
	if previous != nil {
		_ = previous.Shutdown()
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout())
	defer cancel()

	catalog, err := md.Load(fetchCtx)

	// A newer LoadItem may have started meanwhile; only the latest reaches the
	// session. attachMu orders the check and SetCatalog against that load.
	a.attachMu.Lock()
	defer a.attachMu.Unlock()
	a.mu.RLock()
	current := a.metadata == md
	a.mu.RUnlock()
	if !current {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSuperseded, err)
		}
		return nil, ErrSuperseded
	}

	if setErr := a.session.SetCatalog(catalog); setErr != nil {
		return nil, setErr
	}
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// Catalog returns the current item's catalog or the reason it is missing.
func (a *Application) Catalog() (*domain.Catalog, error) {
	a.mu.RLock()
	md := a.metadata
	a.mu.RUnlock()
	if md == nil {
		return nil, domain.ErrNoCatalog
	}
	return md.Catalog()
}

// WaitForDurations blocks until the current item's duration probes finish or
// ctx is done.
func (a *Application) WaitForDurations(ctx context.Context) error {
	a.mu.RLock()
	md := a.metadata
	a.mu.RUnlock()
	if md == nil {
		return domain.ErrNoCatalog
	}

	done := make(chan struct{})
	go func() {
		md.WaitProbes()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Probe returns the duration probe shared by every item.
func (a *Application) Probe() ports.DurationProbe {
	return a.probe
}

// ItemID returns the identifier of the item loaded last.
func (a *Application) ItemID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.itemID
}

// Session returns the player session.
func (a *Application) Session() *service.PlayerSession {
	return a.session
}

// EventBus returns the application event bus.
func (a *Application) EventBus() ports.EventBus {
	return a.eventBus
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// APIServer builds the HTTP host API over the session.
func (a *Application) APIServer() *httpapi.Server {
	return httpapi.NewServer(a.logger, a.session, a, a.eventBus, httpapi.Config{
		CORSOrigins: a.cfg.Server.CORSOrigins,
		RateLimit:   a.cfg.Server.RateLimit,
		RateBurst:   a.cfg.Server.RateBurst,
	})
}

// Serve runs the HTTP API until ctx is cancelled. The manifest is loaded in
// the background so the API answers (with the access notice) straight away.
func (a *Application) Serve(ctx context.Context) error {
	srv := a.APIServer()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.LoadItem(ctx, a.ItemID()); err != nil {
			a.logger.Warn("serving without a catalog", slog.Any("error", err))
		}
	}()

	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}

// RunGUI shows the desktop window and blocks until it is closed or ctx is
// cancelled.
func (a *Application) RunGUI(ctx context.Context) error {
	fa := a.opts.TestFyneApp
	if fa == nil {
		fa = fyneapp.NewWithID(AppID)
	}
	prefs := memory.NewPreferencesRepository(fa.Preferences())

	itemID := a.ItemID()
	if itemID == "" {
		if last, err := prefs.LoadLastItem(); err == nil {
			itemID = last
		}
	}
	if volume, saved, err := prefs.LoadVolume(); err == nil && saved {
		_ = a.session.SetVolume(volume)
	}

	window := fyneui.NewPlayerWindow(fa, a.logger.With(slog.String("component", "window")), fyneui.WindowConfig{
		AppName:   AppName,
		Version:   GetVersionInfo().Display(),
		ItemID:    itemID,
		Client:    a.client,
		UserAgent: a.cfg.HTTP.UserAgent,
	})
	presenter := fyneui.NewPresenter(
		a.logger.With(slog.String("component", "presenter")),
		a.session,
		a.eventBus,
		window,
		prefs,
	)
	presenter.SetItemLoader(func(ctx context.Context, itemID string) error {
		_, err := a.LoadItem(ctx, itemID)
		return err
	})
	window.SetPresenter(presenter)
	defer presenter.Shutdown()

	stop := context.AfterFunc(ctx, window.Close)
	defer stop()

	if itemID == "" {
		window.ShowAccessNotice(domain.DefaultAccessNotice)
	} else {
		presenter.OnItemRequested(itemID)
	}

	a.logger.Info("desktop player started", slog.String("item_id", itemID))
	window.ShowAndRun()
	return nil
}

// Shutdown gracefully shuts down the application.
// It's safe to call multiple times (idempotent).
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")
		a.wg.Wait()

		a.mu.Lock()
		md := a.metadata
		a.mu.Unlock()
		if md != nil {
			_ = md.Shutdown()
		}

		if err := a.session.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown player session", slog.Any("error", err))
		}
		if err := a.engine.Shutdown(); err != nil {
			a.logger.Warn("failed to shutdown audio engine", slog.Any("error", err))
		}

		a.observer.Close()
		_ = a.eventBus.Close()
		a.logger.Info("application shutdown complete")
	})
	return nil
}
