package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sophialabs/agenix/internal/domain/testcase"
	inboundhttp "github.com/sophialabs/agenix/internal/infrastructure/inbound/http"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/agenix/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/agenix/internal/infrastructure/ports"
	"github.com/sophialabs/agenix/internal/infrastructure/usecases"
	"github.com/sophialabs/agenix/internal/infrastructure/wiring"
)

// ErrNoTestDirectory is returned when tests are run without a root
// directory.
var ErrNoTestDirectory = errors.New("no test directory configured")

// App is the thin lifecycle manager that delegates dependency construction to wiring.Container.
type App struct {
	store     *ConfigStore
	level     *slog.LevelVar
	logger    ports.Logger
	container *wiring.Container
}

// New constructs the application from the current snapshot of store. Logs
// go to logOut as slog text.
func New(store *ConfigStore, logOut io.Writer) (*App, error) {
	cfg := store.Current()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(cfg.LogLevel))
	logger := logging.New(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	a := &App{store: store, level: level}

	var reloader inboundhttp.Reloader
	if cfg.SettingsFile != "" {
		reloader = a
	}

	container, err := wiring.New(wiring.Params{
		RootDir:              cfg.RootDir,
		SettingsFile:         cfg.SettingsFile,
		FunctionPrefix:       cfg.FunctionPrefix,
		DefaultMessageType:   cfg.DefaultMessageType,
		Encoding:             cfg.Encoding,
		PollingInterval:      cfg.PollingInterval,
		ReceiveTimeout:       cfg.ReceiveTimeout,
		MustFindValidator:    cfg.MustFindValidator,
		HeaderNameIgnoreCase: cfg.HeaderNameIgnoreCase,
		MaskKeywords:         cfg.MaskKeywords,
		MaskLogs:             cfg.MaskLogs,
		PathCacheSize:        cfg.PathCacheSize,
		TemplateCacheSize:    cfg.TemplateCacheSize,
		TraceSize:            cfg.TraceSize,
		RateLimiterTTL:       cfg.RateLimiterTTL,
		Namespaces:           cfg.Namespaces,
		Logger:               logger,
		Settings:             a.bridgeSettings,
		Reloader:             reloader,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire infrastructure: %w", err)
	}
	a.container = container
	a.logger = container.Logger()
	return a, nil
}

// Close releases the resources of the container.
func (a *App) Close() {
	a.container.Close()
}

// Handler returns the HTTP queue bridge.
func (a *App) Handler() http.Handler {
	return a.container.Server()
}

// Reload rereads the settings file. The log level and the bridge limits
// change immediately; settings that shape the container apply on restart.
func (a *App) Reload(ctx context.Context) error {
	if err := a.store.Reload(ctx); err != nil {
		return err
	}
	cfg := a.store.Current()
	a.level.Set(logging.ParseLevel(cfg.LogLevel))
	a.logger.Info("settings reloaded", "file", cfg.SettingsFile, "log_level", cfg.LogLevel)
	return nil
}

func (a *App) bridgeSettings() inboundhttp.Settings {
	cfg := a.store.Current()
	return inboundhttp.Settings{
		PublishRate:       cfg.PublishRate,
		PublishBurst:      cfg.PublishBurst,
		MaxReceiveTimeout: cfg.MaxReceiveTimeout,
		TraceLimit:        cfg.TraceLimit,
	}
}

// RunTests loads, compiles and runs the YAML tests once.
func (a *App) RunTests(ctx context.Context, opts usecases.RunOptions) ([]testcase.Result, error) {
	uc := a.container.RunTests()
	if uc == nil {
		return nil, ErrNoTestDirectory
	}
	return uc.Execute(ctx, opts)
}

// Watch runs the tests, then runs them again after every change to a YAML
// file below the root directory, until ctx is done. Each run is handed to
// report.
func (a *App) Watch(ctx context.Context, opts usecases.RunOptions, report func([]testcase.Result, error)) error {
	if a.container.RunTests() == nil {
		return ErrNoTestDirectory
	}
	cfg := a.store.Current()

	rerun := make(chan struct{}, 1)
	watcher, err := filesystem.NewWatcher(cfg.RootDir, filesystem.YAMLFiles, cfg.WatcherDebounce, a.logger, func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.RootDir, err)
	}
	watcher.Start()
	defer watcher.Stop()

	if sw := a.startSettingsWatcher(); sw != nil {
		defer sw.Stop()
	}

	report(a.RunTests(ctx, opts))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rerun:
			a.logger.Info("test files changed, running again")
			report(a.RunTests(ctx, opts))
		}
	}
}

// Serve runs the HTTP queue bridge until ctx is cancelled or the process
// receives SIGINT/SIGTERM, then shuts it down gracefully.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.store.Current()
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      a.container.Server(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sw := a.startSettingsWatcher(); sw != nil {
		defer sw.Stop()
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting agenix queue bridge", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}

func (a *App) startSettingsWatcher() *filesystem.Watcher {
	cfg := a.store.Current()
	if cfg.SettingsFile == "" {
		return nil
	}

	watcher, err := filesystem.NewWatcher(filepath.Dir(cfg.SettingsFile), filesystem.SingleFile(cfg.SettingsFile),
		cfg.WatcherDebounce, a.logger, func() {
			if err := a.Reload(context.Background()); err != nil {
				a.logger.Error("settings reload failed", "error", err)
			}
		})
	if err != nil {
		a.logger.Warn("settings watcher not available", "error", err)
		return nil
	}

	watcher.Start()
	a.logger.Info("settings watcher started", "file", cfg.SettingsFile)
	return watcher
}
