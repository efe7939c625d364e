// Package runtime boots and supervises the daemon: embedded bus, settings
// store service, revision history, recognition tester, presence registry,
// and the operational HTTP endpoints.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dictalabs/dicta-core/internal/bus"
	"github.com/dictalabs/dicta-core/internal/config"
	"github.com/dictalabs/dicta-core/internal/natsserver"
	"github.com/dictalabs/dicta-core/internal/presence"
	"github.com/dictalabs/dicta-core/internal/recognition"
	"github.com/dictalabs/dicta-core/internal/settings"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error

	embedded    *natsserver.EmbeddedServer
	busClient   *bus.Client
	settingsSvc *settings.Service
	history     *settings.History
	recognition *recognition.Service
	registry    *presence.Registry

	ready atomic.Bool
	wg    sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings every component up in dependency order, then blocks until ctx
// is cancelled and tears them down in reverse.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tel, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = tel.Close

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	r.embedded = embedded

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		r.embedded.Shutdown()
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	r.busClient = busClient

	store, err := settings.NewStore(r.cfg.Settings, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open settings store: %w", err)
	}

	history, err := settings.OpenHistory(ctx, r.cfg.History, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open settings history: %w", err)
	}
	r.history = history

	r.settingsSvc = settings.NewService(busClient, store, history, r.logger)
	if err := r.settingsSvc.Start(); err != nil {
		return fmt.Errorf("failed to start settings service: %w", err)
	}

	r.recognition = recognition.NewService(r.cfg.Recognition, busClient, recognition.StaticTester{}, r.logger)
	if err := r.recognition.Start(); err != nil {
		return fmt.Errorf("failed to start recognition service: %w", err)
	}

	registry, err := presence.NewRegistry(ctx, r.cfg.Surface, busClient, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start presence registry: %w", err)
	}
	r.registry = registry

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/surfaces", r.handleSurfaces)
	if tel.metrics != nil {
		mux.Handle("/metrics", tel.metrics)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	r.registry.Close()
	r.recognition.Close()
	r.settingsSvc.Close()
	if err := r.history.Close(); err != nil {
		r.logger.Error("history close error", slog.String("error", err.Error()))
	}
	r.busClient.Close()
	r.embedded.Shutdown()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if r.busClient != nil && r.busClient.Healthy() && r.settingsSvc.Healthy() && r.recognition.Healthy() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("unhealthy"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) handleSurfaces(w http.ResponseWriter, _ *http.Request) {
	if r.registry == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(r.registry.Snapshot()); err != nil {
		r.logger.Warn("encode surfaces response", slog.String("error", err.Error()))
	}
}
