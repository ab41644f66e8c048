// SPDX-License-Identifier: MIT

// Package daemon manages the service lifecycle: HTTP servers, background
// workers and ordered shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ubsdigital/tvsaude/internal/config"
	"github.com/ubsdigital/tvsaude/internal/log"
)

// ErrManagerNotStarted is returned by Shutdown before Start was called.
var ErrManagerNotStarted = errors.New("manager not started")

// ShutdownHook is a cleanup function run during graceful shutdown. Hooks run
// in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Worker is a long-running background task, cancelled via its context at
// shutdown. Returning ctx.Err() after cancellation is a clean exit; any other
// error brings the whole daemon down.
type Worker func(ctx context.Context) error

// Manager manages the daemon lifecycle.
type Manager struct {
	serverCfg config.ServerConfig

	apiHandler     http.Handler
	metricsHandler http.Handler

	apiServer     *http.Server
	metricsServer *http.Server

	workers       []namedWorker
	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

type namedWorker struct {
	name string
	run  Worker
}

// NewManager creates a daemon manager. metricsHandler may be nil to disable
// the metrics listener.
func NewManager(serverCfg config.ServerConfig, apiHandler, metricsHandler http.Handler) *Manager {
	return &Manager{
		serverCfg:      serverCfg,
		apiHandler:     apiHandler,
		metricsHandler: metricsHandler,
		logger:         log.WithComponent("manager"),
	}
}

// RegisterWorker adds a background task started alongside the servers.
func (m *Manager) RegisterWorker(name string, run Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, namedWorker{name: name, run: run})
}

// RegisterShutdownHook registers a cleanup function run during shutdown,
// in reverse registration order.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}

// Start starts the servers and workers and blocks until ctx is cancelled or a
// server fails.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	workers := m.workers
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.serverCfg.ListenAddr).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Str("event", "manager.start").
		Msg("starting daemon manager")

	errChan := make(chan error, 2+len(workers))

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if m.metricsHandler != nil && m.serverCfg.MetricsAddr != "" {
		m.startMetricsServer(errChan)
	}
	m.startAPIServer(errChan)

	for _, w := range workers {
		w := w
		go func() {
			m.logger.Info().Str("worker", w.name).Str("event", "manager.worker_start").Msg("worker started")
			if err := w.run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("worker %s: %w", w.name, err)
			}
		}()
	}

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Str("event", "manager.failure").Msg("component failed, shutting down")
		// Detached but bounded, so shutdown completes even with a dead parent.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("component failure and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Str("event", "manager.signal").Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

func (m *Manager) startAPIServer(errChan chan<- error) {
	m.apiServer = &http.Server{
		Addr:              m.serverCfg.ListenAddr,
		Handler:           m.apiHandler,
		ReadTimeout:       m.serverCfg.ReadTimeout,
		ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
		WriteTimeout:      m.serverCfg.WriteTimeout,
		IdleTimeout:       m.serverCfg.IdleTimeout,
	}

	go func() {
		m.logger.Info().Str("addr", m.serverCfg.ListenAddr).Str("event", "api.listening").Msg("API server listening")
		if err := m.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("api server: %w", err)
		}
	}()
}

func (m *Manager) startMetricsServer(errChan chan<- error) {
	m.metricsServer = &http.Server{
		Addr:              m.serverCfg.MetricsAddr,
		Handler:           m.metricsHandler,
		ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
	}

	go func() {
		m.logger.Info().Str("addr", m.serverCfg.MetricsAddr).Str("event", "metrics.listening").Msg("metrics server listening")
		if err := m.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()
}

// Shutdown stops the servers and runs the shutdown hooks in LIFO order.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := m.shutdownHooks
	m.mu.Unlock()

	m.logger.Info().Str("event", "manager.shutdown").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.serverCfg.ShutdownTimeout)
	defer cancel()

	var errs []error

	if m.apiServer != nil {
		if err := m.apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
		}
	}
	if m.metricsServer != nil {
		if err := m.metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		start := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(start)).
				Str("event", "manager.hook_failed").
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		m.logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(start)).
			Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().Str("event", "manager.stopped").Msg("daemon manager stopped cleanly")
	return nil
}
