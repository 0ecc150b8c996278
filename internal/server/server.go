// internal/server/server.go

// Package server hosts the HTTP API: the agent planning loop, direct
// capability endpoints (browse, execute, files, github, upload), chat
// sessions, and the polled execution/progress registries.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/agentseek/internal/browser"
	"github.com/xkilldash9x/agentseek/internal/config"
	"github.com/xkilldash9x/agentseek/internal/conversation"
	"github.com/xkilldash9x/agentseek/internal/dispatch"
	"github.com/xkilldash9x/agentseek/internal/gitops"
	"github.com/xkilldash9x/agentseek/internal/llmclient"
	"github.com/xkilldash9x/agentseek/internal/observability"
	"github.com/xkilldash9x/agentseek/internal/planner"
	"github.com/xkilldash9x/agentseek/internal/registry"
	"github.com/xkilldash9x/agentseek/internal/runner"
	"github.com/xkilldash9x/agentseek/internal/workspace"
)

// Server owns the HTTP listener and the long-lived services behind it.
type Server struct {
	cfg    config.Interface
	logger *zap.Logger

	httpServer *http.Server
	handlers   *Handlers

	// Owned services that need explicit shutdown.
	manager  *browser.Manager
	sessions *browser.SessionRegistry
	registry *registry.Registry
}

// NewServer wires every service from configuration. A missing LLM key does not
// fail startup; the disabled provider serves degraded responses instead.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	provider, err := llmclient.NewClient(cfg.LLM(), logger)
	if err != nil {
		return nil, fmt.Errorf("building completion provider: %w", err)
	}

	ws, err := workspace.New(cfg.Workspace().Root, logger)
	if err != nil {
		return nil, fmt.Errorf("preparing workspace: %w", err)
	}

	manager := browser.NewManager(cfg.Browser(), logger)
	sessions := browser.NewSessionRegistry(manager, logger)
	codeRunner := runner.NewExecRunner(cfg.Runner(), logger)
	reg := registry.New(cfg.Agent().StepDelay, logger)

	handlers := NewHandlers(Deps{
		Cfg:        cfg,
		Logger:     logger,
		Planner:    planner.New(provider, logger),
		Dispatcher: dispatch.New(manager, codeRunner, *cfg, logger),
		Driver:     manager,
		Sessions:   sessions,
		Runner:     codeRunner,
		Workspace:  ws,
		GitHub:     gitops.NewService(cfg.GitHub().Token, logger),
		Chat:       conversation.NewStore(provider, logger),
		Registry:   reg,
	})

	return &Server{
		cfg:      cfg,
		logger:   logger.Named("server"),
		handlers: handlers,
		manager:  manager,
		sessions: sessions,
		registry: reg,
	}, nil
}

// Start runs the HTTP server until the context is cancelled or a termination
// signal arrives, then shuts everything down in dependency order.
func (s *Server) Start(ctx context.Context) error {
	defer observability.Sync()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(corsMiddleware)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)
		s.handlers.RegisterRoutes(r)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server().Port),
		Handler:      r,
		ReadTimeout:  s.cfg.Server().ReadTimeout,
		WriteTimeout: s.cfg.Server().WriteTimeout,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("API server starting", zap.String("address", s.httpServer.Addr))

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down gracefully...")

		shutdownTimeout := s.cfg.Server().ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}

		// Stop background progressions before tearing down the browser so
		// in-flight work never races engine teardown.
		s.registry.Close()
		s.sessions.Close()
		s.manager.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("API server stopped.")
	return nil
}

// corsMiddleware allows any origin, matching the permissive policy of the
// frontend this API serves.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
