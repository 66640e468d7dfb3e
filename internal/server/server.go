// Package server is the composition root: it opens the store, builds the
// identity provider, services and handlers, and mounts them on a chi router.
//
// DEPENDENCY FLOW:
//
//	config → sqlite.DB ─┬─ repositories ─→ services ─→ handlers ─→ routes
//	                    └─ identity provider (local or google)
//
// Each layer only receives the interfaces it needs. Handlers never touch the
// store; services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/whynot-innovations/portal/internal/auth"
	"github.com/whynot-innovations/portal/internal/config"
	"github.com/whynot-innovations/portal/internal/credential"
	"github.com/whynot-innovations/portal/internal/handler"
	"github.com/whynot-innovations/portal/internal/identity"
	"github.com/whynot-innovations/portal/internal/metrics"
	"github.com/whynot-innovations/portal/internal/middleware"
	sqliteRepo "github.com/whynot-innovations/portal/internal/repository/sqlite"
	"github.com/whynot-innovations/portal/internal/service"
)

// localTokenIssuer is the iss claim of ID tokens minted by the local
// provider.
const localTokenIssuer = "whynot-portal"

// Server owns the router and the resources it must release on shutdown.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
	limiter  *middleware.RateLimiter
}

// New opens the database, builds the dependency graph and sets up routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: registry,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the rate limiter and the database.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.db.Close()
}

// newIdentity picks the identity backend. The local provider is built
// eagerly; its only secret was checked by config.Load. The Google provider
// is built on first use so a missing or malformed credential fails the
// calls that need it instead of the whole process.
func (s *Server) newIdentity() (identity.Provider, handler.SignInProvider, error) {
	switch s.config.AuthProvider {
	case config.ProviderLocal:
		tokens, err := auth.NewTokenService(s.config.LocalTokenSecret, localTokenIssuer, s.config.LocalTokenTTL)
		if err != nil {
			return nil, nil, err
		}
		local := identity.NewLocalProvider(s.db, auth.NewPasswordService(), tokens, s.logger)
		return local, local, nil

	case config.ProviderGoogle:
		lazy := identity.NewLazy(credential.EnvVar, func() (identity.Provider, error) {
			sa, err := credential.ParseServiceAccount(os.Getenv(credential.EnvVar))
			if err != nil {
				s.logger.Error("service account credential rejected", slog.String("error", err.Error()))
				return nil, err
			}
			p, err := identity.NewGoogleProviderFromCredential(context.Background(), sa, s.logger)
			if err != nil {
				return nil, err
			}
			s.logger.Info("identity provider initialized", slog.String("project_id", sa.ProjectID))
			return p, nil
		})
		return lazy, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown auth provider %q", s.config.AuthProvider)
}

// setupRoutes wires services to handlers and handlers to routes.
//
// MIDDLEWARE ORDER:
//  1. RequestID, RealIP: tag the request and fix RemoteAddr behind proxies
//  2. Logger: sees the final status, including recovered panics
//  3. Recoverer: turns panics into 500s
//  4. CORS: answers preflights before the gate can redirect them
//  5. Gate: redirects signed-out browsers away from protected pages
func (s *Server) setupRoutes() error {
	provider, signer, err := s.newIdentity()
	if err != nil {
		return err
	}

	rec := metrics.NewCollector(s.registry)

	// Services
	resolver := service.NewResolver(s.db, rec, s.logger)
	guard := service.NewGuard(provider, resolver, rec, s.logger)
	innovationService := service.NewInnovationService(s.db, guard, s.logger)
	messageService := service.NewMessageService(s.db, s.db, guard, s.logger)
	userService := service.NewUserService(provider, guard, resolver, s.logger)

	// Handlers
	sessionHandler := handler.NewSessionHandler(s.config.SecureCookies(), signer, rec, s.logger)
	innovationHandler := handler.NewInnovationHandler(innovationService, guard, s.logger)
	messageHandler := handler.NewMessageHandler(messageService, guard, s.logger)
	userHandler := handler.NewUserHandler(userService, guard, s.logger)
	systemHandler := handler.NewSystemHandler(s.config, s.logger)
	pageHandler, err := handler.NewPageHandler(s.config.AuthProvider, s.config.LoginPath, userService, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	s.limiter = middleware.NewRateLimiter("auth",
		middleware.PerMinute(s.config.LoginRatePerMinute), rec, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(s.config.CORSAllowedOrigins))
	r.Use(auth.Gate(s.config.ProtectedPrefixes, s.config.LoginPath))

	// Operations
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler(s.registry))

	// Pages
	r.Get("/", pageHandler.Page(handler.PageHome))
	r.Get(s.config.LoginPath, pageHandler.Page(handler.PageLogin))
	r.Get("/app", pageHandler.Page(handler.PageApp))
	r.Get("/app/messages", pageHandler.Page(handler.PageMessages))
	r.Get("/app/profile", pageHandler.Page(handler.PageProfile))
	r.Get("/admin", pageHandler.HandleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config/public", systemHandler.HandlePublicConfig)
		r.Get("/debug/env", systemHandler.HandleDebugEnv)

		// Session creation and sign-in share one bucket per client IP.
		r.With(s.limiter.Middleware).Post("/auth/session", sessionHandler.HandleCreate)
		r.Delete("/auth/session", sessionHandler.HandleDelete)
		if sessionHandler.CanSignIn() {
			r.With(s.limiter.Middleware).Post("/auth/login", sessionHandler.HandleLogin)
		}

		r.Get("/innovations", innovationHandler.HandleList)
		r.Get("/innovations/{id}", innovationHandler.HandleGet)

		r.Get("/messages", messageHandler.HandleListMine)
		r.Post("/messages", messageHandler.HandleCreate)
		r.Post("/messages/{id}/archive", messageHandler.HandleToggleArchive)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/check", userHandler.HandleCheckAdmin)

			r.Get("/users", userHandler.HandleList)
			r.Post("/users", userHandler.HandleCreate)
			r.Delete("/users/{userId}", userHandler.HandleDelete)

			r.Post("/innovations", innovationHandler.HandleCreate)
			r.Put("/innovations/{id}", innovationHandler.HandleUpdate)
			r.Delete("/innovations/{id}", innovationHandler.HandleDelete)

			r.Get("/messages", messageHandler.HandleListAll)
			r.Put("/messages/{id}/read", messageHandler.HandleSetRead)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("auth_provider", s.config.AuthProvider),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
