// Package server serves the admin console: the configuration pages, the
// submission modal, login routes, health and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/goliatone/go-configadmin/internal/auth"
	"github.com/goliatone/go-configadmin/internal/config"
	"github.com/goliatone/go-configadmin/internal/metrics"
	"github.com/goliatone/go-configadmin/internal/submission"
	"github.com/goliatone/go-configadmin/pkg/functional"
	"github.com/goliatone/go-configadmin/pkg/orchestrator"
	"github.com/goliatone/go-configadmin/pkg/renderers/vanilla"
)

// ConfigAPI reads from the remote configuration API.
type ConfigAPI interface {
	GetConfiguration(ctx context.Context) (functional.FunctionalConfiguration, error)
	GetHistory(ctx context.Context) ([]functional.HistoryEntry, error)
	Profile() string
}

// Submissions starts updates and reports their state.
type Submissions interface {
	Submit(ctx context.Context, req submission.Request) (submission.Submission, error)
	Get(ctx context.Context, id string) (submission.Submission, error)
}

// Dependencies are required by New.
type Dependencies struct {
	API         ConfigAPI
	Submissions Submissions
	Forms       *orchestrator.Orchestrator
	Pages       *vanilla.Renderer
}

type Option func(*Server)

func WithAuth(manager *auth.Manager) Option {
	return func(s *Server) {
		if manager != nil {
			s.auth = manager
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAssetsPrefix mounts the stylesheet bundle under prefix.
func WithAssetsPrefix(prefix string) Option {
	return func(s *Server) {
		if prefix != "" {
			s.assetsPrefix = prefix
		}
	}
}

// WithRefreshInterval sets how often a waiting submission page reloads.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.refresh = d
		}
	}
}

// Server holds the routes of the console.
type Server struct {
	api          ConfigAPI
	submissions  Submissions
	forms        *orchestrator.Orchestrator
	pages        *vanilla.Renderer
	auth         *auth.Manager
	metrics      *metrics.Metrics
	logger       *zap.Logger
	assetsPrefix string
	refresh      time.Duration
	router       *mux.Router
}

// New validates the dependencies and registers the routes. Without WithAuth
// the console runs in the "none" auth mode.
func New(deps Dependencies, options ...Option) (*Server, error) {
	switch {
	case deps.API == nil:
		return nil, errors.New("server: config api is required")
	case deps.Submissions == nil:
		return nil, errors.New("server: submissions are required")
	case deps.Forms == nil:
		return nil, errors.New("server: form orchestrator is required")
	case deps.Pages == nil:
		return nil, errors.New("server: page renderer is required")
	}

	s := &Server{
		api:          deps.API,
		submissions:  deps.Submissions,
		forms:        deps.Forms,
		pages:        deps.Pages,
		logger:       zap.NewNop(),
		assetsPrefix: "/assets",
		refresh:      time.Second,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.auth == nil {
		manager, err := auth.New(context.Background(), config.AuthConfig{Mode: config.AuthNone}, auth.WithLogger(s.logger))
		if err != nil {
			return nil, fmt.Errorf("server: auth: %w", err)
		}
		s.auth = manager
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverPanics, s.requestID, s.observe)
	r.NotFoundHandler = s.requestID(s.observe(http.HandlerFunc(s.notFound)))

	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix(s.assetsPrefix + "/").Handler(
		http.StripPrefix(s.assetsPrefix+"/", http.FileServer(http.FS(vanilla.AssetsFS()))),
	).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/login", s.auth.Login).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", s.auth.Callback).Methods(http.MethodGet)

	pages := r.NewRoute().Subrouter()
	pages.Use(s.auth.Require)
	pages.HandleFunc("/", s.home).Methods(http.MethodGet)
	pages.HandleFunc("/about", s.about).Methods(http.MethodGet)
	pages.HandleFunc("/configuration", s.configuration).Methods(http.MethodGet)
	pages.HandleFunc("/configuration", s.save).Methods(http.MethodPost)
	pages.HandleFunc("/configuration/edit", s.edit).Methods(http.MethodGet)
	pages.HandleFunc("/configuration/cancel", s.cancel).Methods(http.MethodPost)
	pages.HandleFunc("/configuration/export.yaml", s.export).Methods(http.MethodGet)
	pages.HandleFunc("/configuration/submissions/{id}", s.submission).Methods(http.MethodGet)
	pages.HandleFunc("/history", s.history).Methods(http.MethodGet)
	pages.HandleFunc("/logout", s.auth.Logout).Methods(http.MethodPost)
	return r
}

// Handler returns the console router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down within grace.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	s.logger.Info("listening", zap.String("addr", addr), zap.String("profile", s.api.Profile()), zap.String("auth", s.auth.Mode()))

	select {
	case err := <-errChan:
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger.Info("stopped")
	return nil
}
