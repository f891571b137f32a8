// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web is the collaborator layer around the authentication core: it
// parses form submissions into credential attempts, invokes the engine, and
// maps outcomes to responses and session cookies. It holds no authentication
// logic of its own.
package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
)

//go:embed templates/*.html
var templatesFS embed.FS

// SessionCookieName is the cookie carrying the plaintext session token.
const SessionCookieName = "gatehouse_session"

// Server serves the register/login pages and the authenticated area.
type Server struct {
	addr       string
	engine     *auth.Service
	sessions   *auth.SessionManager
	metrics    *observability.Metrics
	logger     *slog.Logger
	templates  *template.Template
	cookieTTL  time.Duration
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a web server. metrics may be nil when the observability
// server is disabled.
func NewServer(addr string, engine *auth.Service, sessions *auth.SessionManager, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if addr == "" {
		return nil, oops.Errorf("listen address is required")
	}
	if engine == nil {
		return nil, oops.Errorf("authentication engine is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, oops.Code("WEB_TEMPLATES_FAILED").Wrap(err)
	}

	return &Server{
		addr:      addr,
		engine:    engine,
		sessions:  sessions,
		metrics:   metrics,
		logger:    logger,
		templates: templates,
		cookieTTL: auth.DefaultSessionTTL,
	}, nil
}

// Handler returns the configured route handler, for serving and for tests.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/", s.handleHome)
	router.GET("/register", s.handleRegisterPage)
	router.POST("/register", s.handleRegisterSubmit)
	router.GET("/login", s.handleLoginPage)
	router.POST("/login", s.handleLoginSubmit)
	router.GET("/secrets", s.handleSecrets)
	router.GET("/logout", s.handleLogout)
	return router
}

// Start begins serving. It returns an error channel that receives any error
// from the HTTP server after startup; the channel is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the web server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}

	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
