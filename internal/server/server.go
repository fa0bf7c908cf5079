// Package server is the web front of claimaudit: the worklist and claim
// detail pages plus a small JSON API for polling.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimaudit/internal/model"
	"github.com/ppiankov/claimaudit/internal/view"
)

// Runner executes an audit request in the background. The default starts
// a goroutine; tests substitute a runner they can drive by hand.
type Runner func(task func())

// Server serves the claim viewer
type Server struct {
	cfg      model.ServerConfig
	svc      view.ClaimService
	logger   *logrus.Logger
	router   *gin.Engine
	sessions *sessionStore
	run      Runner
	baseCtx  context.Context
	stop     context.CancelFunc
	server   *http.Server
	started  time.Time
}

// Option customizes a Server
type Option func(*Server)

// WithRunner replaces the background runner used for audits
func WithRunner(r Runner) Option {
	return func(s *Server) { s.run = r }
}

// New builds the server and its routes. The gin mode is left to the caller.
func New(cfg model.ServerConfig, svc view.ClaimService, logger *logrus.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 256
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	baseCtx, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		logger:   logger,
		sessions: newSessionStore(cfg.MaxSessions, cfg.SessionTTL, logger),
		run:      func(task func()) { go task() },
		baseCtx:  baseCtx,
		stop:     stop,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.newRouter(tmpl)
	return s, nil
}

func (s *Server) newRouter(tmpl *template.Template) *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(s.logger))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.WithField("panic", recovered).Error("Handler panicked")
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	if mw := corsMiddleware(s.cfg.AllowedOrigins); mw != nil {
		router.Use(mw)
	}

	router.GET("/health", s.handleHealth)

	pages := router.Group("/")
	pages.Use(s.sessionMiddleware())
	{
		pages.GET("/", s.handleWorklist)
		pages.GET("/claims/:id", s.handleDetail)
		pages.POST("/claims/:id/audit", s.handleTriggerAudit)
	}

	api := router.Group("/api")
	api.Use(s.sessionMiddleware())
	{
		api.GET("/claims", s.handleAPIClaims)
		api.GET("/claims/:id/audit", s.handleAPIAudit)
	}

	return router
}

// corsMiddleware allows the configured origins to call the JSON API.
// "*" allows any origin. No origins disables CORS handling.
func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Addr).Info("Web front listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.stop()
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down web front")
	s.stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": s.sessions.Len(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}
