// Package server exposes entries and the assistant over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/blockcanvas/indy/internal/blockstore"
	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/indy"
	"github.com/blockcanvas/indy/internal/registry"
	"github.com/blockcanvas/indy/internal/schema"
	"github.com/blockcanvas/indy/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the services the handlers run on. Runner may be nil, which
// disables POST /api/indy/action.
type Deps struct {
	Store      storage.Store
	Sessions   *blockstore.Sessions
	Registry   *registry.Registry
	Dispatcher *indy.Dispatcher
	Generator  *indy.Generator
	Runner     *indy.Runner
	Tokens     schema.DesignTokens
	Logger     *logrus.Logger
}

// Server is the HTTP API.
type Server struct {
	Engine *gin.Engine

	cfg     config.ServerConfig
	deps    Deps
	timeout time.Duration
	limiter *entryLimiter
}

// New builds the router. requestTimeout bounds each assistant request.
func New(cfg config.ServerConfig, requestTimeout time.Duration, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Registry == nil {
		deps.Registry = registry.Default()
	}
	if deps.Sessions == nil {
		deps.Sessions = blockstore.NewSessions(deps.Store)
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		timeout: requestTimeout,
		limiter: newEntryLimiter(cfg.ChatRate, cfg.ChatBurst),
	}
	s.Engine = s.router()
	return s
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.deps.Logger))
	r.Use(corsMiddleware(s.cfg.AllowedOrigins))

	// Health
	r.GET("/healthcheck", healthCheck)

	entries := r.Group("/entries")
	{
		entries.GET("/:site", s.listEntries)
		entries.GET("/:site/:entry", s.getEntry)
		entries.PUT("/:site/:entry", s.putEntry)
		entries.DELETE("/:site/:entry", s.deleteEntry)
	}

	api := r.Group("/api/indy")
	{
		api.GET("/blocks", s.listBlocks)
		if s.deps.Generator != nil {
			api.POST("/generate", s.generate)
		}
		if s.deps.Dispatcher != nil {
			api.POST("/chat", s.chat)
		}
		if s.deps.Runner != nil {
			api.POST("/action", s.action)
		}
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.WithField("addr", s.cfg.Addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.deps.Logger.Info("shutting down server")
	return srv.Shutdown(shutdownCtx)
}
