// Package server exposes the rewrite and humanize pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/valpere/peredit/internal"
	"github.com/valpere/peredit/internal/humanizer"
	"github.com/valpere/peredit/internal/orchestrator"
	"github.com/valpere/peredit/internal/store"
)

var ErrNoText = errors.New("no paper text provided")

// noTextMessage is the client-facing form of ErrNoText.
const noTextMessage = "No paper text provided."

const shutdownTimeout = 10 * time.Second

// Rewriter is the model side of the pipeline; *orchestrator.Orchestrator
// satisfies it.
type Rewriter interface {
	Rewrite(ctx context.Context, req internal.RewriteRequest) (*orchestrator.OrchestratorResult, error)
}

type Server struct {
	rewriter  Rewriter
	humanizer *humanizer.Humanizer
	store     *store.Store
	strength  string
	logger    *zap.Logger
}

type Option func(*Server)

// WithStore logs final outputs to s.
func WithStore(s *store.Store) Option {
	return func(srv *Server) { srv.store = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

// WithStrength sets the strength used when a request names none.
func WithStrength(strength string) Option {
	return func(srv *Server) { srv.strength = strength }
}

func New(rw Rewriter, h *humanizer.Humanizer, opts ...Option) *Server {
	s := &Server{
		rewriter:  rw,
		humanizer: h,
		strength:  humanizer.DefaultProfileName,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", s.health)

	papers := r.Group("/papers")
	{
		papers.POST("/rewrite", s.rewrite)
		papers.POST("/humanize", s.humanize)
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
