// Package web serves the wine assessment page, a small JSON API and
// Prometheus metrics.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/YuminosukeSato/vinoscore/pkg/config"
	"github.com/YuminosukeSato/vinoscore/pkg/errors"
	"github.com/YuminosukeSato/vinoscore/pkg/log"
	"github.com/YuminosukeSato/vinoscore/predictor"
)

// Server wraps http.Server with the vinoscore routes and middleware.
type Server struct {
	server  *http.Server
	cfg     config.ServerConfig
	logger  log.Logger
	metrics *Metrics
}

// NewServer builds the handler chain around the routes. defaultFolds is shown
// on the result panel when the artifacts do not record their fold count.
func NewServer(cfg config.ServerConfig, p *predictor.Predictor, defaultFolds int, logger log.Logger) *Server {
	logger = logger.With(log.ComponentKey, "web")
	m := NewMetrics()

	mux := http.NewServeMux()
	NewHandlers(p, m, logger, defaultFolds).Register(mux)

	chain := standardChain(logger, m)

	return &Server{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           chain(mux),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// standardChain orders the middleware: request id, access log, recovery.
// Recovery sits innermost so a recovered panic still carries the request id
// and is logged and counted as a 500.
func standardChain(logger log.Logger, m *Metrics) Middleware {
	return Chain(
		RequestID,
		AccessLog(logger, m),
		Recovery(logger),
	)
}

// Handler returns the full handler chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "server failed")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	return <-errCh
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}
