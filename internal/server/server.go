// Package server binds the proxy handler to a TCP listener, adding
// HTTP/2 cleartext multiplexing and panic isolation so one bad request
// cannot take the acceptor down.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server wraps an http.Server bound to a plain TCP listener, with the
// handler wrapped for h2c (HTTP/2 without TLS) and panic recovery.
type Server struct {
	httpServer *http.Server
	logger     *pterm.Logger
}

// New builds a Server that listens on 0.0.0.0:port and serves handler.
func New(port uint16, handler http.Handler, logger *pterm.Logger) *Server {
	wrapped := recoverMiddleware(handler, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", port),
			Handler:           h2c.NewHandler(wrapped, &http2.Server{}),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// ListenAndServe binds the listener and blocks until the server stops.
// A clean shutdown via Shutdown is reported as a nil error.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info("proxy listening", s.logger.Args("addr", s.httpServer.Addr))

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// to finish until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// recoverMiddleware guarantees a panic in one request's handler chain
// is logged and turned into a 500 instead of killing the connection
// goroutine, which would otherwise take down every other in-flight
// request sharing a multiplexed HTTP/2 connection.
func recoverMiddleware(next http.Handler, logger *pterm.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithCaller().Error("panic handling request", logger.Args(
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
				))
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
