//go:build !test

/* server.go
 * Contains the HTTP server Run and Shutdown functions.
 * Excluded from test coverage as it blocks and requires real network binding.
 */

package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// HTTPServer wraps http.Server around the router
type HTTPServer struct {
	srv *http.Server
}

// NewHTTPServer creates the server for cfg without listening
func NewHTTPServer(cfg Config) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Run listens and serves until Shutdown is called
func (s *HTTPServer) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server, waiting up to 10 seconds for requests in flight
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
