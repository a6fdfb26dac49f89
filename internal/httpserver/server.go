package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Upload requests carry up to the clip size limit, so the body read and the
// response write get far more room than a JSON API would need.
const (
	readHeaderTimeout = 5 * time.Second
	uploadTimeout     = 2 * time.Minute
	idleTimeout       = 60 * time.Second
)

// Server wraps the http.Server with the timeouts ClipVault needs.
type Server struct {
	inner *http.Server
}

// New constructs a server listening on the provided port.
func New(port int, handler http.Handler) *Server {
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       uploadTimeout,
			WriteTimeout:      uploadTimeout,
			IdleTimeout:       idleTimeout,
		},
	}
}

// Addr reports the configured listen address.
func (s *Server) Addr() string {
	return s.inner.Addr
}

// Start begins serving HTTP traffic. It returns nil once Shutdown is called.
func (s *Server) Start() error {
	if err := s.inner.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully terminates the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
