// Package api serves stored benchmark runs over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethpandaops/runtimeoor/pkg/config"
	"github.com/ethpandaops/runtimeoor/pkg/store"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
	// Addr returns the bound listen address once started.
	Addr() string
}

// Ensure interface compliance.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.APIConfig
	store      store.Store
	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
	stopOnce   sync.Once
}

// NewServer creates an API server reading runs from st. The caller owns the
// store lifecycle.
func NewServer(log logrus.FieldLogger, cfg *config.APIConfig, st store.Store) Server {
	return &server{
		log:   log.WithField("component", "api"),
		cfg:   cfg,
		store: st,
		done:  make(chan struct{}),
	}
}

// Start binds the listener and serves requests in the background.
func (s *server) Start(_ context.Context) error {
	s.httpServer = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind synchronously so port conflicts fail fast.
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Listen, err)
	}

	s.listener = ln

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", ln.Addr().String()).Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

func (s *server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *server) Stop() error {
	s.stopOnce.Do(func() { close(s.done) })

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	s.log.Info("API server stopped")

	return nil
}
