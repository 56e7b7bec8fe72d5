// Package telemetryhttp implements the HTTP telemetry ingress (§6
// "Telemetry HTTP"): a GET / endpoint that drains the bounded telemetry
// queue and returns its contents as a JSON array, or [] if empty. It is
// grounded on the teacher's metrics.Server: the same
// http.Server-with-ReadTimeout/WriteTimeout/IdleTimeout construction and
// background ListenAndServe/graceful Shutdown pair, serving the queue
// drain instead of promhttp.Handler().
package telemetryhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"icc.tech/hil-supervisor/internal/queue"
	"icc.tech/hil-supervisor/internal/telemetry"
)

// Server serves the most recently published telemetry points, draining
// the queue on every request so each point is delivered exactly once to
// whichever client happens to poll first.
type Server struct {
	addr   string
	points *queue.TelemetryQueue[telemetry.Bucket]
	log    *logrus.Entry

	server *http.Server
}

// New creates a Server that serves points over addr.
func New(addr string, points *queue.TelemetryQueue[telemetry.Bucket]) *Server {
	return &Server{
		addr:   addr,
		points: points,
		log:    logrus.WithField("component", "telemetryhttp"),
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDrain)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.WithField("addr", s.addr).Info("telemetry http server starting")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("telemetry http server error")
		}
	}()

	<-ctx.Done()
	return s.Stop(context.Background())
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	drained := s.points.Drain()
	if drained == nil {
		drained = []telemetry.Bucket{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(drained); err != nil {
		s.log.WithError(err).Warn("failed to encode telemetry response")
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("telemetry http server shutdown failed: %w", err)
	}
	s.log.Info("telemetry http server stopped")
	return nil
}
