// Package api serves the daemon's health, snapshots and rate matrices over
// HTTP, plus the Prometheus /metrics endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/dewgenenny/gocoax-stats/internal/daemon"
	"github.com/dewgenenny/gocoax-stats/internal/models"
)

// Poller is the part of the daemon the API needs
type Poller interface {
	CheckHealth() daemon.HealthStatus
	Hosts() []string
	Snapshots() []*models.HostSnapshot
	LatestSnapshot(host string) (*models.HostSnapshot, bool)
	PollConfiguredHost(ctx context.Context, host string) (*models.HostSnapshot, error)
	Pause() error
	Resume() error
}

// Server represents the API server
type Server struct {
	poller         Poller
	metricsHandler http.Handler
}

// New creates a new API server
func New(poller Poller) *Server {
	return &Server{poller: poller}
}

// SetMetricsHandler sets the handler mounted at /metrics
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metricsHandler = h
}
