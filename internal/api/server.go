// Package api serves the operational HTTP endpoints: health, readiness and
// Prometheus metrics. It carries no bot functionality; Slack traffic arrives
// over Socket Mode, not HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/devlake-bot/internal/devlake"
)

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	devlakeClient  *devlake.Client
	temporalClient temporalclient.Client
}

func NewServer(logger zerolog.Logger, dl *devlake.Client, tc temporalclient.Client) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		devlakeClient:  dl,
		temporalClient: tc,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReadyz reports whether the bot's dependencies are reachable. DevLake
// is probed with a one-row listing; Temporal with its health endpoint.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.devlakeClient.Ping(ctx); err != nil {
		checks["devlake"] = err.Error()
		healthy = false
	} else {
		checks["devlake"] = "ok"
	}

	if s.temporalClient != nil {
		if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
			checks["temporal"] = err.Error()
			healthy = false
		} else {
			checks["temporal"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(checks); err != nil {
		s.logger.Error().Err(err).Msg("writing readiness response failed")
	}
}
