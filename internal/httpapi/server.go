// Package httpapi is the Operator HTTP/WS API described in spec.md §4.L:
// health and status endpoints, a configuration hot-reload trigger, and a
// live alert WebSocket stream. Routing and logging middleware are grounded
// on aggregator/main.go and aggregator/internal/api/router.go
// (gorilla/mux + gorilla/handlers.LoggingHandler); the alert stream is
// grounded on yoghaf-market-indikator/internal/broadcast.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"commentwatch/internal/breaker"
	"commentwatch/internal/config"
)

// BreakerStates reports the live state of every external dependency's
// circuit breaker for the /status endpoint.
type BreakerStates func() map[string]breaker.State

// Server is the operator-facing HTTP surface. It owns no domain logic: it
// reads config snapshots, reports breaker state, triggers a properties
// reload, and republishes alert events to WebSocket clients.
type Server struct {
	cfg     *config.AppConfig
	lg      *slog.Logger
	hub     *alertHub
	states  BreakerStates
	httpSrv *http.Server
}

// New builds a Server bound to addr. backlog is the alert ring buffer's
// capacity (recent triggering windows served to newly connected clients).
func New(cfg *config.AppConfig, lg *slog.Logger, states BreakerStates, addr string, backlog int) *Server {
	s := &Server{cfg: cfg, lg: lg, hub: newAlertHub(backlog), states: states}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/config", s.handleConfigSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/config/reload", s.handleConfigReload).Methods(http.MethodPost)
	r.HandleFunc("/ws/alerts", s.serveAlerts)

	logged := handlers.LoggingHandler(os.Stdout, r)
	s.httpSrv = &http.Server{Addr: addr, Handler: logged}
	return s
}

// PublishAlert hands a triggering window's alert event to the WebSocket
// hub. Safe to call concurrently from every video's orchestrator goroutine.
func (s *Server) PublishAlert(e AlertEvent) { s.hub.Publish(e) }

// Run starts the hub loop and serves until ctx is canceled, then shuts down
// gracefully within 10 seconds.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.run()

	errCh := make(chan error, 1)
	go func() {
		s.lg.Info("httpapi_listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	states := map[string]string{}
	if s.states != nil {
		for name, st := range s.states() {
			states[name] = st.String()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"breakers": states,
		"videos":   s.cfg.Snapshot().Videos,
	})
}

func (s *Server) handleConfigSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.cfg.Snapshot())
}

func (s *Server) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.ReloadProperties(); err != nil {
		s.lg.Error("config_reload_failed", "error", err.Error())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.lg.Info("config_reloaded")
	w.WriteHeader(http.StatusNoContent)
}
