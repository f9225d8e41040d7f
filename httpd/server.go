package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/config"
	"github.com/woodlandhills/snowcam/service/lgr"
)

const shutdownGrace = 5 * time.Second

// Server exposes the monitoring pipeline over plain HTTP. It is a thin
// translation layer: all behavior lives in the orchestrator.
type Server struct {
	cfgsvc config.IService
	orch   Orchestrator
}

// Orchestrator is the control surface the HTTP layer fronts.
type Orchestrator interface {
	LatestSequencePath() string
	Status() model.StatusReport
	UpdateConfig(updates map[string]interface{}) (config.Dynamic, []config.FieldError)
	ResetConfig() config.Dynamic
	Reload() error
	AnalyticsSummary() map[string]interface{}
	AnalyticsHistory(hours int) []model.AnalysisResult
	CurrentConfig() config.Dynamic
}

func NewServer(cfgsvc config.IService, orch Orchestrator) *Server {
	return &Server{
		cfgsvc: cfgsvc,
		orch:   orch,
	}
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(canxCtx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("GET /sequence/latest", s.latestSequence)
	mux.HandleFunc("GET /analytics", s.analytics)
	mux.HandleFunc("GET /analytics/history", s.analyticsHistory)
	mux.HandleFunc("GET /config/analytics", s.getConfig)
	mux.HandleFunc("POST /config/analytics", s.updateConfig)
	mux.HandleFunc("POST /config/analytics/reset", s.resetConfig)
	mux.HandleFunc("POST /reload", s.reload)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfgsvc.GetAPIPort()),
		Handler: mux,
	}

	serveErr := make(chan error, 1)
	go func() {
		lgr.Logger.Info("http server starting....", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err

	case <-canxCtx.Done():
		lgr.Logger.Info("http server context cancelled")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Status())
}

func (s *Server) latestSequence(w http.ResponseWriter, r *http.Request) {
	path := s.orch.LatestSequencePath()
	if path == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sequence available yet"})
		return
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

func (s *Server) analytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.AnalyticsSummary())
}

func (s *Server) analyticsHistory(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 168 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hours must be an integer in [1,168]"})
			return
		}
		hours = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hours":   hours,
		"results": s.orch.AnalyticsHistory(hours),
	})
}

func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.CurrentConfig())
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	updated, fieldErrs := s.orch.UpdateConfig(updates)
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "validation failed",
			"fields": fieldErrs,
		})
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) resetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.ResetConfig())
}

func (s *Server) reload(w http.ResponseWriter, _ *http.Request) {
	if err := s.orch.Reload(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		lgr.Logger.Error("error writing http response", slog.Any("error", err))
	}
}
