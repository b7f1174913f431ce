// Package server exposes the watcher's status over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leftos/oak-tower-watcher-sub000/pkg/watcher"
	"github.com/leftos/oak-tower-watcher-sub000/poll"
)

// Poller is the loop surface the API needs.
type Poller interface {
	ForceCheck()
	Stats() poll.Stats
}

// Server handles HTTP requests.
type Server struct {
	cache       *poll.Cache
	poller      Poller
	displayName string
	logger      *slog.Logger
}

// New creates a Server backed by the given cache and poller.
func New(cache *poll.Cache, poller Poller, displayName string, logger *slog.Logger) *Server {
	return &Server{cache: cache, poller: poller, displayName: displayName, logger: logger}
}

// Router builds the chi route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/pollz", s.handleForceCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/status/filtered", s.handleFilteredStatus)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, age, ok := s.cache.Current()
	resp := map[string]any{
		"status":   "ok",
		"facility": s.displayName,
	}
	if ok {
		resp["cache_age_seconds"] = int(age.Seconds())
	} else {
		resp["status"] = "starting"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleForceCheck wakes the poll loop. The check runs asynchronously;
// callers re-read /api/status for the result.
func (s *Server) handleForceCheck(w http.ResponseWriter, r *http.Request) {
	s.poller.ForceCheck()
	s.logger.Info("force check requested", "remote", r.RemoteAddr)
	s.writeJSON(w, http.StatusAccepted, map[string]any{"forced": true})
}

type statusResponse struct {
	Facility     string           `json:"facility"`
	Snapshot     watcher.Snapshot `json:"snapshot"`
	CacheAge     float64          `json:"cache_age_seconds"`
	FetchedAt    time.Time        `json:"fetched_at"`
	Stats        poll.Stats       `json:"poller"`
	IntervalSecs float64          `json:"poll_interval_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, age, ok := s.cache.Current()
	if !ok {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "no successful poll yet",
		})
		return
	}
	stats := s.poller.Stats()
	s.writeJSON(w, http.StatusOK, statusResponse{
		Facility:     s.displayName,
		Snapshot:     snap,
		CacheAge:     age.Seconds(),
		FetchedAt:    time.Now().Add(-age).UTC(),
		Stats:        stats,
		IntervalSecs: stats.Interval.Seconds(),
	})
}

type filteredResponse struct {
	Status       watcher.Status       `json:"status"`
	Main         []watcher.Controller `json:"main_controllers"`
	SupportAbove []watcher.Controller `json:"supporting_above"`
	SupportBelow []watcher.Controller `json:"supporting_below"`
	CacheAge     float64              `json:"cache_age_seconds"`
}

// handleFilteredStatus reclassifies the cached controller pool under
// caller-supplied tier patterns, so clients can ask "what would the status
// be for MY facility?". Patterns repeat as query parameters:
//
//	/api/status/filtered?main=^SFO_TWR$&above=^NCT_APP$
func (s *Server) handleFilteredStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tiers := watcher.TierConfig{
		Main:         q["main"],
		SupportAbove: q["above"],
		SupportBelow: q["below"],
	}
	if tiers.Empty() {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "at least one of main, above, below is required",
		})
		return
	}
	classifier, err := watcher.NewClassifier(tiers)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "invalid pattern: " + err.Error(),
		})
		return
	}

	pool, ok := s.cache.Pool()
	if !ok {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "no successful poll yet",
		})
		return
	}
	_, age, _ := s.cache.Current()

	main, above, below := classifier.Classify(pool)
	s.writeJSON(w, http.StatusOK, filteredResponse{
		Status:       watcher.Resolve(main, above),
		Main:         main,
		SupportAbove: above,
		SupportBelow: below,
		CacheAge:     age.Seconds(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
