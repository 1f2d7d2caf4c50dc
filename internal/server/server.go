package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/STEPPE/internal/config"
	"github.com/copyleftdev/STEPPE/internal/logging"
	"github.com/copyleftdev/STEPPE/internal/search"
	"github.com/copyleftdev/STEPPE/internal/search/space"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server exposes a read-only monitoring surface for the single in-flight
// search on this rank. The process lifecycle drives the run; HTTP only
// observes it.
type Server struct {
	cfg      *config.Config
	logger   Logger
	searcher search.Searcher
	space    *space.Space

	startTime time.Time
}

// NewServer creates a monitor for the given searcher and space.
// The logger parameter accepts any type that implements the Logger interface.
func NewServer(cfg *config.Config, logger Logger, searcher search.Searcher, sp *space.Space) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		searcher:  searcher,
		space:     sp,
		startTime: time.Now(),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/space", s.handleSpace)
	})
}

// handleStatus handles the HTTP GET /api/v1/status endpoint. It reports the
// run identity, derived state, progress, and the best evaluation so far.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	completed, total := s.searcher.Progress()

	// State is derived from progress: the run is driven by the process, not
	// by HTTP, so there is no job record to consult.
	state := "pending"
	switch {
	case total > 0 && completed >= total:
		state = "completed"
	case completed > 0:
		state = "running"
	}

	progress := 0.0
	if total > 0 {
		progress = float64(completed) / float64(total)
	}

	response := map[string]interface{}{
		"run_id":     s.cfg.Cluster.RunID,
		"rank":       s.cfg.Cluster.Rank,
		"world_size": s.cfg.Cluster.WorldSize,
		"state":      state,
		"completed":  completed,
		"total":      total,
		"progress":   progress,
		"start_time": s.startTime.Format(time.RFC3339),
		"uptime":     time.Since(s.startTime).String(),
	}

	if best := s.searcher.Best(); best != nil {
		response["best"] = map[string]interface{}{
			"index":   best.Index,
			"params":  best.Params,
			"value":   best.Value,
			"metrics": best.Metrics,
		}
	}

	s.respondWithJSON(w, http.StatusOK, response)
}

// handleSpace handles the HTTP GET /api/v1/space endpoint. It describes the
// search space being swept.
func (s *Server) handleSpace(w http.ResponseWriter, r *http.Request) {
	params := s.space.Parameters()

	parameters := make([]map[string]interface{}, len(params))
	for i, p := range params {
		parameters[i] = map[string]interface{}{
			"name":   p.Name,
			"count":  len(p.Values),
			"values": p.Values,
		}
	}

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"parameters": parameters,
		"size":       s.space.Size(),
	})
}

// respondWithJSON writes a JSON response with the given status code.
func (s *Server) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// respondWithError sends a JSON error response.
func (s *Server) respondWithError(w http.ResponseWriter, status int, message string) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  status,
		"message": message,
	})

	s.respondWithJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
		},
	})
}
