package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes builds the HTTP routing table from SPEC_FULL §6.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/downloads", s.handleDownloadsRoot)
	mux.HandleFunc("/api/downloads/", s.handleDownloadsSubpath)

	mux.HandleFunc("/ws/logs", s.handleWebSocketLogs)

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleDownloadsRoot handles POST /api/downloads (submit) and
// GET /api/downloads (admin list).
func (s *Server) handleDownloadsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleAdminList(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDownloadsSubpath dispatches /api/downloads/{jobId} and
// /api/downloads/{jobId}/archive.
func (s *Server) handleDownloadsSubpath(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/downloads/")
	if path == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if strings.HasSuffix(path, "/archive") {
		jobID := strings.TrimSuffix(path, "/archive")
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleFetchArchive(w, r, jobID)
		return
	}

	jobID := path
	switch r.Method {
	case http.MethodGet:
		s.handleStatus(w, r, jobID)
	case http.MethodDelete:
		s.handleCleanup(w, r, jobID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
