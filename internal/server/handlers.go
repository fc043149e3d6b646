package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
	"github.com/94faddy/dz-wrokshop/internal/models"
	"github.com/94faddy/dz-wrokshop/internal/registry"
)

type submitRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

type errorResponse struct {
	Kind    models.ErrorKind       `json:"kind"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// adminJobView augments a Snapshot with an admin-list-only human-readable
// size, keeping the wire size (bytes) on the base type for programmatic
// callers.
type adminJobView struct {
	models.Snapshot
	ArchiveSizeHuman string `json:"archiveSizeHuman,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewAppError(models.ErrInvalidUrl, "malformed request body"))
		return
	}

	jobID, err := s.orchestrator.Submit(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	snap, ok := s.registry.Status(jobID)
	if !ok {
		writeError(w, models.NewAppError(models.ErrNotFound, "job not found"))
		return
	}
	if snap.State == models.JobCompleted {
		snap.DownloadURL = fmt.Sprintf("/api/downloads/%s/archive", jobID)
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleCleanup implements Cleanup (SPEC_FULL §6): cancel the job if it is
// still running, otherwise drop an already-terminal job from the
// Registry. Cancellation of a running job completes asynchronously in
// the Orchestrator; the response only confirms the request was accepted.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request, jobID string) {
	snap, ok := s.registry.Status(jobID)
	if !ok {
		writeError(w, models.NewAppError(models.ErrNotFound, "job not found"))
		return
	}

	if snap.State != models.JobCompleted && snap.State != models.JobError && snap.State != models.JobCleaned {
		if !s.orchestrator.Cancel(jobID) {
			writeError(w, models.NewAppError(models.ErrNotFound, "job not found"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.registry.Forget(jobID)
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminList serves the admin-visible job history projection. Like
// the log stream, it requires a valid observer session token when one is
// configured (SPEC_FULL §4.6).
func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	if s.verifier != nil {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, err := s.verifier.Verify(token); err != nil {
			writeError(w, models.NewAppError(models.ErrAccessDenied, "missing or invalid observer token"))
			return
		}
	}
	snaps := s.registry.List()
	views := make([]adminJobView, len(snaps))
	for i, snap := range snaps {
		view := adminJobView{Snapshot: snap}
		if snap.ArchiveSize > 0 {
			view.ArchiveSizeHuman = registry.HumanSize(snap.ArchiveSize)
		}
		views[i] = view
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleFetchArchive streams the completed archive, honoring a single
// byte range and setting caching headers (SPEC_FULL §4.5).
func (s *Server) handleFetchArchive(w http.ResponseWriter, r *http.Request, jobID string) {
	var rng *interfaces.ByteRange
	if header := r.Header.Get("Range"); header != "" {
		parsed, err := parseRange(header)
		if err != nil {
			http.Error(w, "invalid range", http.StatusRequestedRangeNotSatisfiable)
			return
		}
		rng = parsed
	}

	result, err := s.registry.Fetch(jobID, rng)
	if err != nil {
		writeError(w, err)
		return
	}
	defer result.Reader.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("ETag", result.ETag)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(result.RangeEnd-result.RangeStart+1, 10))

	if result.Partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", result.RangeStart, result.RangeEnd, result.Size))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.CopyN(w, result.Reader, result.RangeEnd-result.RangeStart+1); err != nil && err != io.EOF {
		s.log.Warn().Err(err).Str("jobId", jobID).Msg("archive stream interrupted")
		return
	}
	if !result.Partial {
		s.registry.MarkDelivered(jobID)
	}
}

// parseRange parses a single-range "bytes=start-end" header, rejecting
// multi-range and suffix-range requests (RFC 7233 subset, §4.5).
func parseRange(header string) (*interfaces.ByteRange, error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return nil, fmt.Errorf("unsupported range unit")
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return nil, fmt.Errorf("multi-range requests are not supported")
	}
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, fmt.Errorf("suffix-range requests are not supported")
	}
	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid range start: %w", err)
	}
	end := int64(-1)
	if parts[1] != "" {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range end: %w", err)
		}
	}
	return &interfaces.ByteRange{Start: start, End: end}, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	writeJSON(w, kind.HTTPStatus(), errorResponse{Kind: kind, Message: err.Error(), Data: models.DataOf(err)})
}
