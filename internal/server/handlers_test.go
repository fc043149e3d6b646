package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/94faddy/dz-wrokshop/internal/authtoken"
	"github.com/94faddy/dz-wrokshop/internal/interfaces"
	"github.com/94faddy/dz-wrokshop/internal/models"
)

type fakeOrchestrator struct {
	jobID      string
	err        error
	cancelable map[string]bool
	cancelled  map[string]bool
}

func (f *fakeOrchestrator) Submit(ctx context.Context, rawURL string) (string, error) {
	return f.jobID, f.err
}

func (f *fakeOrchestrator) Cancel(jobID string) bool {
	if !f.cancelable[jobID] {
		return false
	}
	if f.cancelled == nil {
		f.cancelled = map[string]bool{}
	}
	f.cancelled[jobID] = true
	return true
}

type fakeRegistry struct {
	snapshots map[string]models.Snapshot
	forgotten map[string]bool
	fetchFn   func(jobID string, rng *interfaces.ByteRange) (interfaces.FetchResult, error)
	delivered map[string]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		snapshots: map[string]models.Snapshot{},
		forgotten: map[string]bool{},
		delivered: map[string]bool{},
	}
}

func (f *fakeRegistry) Submit(itemID string, metadata models.Metadata) string { return "" }

func (f *fakeRegistry) Status(jobID string) (models.Snapshot, bool) {
	snap, ok := f.snapshots[jobID]
	return snap, ok
}

func (f *fakeRegistry) Fetch(jobID string, rng *interfaces.ByteRange) (interfaces.FetchResult, error) {
	return f.fetchFn(jobID, rng)
}

func (f *fakeRegistry) Forget(jobID string) bool {
	if _, ok := f.snapshots[jobID]; !ok {
		return false
	}
	f.forgotten[jobID] = true
	delete(f.snapshots, jobID)
	return true
}

func (f *fakeRegistry) Job(jobID string) (*models.Job, bool) { return nil, false }

func (f *fakeRegistry) Mutate(jobID string, fn func(*models.Job)) bool { return false }

func (f *fakeRegistry) List() []models.Snapshot {
	out := make([]models.Snapshot, 0, len(f.snapshots))
	for _, s := range f.snapshots {
		out = append(out, s)
	}
	return out
}

func (f *fakeRegistry) MarkDelivered(jobID string) { f.delivered[jobID] = true }

func newTestServer(t *testing.T, orch interfaces.OrchestratorService, reg interfaces.Registry, verifier *authtoken.Verifier) *Server {
	t.Helper()
	return New(Options{Host: "127.0.0.1", Port: 0}, orch, reg, nil, verifier, arbor.NewLogger())
}

func TestHandleSubmitReturnsJobID(t *testing.T) {
	orch := &fakeOrchestrator{jobID: "job-1"}
	srv := newTestServer(t, orch, newFakeRegistry(), nil)

	body := strings.NewReader(`{"url":"https://steamcommunity.com/sharedfiles/filedetails/?id=1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/downloads", body)
	rec := httptest.NewRecorder()

	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp submitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "job-1", resp.JobID)
}

func TestHandleSubmitPropagatesOrchestratorError(t *testing.T) {
	orch := &fakeOrchestrator{err: models.NewAppError(models.ErrCapacityExhausted, "full")}
	srv := newTestServer(t, orch, newFakeRegistry(), nil)

	body := strings.NewReader(`{"url":"https://steamcommunity.com/sharedfiles/filedetails/?id=1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/downloads", body)
	rec := httptest.NewRecorder()

	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleSubmitCapacityExhaustedCarriesOccupancy(t *testing.T) {
	orch := &fakeOrchestrator{err: models.NewAppErrorWithData(models.ErrCapacityExhausted, "full",
		map[string]interface{}{"current": 3, "max": 3})}
	srv := newTestServer(t, orch, newFakeRegistry(), nil)

	body := strings.NewReader(`{"url":"https://steamcommunity.com/sharedfiles/filedetails/?id=1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/downloads", body)
	rec := httptest.NewRecorder()

	srv.router.ServeHTTP(rec, req)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 3, resp.Data["current"])
	assert.EqualValues(t, 3, resp.Data["max"])
}

func TestHandleStatusAddsDownloadURLWhenCompleted(t *testing.T) {
	reg := newFakeRegistry()
	reg.snapshots["job-1"] = models.Snapshot{ID: "job-1", State: models.JobCompleted}
	srv := newTestServer(t, &fakeOrchestrator{}, reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads/job-1", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, "/api/downloads/job-1/archive", snap.DownloadURL)
}

func TestHandleStatusUnknownJobIsNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{}, newFakeRegistry(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads/missing", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCleanupUnknownJobIsNotFound(t *testing.T) {
	reg := newFakeRegistry()
	srv := newTestServer(t, &fakeOrchestrator{}, reg, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/downloads/job-1", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCleanupCancelsInFlightJob(t *testing.T) {
	reg := newFakeRegistry()
	reg.snapshots["job-1"] = models.Snapshot{ID: "job-1", State: models.JobDownloading}
	orch := &fakeOrchestrator{cancelable: map[string]bool{"job-1": true}}
	srv := newTestServer(t, orch, reg, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/downloads/job-1", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, orch.cancelled["job-1"])
	assert.False(t, reg.forgotten["job-1"], "cancellation completes asynchronously in the Orchestrator, not via a synchronous Forget")
}

func TestHandleCleanupReportsNotFoundWhenCancelFails(t *testing.T) {
	reg := newFakeRegistry()
	reg.snapshots["job-1"] = models.Snapshot{ID: "job-1", State: models.JobDownloading}
	orch := &fakeOrchestrator{} // cancelable is nil: Cancel always reports false
	srv := newTestServer(t, orch, reg, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/downloads/job-1", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCleanupRemovesTerminalJob(t *testing.T) {
	reg := newFakeRegistry()
	reg.snapshots["job-1"] = models.Snapshot{ID: "job-1", State: models.JobCompleted}
	srv := newTestServer(t, &fakeOrchestrator{}, reg, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/downloads/job-1", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, reg.forgotten["job-1"])
}

func TestHandleFetchArchiveServesRange(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "out.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("0123456789"), 0o644))

	reg := newFakeRegistry()
	reg.fetchFn = func(jobID string, rng *interfaces.ByteRange) (interfaces.FetchResult, error) {
		f, err := os.Open(archivePath)
		require.NoError(t, err)
		require.NotNil(t, rng)
		_, err = f.Seek(rng.Start, 0)
		require.NoError(t, err)
		return interfaces.FetchResult{
			Reader:     f,
			Size:       10,
			RangeStart: rng.Start,
			RangeEnd:   rng.End,
			Partial:    true,
			ETag:       `"10-1"`,
		}, nil
	}
	srv := newTestServer(t, &fakeOrchestrator{}, reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads/job-1/archive", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 2-5/10", rec.Header().Get("Content-Range"))
	assert.Equal(t, "2345", rec.Body.String())
	assert.False(t, reg.delivered["job-1"])
}

func TestHandleFetchArchiveRejectsMultiRange(t *testing.T) {
	reg := newFakeRegistry()
	srv := newTestServer(t, &fakeOrchestrator{}, reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads/job-1/archive", nil)
	req.Header.Set("Range", "bytes=0-1,2-3")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
}

func TestHandleAdminListRequiresObserverToken(t *testing.T) {
	verifier := authtoken.NewVerifier("test-secret")
	reg := newFakeRegistry()
	srv := newTestServer(t, &fakeOrchestrator{}, reg, verifier)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, models.ErrAccessDenied.HTTPStatus(), rec.Code)
}

func TestHandleAdminListIncludesHumanReadableSize(t *testing.T) {
	reg := newFakeRegistry()
	reg.snapshots["job-1"] = models.Snapshot{ID: "job-1", State: models.JobCompleted, ArchiveSize: 5_000_000}
	srv := newTestServer(t, &fakeOrchestrator{}, reg, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	var views []adminJobView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.NotEmpty(t, views[0].ArchiveSizeHuman)
}

func TestHandleAdminListAcceptsValidToken(t *testing.T) {
	verifier := authtoken.NewVerifier("test-secret")
	reg := newFakeRegistry()
	reg.snapshots["job-1"] = models.Snapshot{ID: "job-1"}
	srv := newTestServer(t, &fakeOrchestrator{}, reg, verifier)

	token, err := verifier.Issue("observer", 3600000000000)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/downloads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
